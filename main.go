package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goware/urlx"
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Telemetry struct {
		Host     string `long:"host" description:"the url of the host to receive the replayed traces (or honeycomb, dogfood, local)" default:"honeycomb"`
		Insecure bool   `long:"insecure" description:"use this for insecure http (not https) connections" yaml:",omitempty"`
		Dataset  string `long:"dataset" description:"sends all traces to the given dataset" env:"HONEYCOMB_DATASET" default:"tracereplay"`
		APIKey   string `long:"apikey" description:"the honeycomb API key(*)" env:"HONEYCOMB_API_KEY" yaml:"-"`
	} `group:"Telemetry Options"`
	Input struct {
		File string `long:"file" description:"path to the JSONL trace dataset" default:"data/big_traces.jsonl"`
	} `group:"Input Options"`
	Replay struct {
		Iterations int  `short:"n" long:"iterations" description:"number of times to replay the dataset" default:"1"`
		Limit      *int `short:"l" long:"limit" description:"max number of dataset rows to read per pass (unset means all)" yaml:",omitempty"`
		BatchSize  *int `short:"b" long:"batchsize" description:"flush after every N root traces (unset means once per pass)" yaml:",omitempty"`
		Flatten    bool `long:"flatten" description:"replay every row as a root trace instead of rebuilding the span hierarchy" yaml:",omitempty"`
	} `group:"Replay Options"`
	Output struct {
		Sender             string        `long:"sender" description:"type of sender" choice:"honeycomb" choice:"otel" choice:"print" choice:"dummy" default:"honeycomb"`
		Protocol           string        `long:"protocol" description:"for otel only, protocol to use" choice:"grpc" choice:"http" default:"grpc"`
		MaxQueueSize       int           `long:"maxqueuesize" description:"for otel only, maximum number of spans to queue before dropping" default:"0"`
		MaxExportBatchSize int           `long:"maxexportbatchsize" description:"for otel only, maximum number of spans to export at once" default:"0"`
		BatchTimeout       time.Duration `long:"batchtimeout" description:"for otel only, maximum time to wait before sending a batch" default:"0s"`
		ExportTimeout      time.Duration `long:"exporttimeout" description:"for otel only, maximum time to wait for a batch to be sent" default:"0s"`
	} `group:"Output Options"`
	Global struct {
		LogLevel  string `long:"loglevel" description:"level of logging" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
		DebugPort int    `long:"debugport" description:"port to listen on for pprof(*)" default:"-1" yaml:"-"`
		Config    string `long:"config" description:"name of config file to load(*)" default:"" yaml:"-"`
		WriteCfg  string `long:"writecfg" description:"write effective YAML config to the specified output file and quit(*)" default:"" yaml:"-"`
	} `group:"Global Options"`
	apihost *url.URL
}

func (o *Options) CopyStarredFieldsFrom(other *Options) {
	o.Telemetry.APIKey = other.Telemetry.APIKey
	o.Global.DebugPort = other.Global.DebugPort
	o.Global.Config = other.Global.Config
	o.Global.WriteCfg = other.Global.WriteCfg
}

func (o *Options) DebugLevel() int {
	switch o.Global.LogLevel {
	case "debug":
		return 3
	case "info":
		return 2
	case "warn":
		return 1
	case "error":
		return 0
	default:
		return 0
	}
}

// parses the host information and returns a cleaned-up version to make
// it easier to make sure that things are properly specified
// exits if it can't make sense of it
func parseHost(log Logger, host string, insecure bool, protocol string) *url.URL {
	switch host {
	case "honeycomb":
		host = "https://api.honeycomb.io:443"
	case "dogfood":
		host = "https://api-dogfood.honeycomb.io:443"
	case "local":
		// match the listen ports of cmd/grpcsink and cmd/httpsink
		if protocol == "http" {
			host = "http://localhost:4318"
		} else {
			host = "http://localhost:4317"
		}
	default:
	}

	// if the scheme is not specified, fall back to the value of the insecure flag
	defaultScheme := "https"
	if insecure {
		defaultScheme = "http"
	}
	u, err := urlx.ParseWithDefaultScheme(host, defaultScheme)
	if err != nil {
		log.Fatal("unable to parse host: %s\n", err)
	}
	port := u.Port()
	if port == "" {
		u.Host = fmt.Sprintf("%s:4317", u.Host) // default GRPC port
	}
	return u
}

func ReadConfig(opts *Options, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	err = dec.Decode(opts)
	if err != nil {
		return err
	}
	log.Printf("read config from %s\n", filename)
	return nil
}

func WriteConfig(opts *Options, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	err = enc.Encode(opts)
	if err != nil {
		return err
	}
	log.Printf("wrote config to %s\n", filename)
	return nil
}

func main() {
	cmdopts := &Options{}

	parser := flags.NewParser(cmdopts, flags.Default)
	parser.Usage = `[OPTIONS]

	tracereplay replays a recorded JSONL trace dataset into an observability
	backend and reports per-iteration throughput. Each line of the dataset is
	one span row; rows are linked into trees through their span_parents field,
	and each root trace is submitted in file order, one at a time.

	The dataset can be fetched with "go run ./cmd/preparedata", or synthesized
	with "go run ./cmd/gendata" when the real one is inconveniently large.

	Senders: honeycomb (beeline SDK), otel (OTLP over grpc or http), print
	(stdout), dummy (no backend; measures harness overhead). For otel, the
	host "local" points at localhost:4317 (grpc, served by cmd/grpcsink) or
	localhost:4318 (http, served by cmd/httpsink), following --protocol.

	Use -n to replay the dataset multiple times, -l to cap the number of rows
	read per pass, -b to flush after every N traces, and --flatten to replay
	every row as its own root trace.

	Options can be set in a config file, or on the command line; to specify
	them in the config file, specify it on the command line with
	"--config=FILENAME". The config file format is YAML.

	Note: If a config file is used, it MUST be used for all options, except
	for the ones marked in the help text with (*) -- these fields CANNOT be
	set in the config file.
	`

	// read the command line and envvars into cmdopts
	_, err := parser.Parse()
	if err != nil {
		switch flagsErr := err.(type) {
		case *flags.Error:
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		log.Fatalf("error reading command line: %v", err)
	}

	opts := &Options{}
	if cmdopts.Global.Config != "" {
		if err := ReadConfig(opts, cmdopts.Global.Config); err != nil {
			log.Fatalf("err %v -- unable to read config file %s", err, cmdopts.Global.Config)
		}
		opts.CopyStarredFieldsFrom(cmdopts)
	} else {
		opts = cmdopts // we don't have to read from a file
	}

	if opts.Global.WriteCfg != "" {
		err := WriteConfig(opts, opts.Global.WriteCfg)
		if err != nil {
			log.Fatalf("unable to write config: %s\n", err)
		}
		os.Exit(0)
	}

	if opts.Global.DebugPort > 0 {
		go func() {
			http.ListenAndServe(fmt.Sprintf("localhost:%d", opts.Global.DebugPort), nil)
		}()
	}

	logger := NewLogger(opts.DebugLevel())

	cfg := ReplayConfig{
		Iterations: opts.Replay.Iterations,
		Limit:      opts.Replay.Limit,
		BatchSize:  opts.Replay.BatchSize,
		Flatten:    opts.Replay.Flatten,
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("%v\n", err)
	}

	if _, err := os.Stat(opts.Input.File); err != nil {
		logger.Fatal("trace file not found at %s -- run 'go run ./cmd/preparedata' first to download the data\n", opts.Input.File)
	}

	opts.apihost = parseHost(logger, opts.Telemetry.Host, opts.Telemetry.Insecure, opts.Output.Protocol)
	logger.Info("host: %s, dataset: %s, apikey: ...%4.4s\n", opts.apihost.String(), opts.Telemetry.Dataset, opts.Telemetry.APIKey)

	var sender Sender
	switch opts.Output.Sender {
	case "dummy":
		sender = NewSenderDummy(logger, opts)
	case "print":
		sender = NewSenderPrint(logger, opts)
	case "honeycomb":
		sender = NewSenderHoneycomb(opts)
	case "otel":
		sender = NewSenderOTel(logger, opts)
	}

	reader := NewDatasetReader(opts.Input.File, cfg.limit())
	replayer, err := NewReplayer(sender, reader, logger, cfg)
	if err != nil {
		logger.Fatal("%v\n", err)
	}

	// ctrl-c ends the run after the current record; the iterations that
	// completed still get reported
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, runErr := replayer.Run(ctx)
	sender.Close()

	var attempted, failed int
	for _, res := range results {
		attempted += res.Attempted
		failed += res.Failed
	}
	logger.Info("total: %d traces (%d failed) across %d iterations in %.2fs\n",
		attempted, failed, len(results), time.Since(start).Seconds())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Fatal("replay ended early: %v\n", runErr)
	}
}
