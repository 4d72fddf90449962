package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

// Options defines the command line arguments
type Options struct {
	URL string `long:"url" description:"URL of the gzipped JSONL trace dataset" default:"https://brainstore-benchmark-data.s3.us-east-2.amazonaws.com/big_traces.jsonl.gz"`
	Dir string `long:"dir" description:"directory to place the extracted dataset in" default:"data"`
}

const downloadChunk = 8 * 1024 * 1024

// downloadAndExtract streams the compressed dataset to disk and gunzips it.
// Both steps work in chunks; the dataset is 768MB compressed and 1.7GB
// extracted, so nothing is ever held in memory whole. Partial files are
// removed on failure so a rerun starts clean.
func downloadAndExtract(opts Options) error {
	traceFile := filepath.Join(opts.Dir, "big_traces.jsonl")
	compressedFile := traceFile + ".gz"

	if fi, err := os.Stat(traceFile); err == nil {
		log.Printf("trace file already exists at %s (%.2f MB)", traceFile, float64(fi.Size())/(1024*1024))
		return nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return err
	}

	cleanup := func() {
		for _, partial := range []string{compressedFile, traceFile} {
			if err := os.Remove(partial); err == nil {
				log.Printf("cleaned up partial file %s", partial)
			}
		}
	}

	log.Printf("downloading trace data from %s", opts.URL)
	resp, err := http.Get(opts.URL)
	if err != nil {
		return fmt.Errorf("downloading dataset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading dataset: unexpected status %s", resp.Status)
	}
	if resp.ContentLength > 0 {
		log.Printf("downloading %.2f MB...", float64(resp.ContentLength)/(1024*1024))
	}

	out, err := os.Create(compressedFile)
	if err != nil {
		return err
	}
	written, err := io.Copy(out, progressReader{r: resp.Body, counter: new(int64)})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return fmt.Errorf("downloading dataset: %w", err)
	}
	log.Printf("download complete (%.2f MB), extracting...", float64(written)/(1024*1024))

	in, err := os.Open(compressedFile)
	if err != nil {
		cleanup()
		return err
	}
	defer in.Close()
	gz, err := gzip.NewReader(in)
	if err != nil {
		cleanup()
		return fmt.Errorf("extracting dataset: %w", err)
	}
	extracted, err := os.Create(traceFile)
	if err != nil {
		cleanup()
		return err
	}
	size, err := io.CopyBuffer(extracted, gz, make([]byte, downloadChunk))
	if cerr := extracted.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return fmt.Errorf("extracting dataset: %w", err)
	}
	log.Printf("extraction complete (%.2f MB)", float64(size)/(1024*1024))

	if err := os.Remove(compressedFile); err == nil {
		log.Printf("cleaned up compressed file")
	}
	log.Printf("trace data ready at %s", traceFile)
	return nil
}

// progressReader logs roughly every 100MB read through it.
type progressReader struct {
	r       io.Reader
	counter *int64
}

func (p progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	before := *p.counter / (100 * 1024 * 1024)
	*p.counter += int64(n)
	if *p.counter/(100*1024*1024) > before {
		log.Printf("downloaded %d MB...", *p.counter/(1024*1024))
	}
	return n, err
}

func main() {
	var opts Options

	parser := flags.NewParser(&opts, flags.Default)
	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("error parsing flags: %v", err)
	}

	log.Println("starting trace data preparation...")
	if err := downloadAndExtract(opts); err != nil {
		log.Fatalf("data preparation failed: %v", err)
	}
	log.Println("data preparation complete")
}
