package main

import (
	"math/rand"
	"strings"

	"github.com/dgryski/go-wyhash"
)

var adjectives = []string{
	"autumn", "billowing", "bitter", "bold", "broken", "calm", "cold", "crimson",
	"damp", "dark", "dawn", "divine", "dry", "empty", "falling", "fragrant",
	"frosty", "green", "hidden", "holy", "icy", "late", "lingering", "little",
	"misty", "morning", "muddy", "nameless", "old", "patient", "polished",
	"proud", "purple", "quiet", "restless", "rough", "shy", "silent", "small",
	"snowy", "solitary", "sparkling", "spring", "still", "summer", "twilight",
	"wandering", "weathered", "white", "wild", "winter", "wispy", "withered",
}

var nouns = []string{
	"basin", "bird", "breeze", "brook", "bush", "butterfly", "cherry", "cloud",
	"darkness", "dawn", "dew", "dream", "dust", "feather", "field", "fire",
	"firefly", "flower", "fog", "forest", "frog", "frost", "glade", "glitter",
	"grass", "haze", "hill", "lake", "leaf", "meadow", "moon", "morning",
	"mountain", "night", "paper", "pine", "pond", "rain", "resonance", "river",
	"sea", "shadow", "shape", "silence", "sky", "smoke", "snow", "snowflake",
	"sound", "star", "sun", "sunset", "surf", "thunder", "violet", "voice",
	"water", "waterfall", "wave", "wildflower", "wind", "wood",
}

// Rng is a seeded random source: the same seed string yields the same span
// names and metadata on every run, so generated datasets are comparable
// across machines.
type Rng struct {
	rng *rand.Rand
}

func NewRng(s string) Rng {
	return Rng{rand.New(rand.NewSource(int64(wyhash.Hash([]byte(s), 2467825690))))}
}

func (r Rng) Intn(n int) int {
	return r.rng.Intn(n)
}

func (r Rng) Int(min, max int) int {
	return min + r.rng.Intn(max-min)
}

func (r Rng) Float(min, max float64) float64 {
	return r.rng.Float64()*(max-min) + min
}

func (r Rng) Choice(a []string) string {
	return a[r.Intn(len(a))]
}

func (r Rng) WordPair() string {
	return r.Choice(adjectives) + "-" + r.Choice(nouns)
}

// Words returns n space-separated words, a stand-in for recorded prompt and
// completion text.
func (r Rng) Words(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		if r.Intn(2) == 0 {
			b.WriteString(r.Choice(adjectives))
		} else {
			b.WriteString(r.Choice(nouns))
		}
	}
	return b.String()
}
