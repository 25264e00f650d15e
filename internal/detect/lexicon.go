package detect

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/easeaico/lens-assistant/internal/types"
)

// shortWordMax is the longest entry (in runes) matched as a whole token.
const shortWordMax = 4

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon is the swappable vocabulary behind the detector.
type Lexicon struct {
	DarijaMarkers []string                  `yaml:"darija_markers"`
	French        []string                  `yaml:"french"`
	English       []string                  `yaml:"english"`
	Greetings     []string                  `yaml:"greetings"`
	Explicit      map[types.Lang][]string   `yaml:"explicit"`
	Price         []string                  `yaml:"price"`
	Availability  []string                  `yaml:"availability"`
	Quantity      []string                  `yaml:"quantity"`
	Needs         map[types.Need][]string   `yaml:"needs"`
	Budget        map[types.Budget][]string `yaml:"budget"`
	Photochromic  []string                  `yaml:"photochromic"`
	BlueCut       []string                  `yaml:"blue_cut"`
	Brands        []string                  `yaml:"brands"`
}

// DefaultLexicon returns the embedded vocabulary.
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexiconYAML)
}

// LoadLexicon reads a lexicon file, e.g. one configured with LEXICON_PATH.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes YAML lexicon data.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	return &lex, nil
}

// wordSet splits a word list into whole-token entries and substring entries.
type wordSet struct {
	tokens     map[string]struct{}
	substrings []string
}

func newWordSet(words []string) wordSet {
	set := wordSet{tokens: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = normalize(w)
		if w == "" {
			continue
		}
		if utf8.RuneCountInString(w) <= shortWordMax {
			set.tokens[w] = struct{}{}
		} else {
			set.substrings = append(set.substrings, w)
		}
	}
	return set
}

// count returns how many lexicon hits a normalized text produces.
func (s wordSet) count(text string, tokens []string) int {
	n := 0
	for _, tok := range tokens {
		if _, ok := s.tokens[tok]; ok {
			n++
		}
	}
	for _, sub := range s.substrings {
		n += countSubstring(text, sub)
	}
	return n
}

func (s wordSet) any(text string, tokens []string) bool {
	return s.count(text, tokens) > 0
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid lexicon pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
