// Package stream cleans generated text fragments and fans them out to sinks.
package stream

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/easeaico/lens-assistant/internal/types"
)

// maxTokenLen bounds how much trailing text may be held back as a partial token.
const maxTokenLen = 48

var (
	protocolPattern = regexp.MustCompile(`<\|im_start\|>(?:system|user|assistant)?\n?|<\|[^|<>\s]{1,40}\|>|<｜[^｜]{1,40}｜>|</?s>|\[/?INST\]|<</?SYS>>`)
	partialPattern  = regexp.MustCompile(`^(?:<\|[^|<>\s]{0,40}\|?|<｜[^｜]{0,40})$`)
	blankLines      = regexp.MustCompile(`\n{3,}`)

	literalTokens = []string{"<s>", "</s>", "[INST]", "[/INST]", "<<SYS>>", "<</SYS>>"}

	// Scripts the model sometimes drifts into; never valid in an answer.
	foreignScripts = []*unicode.RangeTable{unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul, unicode.Cyrillic}
)

// Cleaner removes protocol tokens, control characters and scripts that do
// not belong to the target language. Whitespace inside fragments is kept.
// A Cleaner holds state between fragments and serves a single stream.
type Cleaner struct {
	dropArabic bool
	pending    string
}

// NewCleaner returns a Cleaner for answers in lang.
func NewCleaner(lang types.Lang) *Cleaner {
	return &Cleaner{dropArabic: lang.Latin()}
}

// Push cleans one raw fragment. A trailing partial protocol token is held
// back until the next Push or Flush.
func (c *Cleaner) Push(fragment string) string {
	text := protocolPattern.ReplaceAllString(c.pending+fragment, "")
	cut := partialTokenStart(text)
	c.pending = text[cut:]
	return c.filterRunes(text[:cut])
}

// Flush releases held-back text at the end of a stream. An unfinished
// "<|..." token is dropped; other held text such as a lone "<" is kept.
func (c *Cleaner) Flush() string {
	text := protocolPattern.ReplaceAllString(c.pending, "")
	c.pending = ""
	if partialPattern.MatchString(text) {
		return ""
	}
	return c.filterRunes(text)
}

// Final cleans a complete text, collapses runs of blank lines and drops
// trailing whitespace. Leading text is kept as streamed.
func (c *Cleaner) Final(text string) string {
	text = c.filterRunes(protocolPattern.ReplaceAllString(text, ""))
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimRight(text, " \t\r\n")
}

func (c *Cleaner) filterRunes(text string) string {
	if text == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return -1
		case unicode.IsOneOf(foreignScripts, r):
			return -1
		case c.dropArabic && unicode.Is(unicode.Arabic, r):
			return -1
		}
		return r
	}, text)
}

// partialTokenStart returns the index where a possibly unfinished protocol
// token begins, or len(text) when there is none.
func partialTokenStart(text string) int {
	start := len(text) - maxTokenLen
	if start < 0 {
		start = 0
	}
	for i := start; i < len(text); i++ {
		if text[i] != '<' && text[i] != '[' {
			continue
		}
		if isPartialToken(text[i:]) {
			return i
		}
	}
	return len(text)
}

func isPartialToken(suffix string) bool {
	for _, tok := range literalTokens {
		if len(suffix) < len(tok) && strings.HasPrefix(tok, suffix) {
			return true
		}
	}
	return partialPattern.MatchString(suffix)
}
