// Package detect classifies the language and intent of a customer message.
package detect

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/easeaico/lens-assistant/internal/types"
)

// greetingMaxRunes bounds the normalized length of a message treated as a bare greeting.
const greetingMaxRunes = 18

// explicitOrder fixes the evaluation order of explicit language requests.
var explicitOrder = []types.Lang{types.LangEnglish, types.LangFrench, types.LangArabic, types.LangDarija}

const frenchAccents = "éèêëàâîïôûùüÿçœæ"

// QuestionKind marks turns that get a deterministic stock answer.
type QuestionKind string

const (
	QuestionNone         QuestionKind = ""
	QuestionAvailability QuestionKind = "availability"
	QuestionQuantity     QuestionKind = "quantity"
)

// Result is a language decision.
type Result struct {
	Lang       types.Lang       `json:"lang"`
	Confidence types.Confidence `json:"confidence"`
	// Explicit is set when the user asked for a language by name.
	Explicit bool `json:"explicit"`
}

// Intent holds the per-turn intent flags.
type Intent struct {
	Price        bool         `json:"price"`
	Availability bool         `json:"availability"`
	Question     QuestionKind `json:"question,omitempty"`
}

// Detector is a table-driven classifier built from a Lexicon.
type Detector struct {
	darija       wordSet
	french       wordSet
	english      wordSet
	greetings    map[string]struct{}
	explicit     map[types.Lang][]*regexp.Regexp
	price        []*regexp.Regexp
	availability []*regexp.Regexp
	quantity     []*regexp.Regexp
	needs        map[types.Need]wordSet
	budget       map[types.Budget]wordSet
	photochromic wordSet
	blueCut      wordSet
	brands       []string
}

// New compiles a detector from lex.
func New(lex *Lexicon) (*Detector, error) {
	if lex == nil {
		return nil, fmt.Errorf("lexicon cannot be nil")
	}
	d := &Detector{
		darija:       newWordSet(lex.DarijaMarkers),
		french:       newWordSet(lex.French),
		english:      newWordSet(lex.English),
		greetings:    make(map[string]struct{}, len(lex.Greetings)),
		explicit:     make(map[types.Lang][]*regexp.Regexp, len(lex.Explicit)),
		needs:        make(map[types.Need]wordSet, len(lex.Needs)),
		budget:       make(map[types.Budget]wordSet, len(lex.Budget)),
		photochromic: newWordSet(lex.Photochromic),
		blueCut:      newWordSet(lex.BlueCut),
		brands:       lex.Brands,
	}
	for _, g := range lex.Greetings {
		d.greetings[greetingKey(g)] = struct{}{}
	}

	var err error
	for lang, patterns := range lex.Explicit {
		if !lang.Valid() {
			return nil, fmt.Errorf("unknown language %q in explicit patterns", lang)
		}
		compiled, err := compileAll(patterns)
		if err != nil {
			return nil, err
		}
		d.explicit[lang] = compiled
	}
	if d.price, err = compileAll(lex.Price); err != nil {
		return nil, err
	}
	if d.availability, err = compileAll(lex.Availability); err != nil {
		return nil, err
	}
	if d.quantity, err = compileAll(lex.Quantity); err != nil {
		return nil, err
	}
	for need, words := range lex.Needs {
		d.needs[need] = newWordSet(words)
	}
	for tier, words := range lex.Budget {
		d.budget[tier] = newWordSet(words)
	}
	return d, nil
}

// Default builds a detector over the embedded lexicon.
func Default() (*Detector, error) {
	lex, err := DefaultLexicon()
	if err != nil {
		return nil, err
	}
	return New(lex)
}

// Detect picks the answer language for text.
func (d *Detector) Detect(text string) Result {
	normalized := normalize(text)

	if lang, ok := d.explicitRequest(normalized); ok {
		return Result{Lang: lang, Confidence: types.ConfidenceHigh, Explicit: true}
	}
	if hasArabicScript(text) {
		return Result{Lang: types.LangArabic, Confidence: types.ConfidenceHigh}
	}

	tokens := tokenize(normalized)
	if d.darija.any(normalized, tokens) {
		return Result{Lang: types.LangDarija, Confidence: types.ConfidenceMedium}
	}
	if strings.ContainsAny(normalized, frenchAccents) {
		return Result{Lang: types.LangFrench, Confidence: types.ConfidenceHigh}
	}

	fr := d.french.count(normalized, tokens)
	en := d.english.count(normalized, tokens)
	lang := types.LangFrench
	gap := fr - en
	if en > fr {
		lang = types.LangEnglish
		gap = en - fr
	}
	return Result{Lang: lang, Confidence: confidenceForGap(gap)}
}

func confidenceForGap(gap int) types.Confidence {
	switch {
	case gap >= 3:
		return types.ConfidenceHigh
	case gap >= 1:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

func (d *Detector) explicitRequest(normalized string) (types.Lang, bool) {
	for _, lang := range explicitOrder {
		if matchAny(d.explicit[lang], normalized) {
			return lang, true
		}
	}
	return "", false
}

// IsGreeting reports whether text is only a short greeting.
func (d *Detector) IsGreeting(text string) bool {
	key := greetingKey(text)
	if key == "" || utf8.RuneCountInString(key) > greetingMaxRunes {
		return false
	}
	if _, ok := d.greetings[key]; ok {
		return true
	}
	// "bonjour madame", "hi there"
	for g := range d.greetings {
		if strings.HasPrefix(key, g+" ") {
			return true
		}
	}
	return false
}

// Effective resolves the answer language for a turn: a low-confidence bare
// greeting keeps the language already stored on the session.
func (d *Detector) Effective(r Result, text string, stored types.Lang) types.Lang {
	if !r.Explicit && r.Confidence == types.ConfidenceLow && stored.Valid() && d.IsGreeting(text) {
		return stored
	}
	return r.Lang
}

// Intent extracts the price/availability/quantity flags. Quantity wins over
// availability, and price vocabulary suppresses the stock question entirely.
func (d *Detector) Intent(text string) Intent {
	normalized := normalize(text)
	in := Intent{
		Price: matchAny(d.price, normalized),
	}
	quantity := matchAny(d.quantity, normalized)
	availability := matchAny(d.availability, normalized)
	in.Availability = quantity || availability

	switch {
	case in.Price:
		in.Question = QuestionNone
	case quantity:
		in.Question = QuestionQuantity
	case availability:
		in.Question = QuestionAvailability
	}
	return in
}

// Needs returns usage contexts mentioned in text, in a fixed order.
func (d *Detector) Needs(text string) []types.Need {
	normalized := normalize(text)
	tokens := tokenize(normalized)
	var needs []types.Need
	for _, need := range []types.Need{types.NeedScreen, types.NeedOutdoor, types.NeedDriving} {
		if set, ok := d.needs[need]; ok && set.any(normalized, tokens) {
			needs = append(needs, need)
		}
	}
	return needs
}

// Budget returns the budget tier mentioned in text, if any.
func (d *Detector) Budget(text string) types.Budget {
	normalized := normalize(text)
	tokens := tokenize(normalized)
	for _, tier := range []types.Budget{types.BudgetLow, types.BudgetMid, types.BudgetPremium} {
		if set, ok := d.budget[tier]; ok && set.any(normalized, tokens) {
			return tier
		}
	}
	return types.BudgetUnknown
}

// WantsPhotochromic reports whether text names photochromic lenses.
func (d *Detector) WantsPhotochromic(text string) bool {
	normalized := normalize(text)
	return d.photochromic.any(normalized, tokenize(normalized))
}

// WantsBlueCut reports whether text names blue-light filtering.
func (d *Detector) WantsBlueCut(text string) bool {
	normalized := normalize(text)
	return d.blueCut.any(normalized, tokenize(normalized))
}

// Brand returns the canonical brand named earliest in text, or "". Brands
// match whole words only, so "indoor" does not name Indo.
func (d *Detector) Brand(text string) string {
	tokens := tokenize(normalize(text))
	best, bestPos := "", -1
	for _, brand := range d.brands {
		pos := tokenIndex(tokens, tokenize(strings.ToLower(brand)))
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos {
			best, bestPos = brand, pos
		}
	}
	return best
}

// tokenIndex is the position of the first run of tokens equal to phrase.
func tokenIndex(tokens, phrase []string) int {
	if len(phrase) == 0 {
		return -1
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		if slices.Equal(tokens[i:i+len(phrase)], phrase) {
			return i
		}
	}
	return -1
}

func normalize(text string) string {
	text = norm.NFKC.String(text)
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func tokenize(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// greetingKey strips punctuation so "Salut !" and "salut" compare equal.
func greetingKey(text string) string {
	return strings.Join(tokenize(normalize(text)), " ")
}

func hasArabicScript(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Arabic) {
			return true
		}
	}
	return false
}

func countSubstring(text, sub string) int {
	if text == "" || sub == "" {
		return 0
	}
	return strings.Count(text, sub)
}
