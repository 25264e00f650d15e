package types

import "golang.org/x/text/language"

// Lang is one of the supported answer languages.
type Lang string

const (
	LangFrench  Lang = "fr"
	LangEnglish Lang = "en"
	LangArabic  Lang = "ar"
	// LangDarija is Algerian Arabic, usually written in Latin script with digit letters (3, 7, 9).
	LangDarija Lang = "dz"
)

// Valid reports whether l is a supported language code.
func (l Lang) Valid() bool {
	switch l {
	case LangFrench, LangEnglish, LangArabic, LangDarija:
		return true
	}
	return false
}

// Latin reports whether answers in l are expected in Latin script only.
func (l Lang) Latin() bool {
	return l == LangFrench || l == LangEnglish
}

// Tag maps the code to a BCP 47 tag.
func (l Lang) Tag() language.Tag {
	switch l {
	case LangEnglish:
		return language.English
	case LangArabic:
		return language.Arabic
	case LangDarija:
		return language.MustParse("ar-DZ")
	default:
		return language.French
	}
}

// Confidence grades a language decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)
