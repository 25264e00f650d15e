// Package prescription extracts SPH/CYL/AXIS values from free text.
package prescription

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/easeaico/lens-assistant/internal/types"
)

const maxAxis = 180

var (
	decimalComma = regexp.MustCompile(`(\d),(\d)`)
	sphPattern   = regexp.MustCompile(`(?i)\bSPH\s*[:=]?\s*([+-]?)\s?(\d+(?:\.\d+)?)`)
	cylPattern   = regexp.MustCompile(`(?i)\bCYL\s*[:=]?\s*([+-]?)\s?(\d+(?:\.\d+)?)`)
	axisPattern  = regexp.MustCompile(`(?i)\bAX(?:IS|E)\s*[:=]?\s*(\d{1,3})\b`)
)

// Parse returns the prescription found in text. ok is false only when SPH,
// CYL and AXIS are all absent. Axis values above 180 are ignored.
func Parse(text string) (rx types.Prescription, ok bool) {
	text = decimalComma.ReplaceAllString(text, "$1.$2")
	text = strings.Join(strings.Fields(text), " ")

	if v, found := signedDecimal(sphPattern, text); found {
		rx.SPH = &v
	}
	if v, found := signedDecimal(cylPattern, text); found {
		rx.CYL = &v
	}
	if m := axisPattern.FindStringSubmatch(text); m != nil {
		if axis, err := strconv.Atoi(m[1]); err == nil && axis <= maxAxis {
			rx.Axis = &axis
		}
	}
	return rx, !rx.IsEmpty()
}

func signedDecimal(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	if m[1] == "-" {
		v = -v
	}
	return v, true
}
