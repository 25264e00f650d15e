package types

import (
	"fmt"
	"strings"
)

// Prescription holds the optional refraction values of one eye.
type Prescription struct {
	SPH  *float64 `json:"sph,omitempty"`
	CYL  *float64 `json:"cyl,omitempty"`
	Axis *int     `json:"axis,omitempty"`
}

// IsEmpty reports whether no field was captured.
func (p Prescription) IsEmpty() bool {
	return p.SPH == nil && p.CYL == nil && p.Axis == nil
}

func (p Prescription) Sphere() float64 {
	if p.SPH == nil {
		return 0
	}
	return *p.SPH
}

func (p Prescription) Cylinder() float64 {
	if p.CYL == nil {
		return 0
	}
	return *p.CYL
}

// String serializes the prescription as a memory fact, e.g. "SPH -2.50 CYL -1.25 AXIS 180".
func (p Prescription) String() string {
	parts := make([]string, 0, 3)
	if p.SPH != nil {
		parts = append(parts, fmt.Sprintf("SPH %+.2f", *p.SPH))
	}
	if p.CYL != nil {
		parts = append(parts, fmt.Sprintf("CYL %+.2f", *p.CYL))
	}
	if p.Axis != nil {
		parts = append(parts, fmt.Sprintf("AXIS %d", *p.Axis))
	}
	return strings.Join(parts, " ")
}

// Coating is a lens treatment code.
type Coating string

const (
	CoatingAntiReflective Coating = "AR"
	CoatingHard           Coating = "HC"
	CoatingHydrophobic    Coating = "HYDRO"
	CoatingBlueCut        Coating = "BLUE"
	CoatingPhotochromic   Coating = "PHOTO"
)

// Need is a usage context stated by the customer.
type Need string

const (
	NeedScreen  Need = "screen"
	NeedOutdoor Need = "outdoor"
	NeedDriving Need = "driving"
)

// Budget is an advisory price tier.
type Budget string

const (
	BudgetUnknown Budget = ""
	BudgetLow     Budget = "low"
	BudgetMid     Budget = "mid"
	BudgetPremium Budget = "premium"
)

// Recommendation is the explainable lens suggestion for one turn.
type Recommendation struct {
	// RecommendedIndex is zero when no prescription was available.
	RecommendedIndex float64   `json:"recommendedIndex,omitempty"`
	Coatings         []Coating `json:"coatings"`
	WantBlueCut      bool      `json:"wantBlueCut"`
	WantPhotochromic bool      `json:"wantPhotochromic"`
	Rationale        []string  `json:"rationale"`
}

// AddCoating appends c unless it is already present.
func (r *Recommendation) AddCoating(c Coating) {
	for _, existing := range r.Coatings {
		if existing == c {
			return
		}
	}
	r.Coatings = append(r.Coatings, c)
}

func (r *Recommendation) Because(format string, args ...any) {
	r.Rationale = append(r.Rationale, fmt.Sprintf(format, args...))
}

// HasIndex reports whether an index was chosen.
func (r Recommendation) HasIndex() bool {
	return r.RecommendedIndex > 0
}
