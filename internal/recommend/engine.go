// Package recommend turns a prescription and stated needs into an
// explainable lens suggestion. It is a sales heuristic, not a clinical rule.
package recommend

import (
	"math"

	"github.com/easeaico/lens-assistant/internal/types"
)

// StandardIndexes are the refractive indexes stocked by the shop, ascending.
var StandardIndexes = []float64{1.50, 1.56, 1.60, 1.67, 1.74}

// indexStep maps the strongest meridian power to a lens index.
type indexStep struct {
	maxPower float64
	index    float64
}

var indexSteps = []indexStep{
	{2.0, 1.50},
	{4.0, 1.56},
	{6.0, 1.60},
	{8.0, 1.67},
}

const (
	highIndex = 1.74
	// cylinderThreshold is the |CYL| from which a thinner lens is preferred.
	cylinderThreshold = 2.0
	cylinderBump      = 0.07
	epsilon           = 1e-9
)

// Input is what the engine needs for one turn.
type Input struct {
	Prescription *types.Prescription
	Needs        []types.Need
	Budget       types.Budget
}

// Recommend builds the recommendation. The result is a pure function of in.
func Recommend(in Input) types.Recommendation {
	rec := types.Recommendation{}

	rec.AddCoating(types.CoatingAntiReflective)
	rec.Because("Anti-reflective coating reduces glare and reflections for clearer vision.")
	rec.AddCoating(types.CoatingHard)
	rec.Because("Hard coating protects the lenses against everyday scratches.")
	rec.AddCoating(types.CoatingHydrophobic)
	rec.Because("Hydrophobic coating repels water and smudges so the lenses stay clean longer.")

	if hasNeed(in.Needs, types.NeedScreen) {
		rec.WantBlueCut = true
		rec.AddCoating(types.CoatingBlueCut)
		rec.Because("Blue-cut filter is suggested for long screen sessions.")
	}
	if hasNeed(in.Needs, types.NeedOutdoor) || hasNeed(in.Needs, types.NeedDriving) {
		rec.WantPhotochromic = true
		rec.AddCoating(types.CoatingPhotochromic)
		rec.Because("Photochromic lenses darken outdoors; note that most car windscreens block UV, so they darken less while driving.")
	}

	if in.Prescription != nil {
		applyIndex(&rec, *in.Prescription)
	}

	switch in.Budget {
	case types.BudgetLow:
		rec.Because("Budget: favour the standard range at the recommended index; coatings above stay advisable.")
	case types.BudgetMid:
		rec.Because("Budget: mid-range designs from the main brands fit this recommendation.")
	case types.BudgetPremium:
		rec.Because("Budget: premium designs add wider clear zones and better coatings at the same index.")
	}
	return rec
}

func applyIndex(rec *types.Recommendation, rx types.Prescription) {
	sph, cyl := rx.Sphere(), rx.Cylinder()
	power := math.Max(math.Abs(sph), math.Abs(sph+cyl))
	index := IndexForPower(power)
	rec.RecommendedIndex = index
	rec.Because("Index %.2f suits the strongest meridian power of %.2f D.", index, power)

	if math.Abs(cyl) < cylinderThreshold {
		return
	}
	bumped := snapDown(index + cylinderBump)
	if bumped > index+epsilon {
		rec.RecommendedIndex = bumped
		rec.Because("Cylinder of %.2f D: index raised to %.2f for a thinner, lighter lens.", math.Abs(cyl), bumped)
		return
	}
	rec.Because("Cylinder of %.2f D: %.2f is already the thinnest index available.", math.Abs(cyl), index)
}

// IndexForPower returns the standard index for an absolute meridian power.
func IndexForPower(power float64) float64 {
	for _, step := range indexSteps {
		if power <= step.maxPower+epsilon {
			return step.index
		}
	}
	return highIndex
}

// snapDown returns the highest standard index not above v.
func snapDown(v float64) float64 {
	best := StandardIndexes[0]
	for _, idx := range StandardIndexes {
		if idx <= v+epsilon {
			best = idx
		}
	}
	return best
}

func hasNeed(needs []types.Need, want types.Need) bool {
	for _, n := range needs {
		if n == want {
			return true
		}
	}
	return false
}
