package recommend

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/easeaico/lens-assistant/internal/types"
)

func rx(sph, cyl float64) *types.Prescription {
	return &types.Prescription{SPH: &sph, CYL: &cyl}
}

func TestBaselineCoatingsAlwaysPresent(t *testing.T) {
	rec := Recommend(Input{})

	want := []types.Coating{types.CoatingAntiReflective, types.CoatingHard, types.CoatingHydrophobic}
	if diff := cmp.Diff(want, rec.Coatings); diff != "" {
		t.Fatalf("coatings mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, rec.Rationale, 3)
	assert.False(t, rec.HasIndex())
}

func TestZeroPrescriptionGivesStandardIndex(t *testing.T) {
	rec := Recommend(Input{Prescription: rx(0, 0)})
	assert.Equal(t, 1.50, rec.RecommendedIndex)
}

func TestWorkedExample(t *testing.T) {
	rec := Recommend(Input{
		Prescription: rx(-2.5, -1.25),
		Needs:        []types.Need{types.NeedScreen},
	})

	assert.Equal(t, 1.56, rec.RecommendedIndex)
	assert.True(t, rec.WantBlueCut)
	assert.False(t, rec.WantPhotochromic)
	assert.Equal(t, []types.Coating{
		types.CoatingAntiReflective, types.CoatingHard, types.CoatingHydrophobic, types.CoatingBlueCut,
	}, rec.Coatings)
}

func TestIndexSteps(t *testing.T) {
	tests := []struct {
		sph  float64
		want float64
	}{
		{-1.75, 1.50},
		{-2.0, 1.50},
		{-3.5, 1.56},
		{-5.0, 1.60},
		{+6.0, 1.60},
		{-7.5, 1.67},
		{-10.0, 1.74},
	}
	for _, tt := range tests {
		rec := Recommend(Input{Prescription: rx(tt.sph, 0)})
		assert.Equal(t, tt.want, rec.RecommendedIndex, "sph %.2f", tt.sph)
	}
}

func TestIndexIsMonotonicInSphere(t *testing.T) {
	for _, cyl := range []float64{0, -0.75, -2.5} {
		prev := 0.0
		for sph := 0.0; sph >= -12; sph -= 0.25 {
			got := Recommend(Input{Prescription: rx(sph, cyl)}).RecommendedIndex
			assert.GreaterOrEqual(t, got, prev, "sph %.2f cyl %.2f", sph, cyl)
			prev = got
		}
	}
}

func TestCylinderBumpsOneStep(t *testing.T) {
	tests := []struct {
		name string
		sph  float64
		cyl  float64
		want float64
	}{
		{"below threshold", -1.0, -1.75, 1.56},
		{"1.56 to 1.60", -1.0, -2.0, 1.60},
		{"1.60 to 1.67 never 1.74", -3.0, -2.5, 1.67},
		{"max index stays", -9.0, -2.0, 1.74},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recommend(Input{Prescription: rx(tt.sph, tt.cyl)})
			assert.Equal(t, tt.want, rec.RecommendedIndex)
		})
	}
}

func TestPhotochromicForOutdoorAndDriving(t *testing.T) {
	rec := Recommend(Input{Needs: []types.Need{types.NeedDriving, types.NeedOutdoor}})
	assert.True(t, rec.WantPhotochromic)
	assert.Equal(t, 1, countCoating(rec.Coatings, types.CoatingPhotochromic))
	assert.Contains(t, rec.Rationale[len(rec.Rationale)-1], "windscreen")
}

func TestBudgetOnlyAddsRationale(t *testing.T) {
	base := Recommend(Input{Prescription: rx(-4, 0)})
	cheap := Recommend(Input{Prescription: rx(-4, 0), Budget: types.BudgetLow})

	assert.Equal(t, base.RecommendedIndex, cheap.RecommendedIndex)
	assert.Equal(t, base.Coatings, cheap.Coatings)
	assert.Len(t, cheap.Rationale, len(base.Rationale)+1)
}

func countCoating(coatings []types.Coating, c types.Coating) int {
	n := 0
	for _, got := range coatings {
		if got == c {
			n++
		}
	}
	return n
}
