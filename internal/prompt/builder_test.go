package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easeaico/lens-assistant/internal/detect"
	"github.com/easeaico/lens-assistant/internal/models"
	"github.com/easeaico/lens-assistant/internal/types"
)

func TestBuildBoundsHistoryAndDropsSystemEntries(t *testing.T) {
	var history []types.ChatMessage
	for i := 0; i < 31; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		history = append(history, types.ChatMessage{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	history = append(history[:25], append([]types.ChatMessage{{Role: types.RoleSystem, Content: "hidden"}}, history[25:]...)...)

	msgs, err := NewBuilder(12).Build(BuildContext{Lang: types.LangEnglish, History: history})
	require.NoError(t, err)

	require.Len(t, msgs, 13)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Equal(t, "m19", msgs[1].Content)
	assert.Equal(t, "m30", msgs[12].Content)
	for _, m := range msgs[1:] {
		assert.NotEqual(t, "hidden", m.Content)
		assert.NotEqual(t, models.RoleSystem, m.Role)
	}
}

func TestBuildAppendsCurrentTurnWhenHistoryEndsWithAssistant(t *testing.T) {
	msgs, err := NewBuilder(0).Build(BuildContext{
		History:     []types.ChatMessage{{Role: types.RoleAssistant, Content: "earlier answer"}},
		UserMessage: "and in 1.67?",
	})
	require.NoError(t, err)
	last := msgs[len(msgs)-1]
	assert.Equal(t, models.RoleUser, last.Role)
	assert.Equal(t, "and in 1.67?", last.Content)

	_, err = NewBuilder(0).Build(BuildContext{})
	assert.Error(t, err)
}

func TestPolicyBlockOrderAndLanguage(t *testing.T) {
	msgs, err := NewBuilder(12).Build(BuildContext{
		Lang:        types.LangArabic,
		Catalog:     "- SKU ZEI-167 | Zeiss SmartLife | index 1.67",
		UserMessage: "q",
		Recommendation: types.Recommendation{
			RecommendedIndex: 1.6,
			Coatings:         []types.Coating{types.CoatingAntiReflective, types.CoatingHard},
			Rationale:        []string{"Index 1.60 suits the strongest meridian power of 5.00 D."},
		},
	})
	require.NoError(t, err)
	system := msgs[0].Content

	assert.Contains(t, system, "answer ONLY in Modern Standard Arabic")
	assert.Contains(t, system, "- SKU ZEI-167 | Zeiss SmartLife | index 1.67")
	assert.Contains(t, system, "- Recommended index: 1.60")
	assert.Contains(t, system, "- Suggested coatings: AR, HC")
	assert.Contains(t, system, "- Index 1.60 suits the strongest meridian power of 5.00 D.")
	assert.Contains(t, system, "always recommend an anti-reflective coating")
	assert.Contains(t, system, "hydrophobic coatings")
	assert.Contains(t, system, "darken under UV light")
	assert.Contains(t, system, "reduced behind car windscreens")

	order := []string{"1. Formatting", "2. Language", "3. Price and stock", "4. Catalog only", "5. Domain policy", "\nCATALOG\n", "RECOMMENDATION NOTES"}
	last := -1
	for _, marker := range order {
		pos := strings.Index(system, marker)
		require.GreaterOrEqual(t, pos, 0, marker)
		assert.Greater(t, pos, last, marker)
		last = pos
	}
}

func TestPriceRangeOnlyWithPriceIntent(t *testing.T) {
	ctx := BuildContext{
		Lang:        types.LangFrench,
		PriceRange:  "Price range for matching products: 80.00 EUR to 450.00 EUR.",
		UserMessage: "q",
	}
	msgs, err := NewBuilder(12).Build(ctx)
	require.NoError(t, err)
	assert.NotContains(t, msgs[0].Content, "PRICE RANGE")

	ctx.Intent = detect.Intent{Price: true}
	msgs, err = NewBuilder(12).Build(ctx)
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "PRICE RANGE\nPrice range for matching products: 80.00 EUR to 450.00 EUR.")
}

func TestMemoryBlockWithConsistencyInstruction(t *testing.T) {
	msgs, err := NewBuilder(12).Build(BuildContext{
		UserMessage: "q",
		Memory: []types.MemoryFact{
			{Scope: types.ChatScope("s1"), Key: types.MemoryKeyPrescription, Value: "SPH -2.50"},
			{Scope: types.MemoryScopeGlobal, Key: types.MemoryKeyLanguage, Value: "fr"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "- language: fr\n- prescription: SPH -2.50\nStay consistent with these facts")
}
