// Package prompt assembles the message list sent to the generation provider.
package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/easeaico/lens-assistant/internal/detect"
	"github.com/easeaico/lens-assistant/internal/models"
	"github.com/easeaico/lens-assistant/internal/types"
)

const defaultHistoryLimit = 12

// BuildContext contains all inputs for prompt assembly.
type BuildContext struct {
	Lang           types.Lang
	Intent         detect.Intent
	Catalog        string
	Recommendation types.Recommendation
	Prescription   *types.Prescription
	// PriceRange is only rendered when Intent.Price is set.
	PriceRange string
	Memory     []types.MemoryFact
	Summary    string
	// History is the persisted conversation, oldest first, ending with the current user turn.
	History     []types.ChatMessage
	UserMessage string
}

// Builder assembles layered prompts.
type Builder struct {
	historyLimit int
}

// NewBuilder creates a prompt Builder.
func NewBuilder(historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Builder{historyLimit: historyLimit}
}

// Build returns the system policy followed by bounded history. The last
// message is always the current user turn.
func (b *Builder) Build(ctx BuildContext) ([]models.Message, error) {
	lang := ctx.Lang
	if !lang.Valid() {
		lang = types.LangFrench
	}

	coatings := make([]string, 0, len(ctx.Recommendation.Coatings))
	for _, c := range ctx.Recommendation.Coatings {
		coatings = append(coatings, string(c))
	}
	prescription := ""
	if ctx.Prescription != nil && !ctx.Prescription.IsEmpty() {
		prescription = ctx.Prescription.String()
	}
	priceRange := ""
	if ctx.Intent.Price {
		priceRange = ctx.PriceRange
	}

	data := struct {
		LanguageName   string
		ShowPrice      bool
		ShowStock      bool
		Catalog        string
		Recommendation types.Recommendation
		HasIndex       bool
		Coatings       []string
		Prescription   string
		PriceRange     string
		Memory         string
		Summary        string
	}{
		LanguageName:   languageNames[string(lang)],
		ShowPrice:      ctx.Intent.Price,
		ShowStock:      ctx.Intent.Availability,
		Catalog:        ctx.Catalog,
		Recommendation: ctx.Recommendation,
		HasIndex:       ctx.Recommendation.HasIndex(),
		Coatings:       coatings,
		Prescription:   prescription,
		PriceRange:     priceRange,
		Memory:         BuildMemoryBlock(ctx.Memory),
		Summary:        strings.TrimSpace(ctx.Summary),
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	msgs := []models.Message{{Role: models.RoleSystem, Content: buf.String()}}
	msgs = append(msgs, b.history(ctx.History)...)

	if last := msgs[len(msgs)-1]; last.Role != models.RoleUser {
		if strings.TrimSpace(ctx.UserMessage) == "" {
			return nil, fmt.Errorf("prompt has no user turn")
		}
		msgs = append(msgs, models.Message{Role: models.RoleUser, Content: ctx.UserMessage})
	}
	return msgs, nil
}

// history drops system entries and keeps the most recent historyLimit turns.
func (b *Builder) history(history []types.ChatMessage) []models.Message {
	kept := make([]models.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case types.RoleUser:
			kept = append(kept, models.Message{Role: models.RoleUser, Content: msg.Content})
		case types.RoleAssistant:
			kept = append(kept, models.Message{Role: models.RoleAssistant, Content: msg.Content})
		}
	}
	if len(kept) > b.historyLimit {
		kept = kept[len(kept)-b.historyLimit:]
	}
	return kept
}

// BuildMemoryBlock renders memory facts as "- key: value" lines, global facts first.
func BuildMemoryBlock(facts []types.MemoryFact) string {
	var global, chat []string
	for _, f := range facts {
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		line := fmt.Sprintf("- %s: %s", f.Key, value)
		if f.Scope == types.MemoryScopeGlobal {
			global = append(global, line)
		} else {
			chat = append(chat, line)
		}
	}
	return strings.Join(append(global, chat...), "\n")
}
