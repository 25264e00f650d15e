package conversation

import (
	"strings"
	"unicode/utf8"

	"github.com/easeaico/lens-assistant/internal/types"
)

// summaryClipRunes bounds each message inside the rolling summary.
const summaryClipRunes = 280

// BuildSummary renders messages as "User:/Assistant:" lines, each clipped,
// and keeps the most recent part when the total exceeds maxChars.
func BuildSummary(msgs []types.ChatMessage, maxChars int) string {
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		label := "User"
		switch msg.Role {
		case types.RoleAssistant:
			label = "Assistant"
		case types.RoleUser:
		default:
			continue
		}
		text := strings.Join(strings.Fields(msg.Content), " ")
		if text == "" {
			continue
		}
		lines = append(lines, label+": "+clip(text, summaryClipRunes))
	}
	summary := strings.Join(lines, "\n")
	if maxChars <= 0 || utf8.RuneCountInString(summary) <= maxChars {
		return summary
	}

	// Drop from the front, keeping the newest turns.
	runes := []rune(summary)
	return "…" + string(runes[len(runes)-(maxChars-1):])
}
