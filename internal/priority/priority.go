// Package priority derives the initial priority of a resident message.
package priority

import (
	"strings"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

var (
	urgentKeywords = []string{"응급", "긴급", "위험", "화재", "가스", "누수"}
	highKeywords   = []string{"소음", "민원", "고장", "문제"}
)

// Determine is pure: urgent keywords win, then phone calls and high keywords.
// It never returns low.
func Determine(channel domain.Channel, content string) domain.Priority {
	lower := strings.ToLower(content)
	if containsAny(lower, urgentKeywords) {
		return domain.PriorityUrgent
	}
	if channel == domain.ChannelCall || containsAny(lower, highKeywords) {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
