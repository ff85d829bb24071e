// Package view prepares the ordered feed for terminal presentation:
// grouping consecutive messages, tagging languages, rendering.
package view

import (
	"strings"
	"time"

	"sealtalk/domain"

	"github.com/abadojack/whatlanggo"
)

// DefaultGroupGap is the maximum silence between two messages of the same
// sender before a new group starts.
const DefaultGroupGap = 5 * time.Minute

// Group is a run of consecutive messages from one sender.
type Group struct {
	SenderID     string
	SenderName   string
	SenderAvatar string
	Lang         string
	Messages     []domain.Message
}

// GroupMessages splits an ordered feed into sender groups. Input order is
// preserved; a group breaks on sender change or when the gap between two
// messages exceeds gap.
func GroupMessages(messages []domain.Message, gap time.Duration) []Group {
	var groups []Group
	for _, m := range messages {
		if n := len(groups); n > 0 {
			last := &groups[n-1]
			prev := last.Messages[len(last.Messages)-1]
			if last.SenderID == m.SenderID && m.CreatedAt.Sub(prev.CreatedAt) <= gap {
				last.Messages = append(last.Messages, m)
				continue
			}
		}
		groups = append(groups, Group{
			SenderID:     m.SenderID,
			SenderName:   m.SenderName,
			SenderAvatar: m.SenderAvatar,
			Messages:     []domain.Message{m},
		})
	}

	for i := range groups {
		groups[i].Lang = detectLang(groups[i].Messages)
	}
	return groups
}

// detectLang tags a group with the ISO 639-3 code of its dominant language,
// or "" when detection isn't reliable enough to display.
func detectLang(messages []domain.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
		b.WriteRune(' ')
	}

	info := whatlanggo.Detect(b.String())
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}
