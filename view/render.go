package view

import (
	"fmt"
	"io"
	"time"

	"sealtalk/domain"
	"sealtalk/moderation"

	"github.com/gookit/color"
)

// Renderer writes the feed to a terminal. Muted words are masked at render
// time only.
type Renderer struct {
	out    io.Writer
	masker moderation.Masker
	gap    time.Duration
}

func NewRenderer(out io.Writer, masker moderation.Masker, gap time.Duration) *Renderer {
	return &Renderer{out: out, masker: masker, gap: gap}
}

// RenderFeed prints the whole snapshot as sender groups.
func (r *Renderer) RenderFeed(messages []domain.Message) {
	for _, group := range GroupMessages(messages, r.gap) {
		r.renderGroup(group)
	}
}

// RenderMessage prints a single live message on one line.
func (r *Renderer) RenderMessage(m domain.Message) {
	fmt.Fprintf(r.out, "%s %s %s\n",
		color.Yellow.Sprintf("[%s]", m.CreatedAt.Local().Format(time.TimeOnly)),
		color.Cyan.Sprintf("%s:", m.SenderName),
		r.masker.Mask(m.Content),
	)
}

func (r *Renderer) renderGroup(group Group) {
	header := color.Cyan.Sprint(group.SenderName)
	if group.Lang != "" {
		header += " " + color.Magenta.Sprintf("(%s)", group.Lang)
	}
	first := group.Messages[0]
	fmt.Fprintf(r.out, "%s %s\n",
		header,
		color.Yellow.Sprintf("— %s", first.CreatedAt.Local().Format(time.TimeOnly)),
	)

	for _, m := range group.Messages {
		fmt.Fprintf(r.out, "  %s\n", r.masker.Mask(m.Content))
	}
}

// RenderQuote prints the daily quote banner.
func (r *Renderer) RenderQuote(quote, author string) {
	if quote == "" {
		return
	}
	fmt.Fprintf(r.out, "%s\n%s\n\n",
		color.Green.Sprintf("%q", quote),
		color.Yellow.Sprintf("— %s", author),
	)
}
