package menu

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

const defaultTerminalWidth = 80

// Terminal renders menus as styled text for interactive use.
type Terminal struct {
	renderer *lipgloss.Renderer
	profile  termenv.Profile
	width    int

	heading lipgloss.Style
	text    lipgloss.Style
	command lipgloss.Style
	link    lipgloss.Style
	alert   lipgloss.Style
	muted   lipgloss.Style
}

// NewTerminal creates a renderer for w using the given colour profile.
// termenv.Ascii disables styling entirely.
func NewTerminal(w io.Writer, profile termenv.Profile, width int) *Terminal {
	if width <= 0 {
		width = defaultTerminalWidth
	}
	r := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	r.SetColorProfile(profile)
	return &Terminal{
		renderer: r,
		profile:  profile,
		width:    width,
		heading:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		text:     r.NewStyle(),
		command:  r.NewStyle().Foreground(lipgloss.Color("10")),
		link:     r.NewStyle().Underline(true).Foreground(lipgloss.Color("4")),
		alert:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		muted:    r.NewStyle().Faint(true),
	}
}

// Render formats a menu. An empty menu reports that everything is current.
func (t *Terminal) Render(m Menu) string {
	if m.IsEmpty() {
		return t.muted.Render("Everything is up to date.") + "\n"
	}

	var b strings.Builder
	for _, item := range m.Items {
		b.WriteString(t.item(item))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderError formats a diagnostic menu, highlighting its first line.
func (t *Terminal) RenderError(m Menu) string {
	var b strings.Builder
	for i, item := range m.Items {
		if i == 0 {
			b.WriteString(t.alert.Render(item.Text))
		} else {
			b.WriteString(t.item(item))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderNotes renders release notes written in Markdown. Styling falls back
// to plain word wrapping when the profile has no colours or glamour fails.
func (t *Terminal) RenderNotes(heading, markdown string) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	body := wordwrap.String(markdown, t.width)
	if t.profile != termenv.Ascii {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(t.width),
		)
		if err == nil {
			if out, err := renderer.Render(markdown); err == nil {
				body = strings.TrimSpace(out)
			}
		}
	}
	return t.heading.Render(heading) + "\n" + body + "\n"
}

func (t *Terminal) item(it Item) string {
	switch {
	case it.Sep:
		return t.muted.Render(strings.Repeat("─", 20))
	case len(it.Command) > 0:
		return t.text.Render(it.Text) + "\n  " + t.command.Render("$ "+strings.Join(it.Command, " "))
	case it.Href != "":
		return t.text.Render(it.Text) + "\n  " + t.link.Render(it.Href)
	case it.Color == "red":
		return t.alert.Render(it.Text)
	default:
		return t.text.Render(it.Text)
	}
}
