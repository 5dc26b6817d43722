// Package menu renders update decisions for the menu bar host and for a
// terminal.
//
// The host reads plugin output line by line: the lines before the first
// "---" form the menu bar title, the rest form the dropdown. Each line is a
// text optionally followed by " | " and space separated key=value
// parameters (href, color, bash/paramN, terminal, refresh). An empty output
// hides the plugin.
package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Separator divides the title from the dropdown and groups items.
const Separator = "---"

// Item is one line of plugin output.
type Item struct {
	Text  string
	Href  string
	Color string
	// Command is run by the host when the item is clicked; the first
	// element is the executable.
	Command  []string
	Terminal bool
	Refresh  bool
	SFImage  string
	// Sep marks a separator line; all other fields are ignored.
	Sep bool
}

// Text returns a plain item.
func Text(format string, args ...any) Item {
	return Item{Text: fmt.Sprintf(format, args...)}
}

// Menu is a title plus dropdown items. The zero Menu renders to nothing.
type Menu struct {
	Title []Item
	Items []Item
}

// IsEmpty reports whether the menu hides the plugin.
func (m Menu) IsEmpty() bool {
	return len(m.Title) == 0 && len(m.Items) == 0
}

// String renders the menu in the host's text format.
func (m Menu) String() string {
	if m.IsEmpty() {
		return ""
	}
	var b strings.Builder
	for _, item := range m.Title {
		b.WriteString(item.line())
		b.WriteByte('\n')
	}
	if len(m.Items) > 0 {
		b.WriteString(Separator)
		b.WriteByte('\n')
	}
	for _, item := range m.Items {
		b.WriteString(item.line())
		b.WriteByte('\n')
	}
	return b.String()
}

func (it Item) line() string {
	if it.Sep {
		return Separator
	}
	params := it.params()
	text := sanitize(it.Text)
	if len(params) == 0 {
		return text
	}
	return text + " | " + strings.Join(params, " ")
}

func (it Item) params() []string {
	var params []string
	if it.Href != "" {
		params = append(params, param("href", it.Href))
	}
	if it.Color != "" {
		params = append(params, param("color", it.Color))
	}
	if it.SFImage != "" {
		params = append(params, param("sfimage", it.SFImage))
	}
	if len(it.Command) > 0 {
		params = append(params, param("bash", it.Command[0]))
		for i, arg := range it.Command[1:] {
			params = append(params, param(fmt.Sprintf("param%d", i+1), arg))
		}
		params = append(params, fmt.Sprintf("terminal=%t", it.Terminal))
	}
	if it.Refresh {
		params = append(params, "refresh=true")
	}
	return params
}

func param(key, value string) string {
	if strings.ContainsAny(value, " \t\"") {
		value = `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	}
	return key + "=" + value
}

// sanitize keeps a text on one line and out of the parameter syntax.
func sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.NewReplacer("\r", " ", "\n", " ", "|", "¦").Replace(s)
	if strings.TrimSpace(s) == Separator {
		return "-"
	}
	return s
}
