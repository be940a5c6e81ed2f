package navigation

import (
	"strings"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Crumb is an entry as presented: every entry but the last is clickable.
type Crumb struct {
	domain.PathEntry
	Clickable bool
}

// Crumbs returns the trail ready for display.
func Crumbs(entries []domain.PathEntry) []Crumb {
	crumbs := make([]Crumb, len(entries))
	for i, e := range entries {
		crumbs[i] = Crumb{PathEntry: e, Clickable: i < len(entries)-1}
	}
	return crumbs
}

// Translator resolves a translation key; ok is false when it has none.
type Translator func(key string) (text string, ok bool)

var (
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	currentStyle = lipgloss.NewStyle().Bold(true)
	sepStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Render draws the trail on one line. Clickable crumbs are styled as links
// and the last crumb as plain bold text. Long trails are cut from the left
// to fit width; width <= 0 disables the cut.
func Render(entries []domain.PathEntry, width int, tr Translator) string {
	crumbs := Crumbs(entries)
	parts := make([]string, len(crumbs))
	for i, c := range crumbs {
		label := c.Label
		if tr != nil && c.TranslationKey != "" {
			if text, ok := tr(c.TranslationKey); ok {
				label = text
			}
		}
		if c.Clickable {
			parts[i] = linkStyle.Render(label)
		} else {
			parts[i] = currentStyle.Render(label)
		}
	}

	sep := sepStyle.Render(" / ")
	line := strings.Join(parts, sep)
	for width > 0 && len(parts) > 1 && lipgloss.Width(line) > width {
		parts = parts[1:]
		line = sepStyle.Render("… / ") + strings.Join(parts, sep)
	}
	return line
}
