package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/ashureev/teamconsole/internal/navigation"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))
)

// translations of breadcrumb keys per language. English labels are the
// entries' own labels.
var translations = map[string]map[string]string{
	"fr": {"nav.teams": "Équipes", "nav.agents": "Agents", "nav.chat": "Discussion"},
	"es": {"nav.teams": "Equipos", "nav.agents": "Agentes", "nav.chat": "Chat"},
}

func (a *app) translator() navigation.Translator {
	table := translations[a.state.State().Language]
	return func(key string) (string, bool) {
		text, ok := table[key]
		return text, ok
	}
}

// printTrail writes the breadcrumb bar for the current screen.
func (a *app) printTrail(w io.Writer) {
	if a.output != "text" || a.nav.Len() == 0 {
		return
	}
	writeln(w, navigation.Render(a.nav.Entries(), a.state.State().Width/cellPixels, a.translator()))
	writeln(w)
}

// printYAML renders v through its JSON form so field names and order match
// the wire format.
func printYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	// JSON is YAML; decoding into a node keeps key order.
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	blockStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func printMessage(w io.Writer, m domain.ChatMessage) {
	label := assistantStyle.Render(m.Role)
	if m.Role == domain.RoleClient {
		label = userStyle.Render("you")
	}
	writeln(w, label+dimStyle.Render(" "+m.Timestamp))
	writeln(w, "  "+m.Content)
}
