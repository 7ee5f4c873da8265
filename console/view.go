package console

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	loadedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	unloadedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

const helpText = "l load • u unload • / search • a add files • c clear • ↑/↓ results • q quit"

func (m *Model) resize(width, height int) {
	_, resultFrame := resultBoxStyle.GetFrameSize()
	_, inputFrame := inputBoxStyle.GetFrameSize()
	// title, model line, status and help
	reserved := 4 + 1 + inputFrame + resultFrame
	m.viewport.Width = max(20, width-2)
	m.viewport.Height = max(3, height-reserved)
	m.input.Width = max(10, width-6)
	m.refreshResults()
}

// refreshResults redraws the result list and scrolls to the selected entry.
func (m *Model) refreshResults() {
	content, selectedLine := m.renderResults()
	m.viewport.SetContent(content)
	m.viewport.SetYOffset(selectedLine)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := titleStyle.Render("RAG Console")
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	help := mutedStyle.Render(helpText)

	sections := []string{header, m.renderModelLine(), results}
	if m.mode == modeSearch || m.mode == modeAddPaths {
		sections = append(sections, inputBoxStyle.Render(m.input.View()))
	}
	sections = append(sections, status, help)
	return strings.Join(sections, "\n")
}

func (m Model) renderModelLine() string {
	indicator := unloadedStyle.Render("○ model unloaded")
	if m.isLoaded {
		indicator = loadedStyle.Render("● model loaded")
	}
	return indicator + "  " + mutedStyle.Render(m.handshake)
}

// renderResults lists every result and returns the line the selected one
// starts on.
func (m Model) renderResults() (string, int) {
	if len(m.results) == 0 {
		return "No results yet.", 0
	}

	bodyStyle := lipgloss.NewStyle().PaddingLeft(3)
	if m.viewport.Width > 3 {
		bodyStyle = bodyStyle.Width(m.viewport.Width)
	}

	var blocks []string
	selectedLine, lines := 0, 0
	for i, r := range m.results {
		source := r.Filename
		if r.Anchor != "" {
			source += " · " + r.Anchor
		}
		if r.ImageData != "" {
			source += " · [image]"
		}

		title := fmt.Sprintf("  %d. %s  score=%.3f", i+1, source, r.Score)
		if i == m.cursor {
			title = selectedStyle.Render(fmt.Sprintf("▸ %d. %s  score=%.3f", i+1, source, r.Score))
			selectedLine = lines
		}

		block := title + "\n" + bodyStyle.Render(highlightTerms(r.Content, m.lastQuery)) + "\n"
		blocks = append(blocks, block)
		lines += strings.Count(block, "\n") + 1
	}

	return strings.Join(blocks, "\n"), selectedLine
}

// highlightTerms marks every word of text that also appears in query.
func highlightTerms(text string, query string) string {
	terms := make(map[string]struct{})
	for _, term := range strings.FieldsFunc(strings.ToLower(query), isSeparator) {
		terms[term] = struct{}{}
	}
	if len(terms) == 0 {
		return text
	}

	var b strings.Builder
	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		w := string(word)
		if _, ok := terms[strings.ToLower(w)]; ok {
			b.WriteString(highlightStyle.Render(w))
		} else {
			b.WriteString(w)
		}
		word = word[:0]
	}

	for _, r := range text {
		if isSeparator(r) {
			flush()
			b.WriteRune(r)
			continue
		}
		word = append(word, r)
	}
	flush()
	return b.String()
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
