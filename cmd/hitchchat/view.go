package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Hitchwiki/mediawiki-nostr/internal/relay"
)

func (m *model) renderTitleBar() string {
	return titleStyle.Render("#" + m.cfg.Channel)
}

func (m *model) updateLayout() {
	m.viewport.Width = m.width
	m.input.SetWidth(m.width)

	titleHeight := lipgloss.Height(m.renderTitleBar())
	statusHeight := lipgloss.Height(m.viewStatusBar())
	inputHeight := lipgloss.Height(m.input.View())
	noticeHeight := len(m.notices)

	contentHeight := m.height - titleHeight - statusHeight - inputHeight - noticeHeight
	if contentHeight < 1 {
		contentHeight = 1
	}
	m.viewport.Height = contentHeight
	m.updateViewport()
}

func (m *model) updateViewport() {
	own := m.ownPubkey()

	var lines []string
	for _, msg := range m.rec.Messages() {
		var authorStyle lipgloss.Style
		if own != "" && msg.PubKey == own {
			authorStyle = chatOwnAuthorStyle
		} else {
			authorStyle = lipgloss.NewStyle().Foreground(colorForPubkey(msg.PubKey)).Bold(true)
		}

		ts := chatTimestampStyle.Render(time.Unix(msg.CreatedAt, 0).Format("15:04"))
		author := authorStyle.Render(m.displayName(msg.PubKey))

		content := msg.Content
		if msg.Optimistic {
			content = chatPendingStyle.Render(content + " …")
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", ts, author, content))

		if reactions := m.renderReactions(msg.ID); reactions != "" {
			lines = append(lines, reactions)
		}
	}

	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// renderReactions renders one indented line of emoji counts, or "".
func (m *model) renderReactions(eventID string) string {
	counts := m.rec.Reactions(eventID)
	if len(counts) == 0 {
		return ""
	}
	emojis := make([]string, 0, len(counts))
	for e := range counts {
		emojis = append(emojis, e)
	}
	sort.Strings(emojis)

	parts := make([]string, 0, len(emojis))
	for _, e := range emojis {
		parts = append(parts, fmt.Sprintf("%s %d", e, counts[e]))
	}
	return chatReactionStyle.Render("      " + strings.Join(parts, "  "))
}

func (m *model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sections := []string{m.renderTitleBar(), m.viewport.View()}
	for _, n := range m.notices {
		sections = append(sections, chatSystemStyle.Render("  "+n))
	}
	sections = append(sections, m.input.View(), m.viewStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *model) connectedRelayCount() int {
	count := 0
	for _, st := range m.rec.Statuses() {
		if st == relay.StatusConnected {
			count++
		}
	}
	return count
}

func (m *model) viewStatusBar() string {
	connected := m.connectedRelayCount()
	total := len(m.cfg.Relays)
	bar := statusConnectedStyle.Render(fmt.Sprintf("● %d/%d relays", connected, total))

	snap := m.engine.Snapshot()
	if snap.PubKey != "" {
		bar += "  " + shortPK(snap.PubKey) + " (" + snap.State.String() + ")"
		if m.verified {
			bar += " " + statusConnectedStyle.Render("✓")
		}
	} else {
		bar += "  anonymous"
	}

	if m.statusMsg != "" {
		bar += "  " + statusErrorStyle.Render(m.statusMsg)
	}
	return statusBarStyle.Width(m.width).Render(bar)
}
