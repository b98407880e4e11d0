package main

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Hitchwiki/mediawiki-nostr/internal/auth"
	"github.com/Hitchwiki/mediawiki-nostr/internal/chat"
	"github.com/Hitchwiki/mediawiki-nostr/internal/nip05"
	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
	"github.com/Hitchwiki/mediawiki-nostr/internal/relay"
)

type model struct {
	cfg      Config
	engine   *auth.Engine
	pool     *relay.Pool
	rec      *chat.Reconciler
	cache    *chat.Cache
	resolver *nip05.Resolver

	// verified is true once the active key passed the NIP-05 domain check.
	verified bool

	// TUI dimensions
	width  int
	height int

	// Components
	viewport viewport.Model
	input    textarea.Model

	// Live subscription
	events    <-chan *nostr.Event
	cancelSub func()

	// Transcript bookkeeping: ids already appended to the flat log.
	transcript *transcript
	logged     map[string]bool

	// Recent system notices shown under the timeline.
	notices []string

	statusMsg string
}

func newModel(cfg Config, engine *auth.Engine, pool *relay.Pool, rec *chat.Reconciler, cache *chat.Cache) model {
	ta := textarea.New()
	ta.Placeholder = "Type a message... (/help for commands)"
	ta.Prompt = "> "
	ta.CharLimit = 2000
	ta.SetHeight(inputMinHeight)
	ta.MaxHeight = inputMaxHeight
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	vp := viewport.New(80, 20)

	return model{
		cfg:        cfg,
		engine:     engine,
		pool:       pool,
		rec:        rec,
		cache:      cache,
		resolver:   nip05.NewResolver(nil),
		width:      80,
		height:     24,
		viewport:   vp,
		input:      ta,
		transcript: newTranscript(cfg.TranscriptDir, cfg.Channel),
		logged:     make(map[string]bool),
	}
}

func (m *model) Init() tea.Cmd {
	return subscribeCmd(m.pool, m.cfg.Channel)
}

// addNotice keeps the last few system lines visible below the timeline.
func (m *model) addNotice(text string) {
	m.notices = append(m.notices, text)
	if len(m.notices) > 3 {
		m.notices = m.notices[len(m.notices)-3:]
	}
}

// displayName resolves a pubkey through seen profile metadata.
func (m *model) displayName(pubkey string) string {
	if p, ok := m.rec.Profile(pubkey); ok {
		if n := p.DisplayName(); n != "" {
			return n
		}
	}
	return shortPK(pubkey)
}

// ownPubkey returns the active pubkey, or "" when anonymous.
func (m *model) ownPubkey() string {
	return m.engine.Snapshot().PubKey
}

// lastOwnMessage returns the newest confirmed message authored by the
// active key.
func (m *model) lastOwnMessage() (chat.Message, bool) {
	own := m.ownPubkey()
	if own == "" {
		return chat.Message{}, false
	}
	msgs := m.rec.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].PubKey == own && !msgs[i].Optimistic {
			return msgs[i], true
		}
	}
	return chat.Message{}, false
}

// lastPeerMessage returns the newest message authored by someone else.
func (m *model) lastPeerMessage() (chat.Message, bool) {
	own := m.ownPubkey()
	msgs := m.rec.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].PubKey != own && !msgs[i].Optimistic {
			return msgs[i], true
		}
	}
	return chat.Message{}, false
}
