package main

import (
	"errors"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Hitchwiki/mediawiki-nostr/internal/chat"
	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
	"github.com/Hitchwiki/mediawiki-nostr/internal/relay"
)

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case subStartedMsg:
		return m.handleSubStarted(msg)
	case eventMsg:
		return m.handleEvent(msg)
	case subEndedMsg:
		return m.handleSubEnded()
	case reconnectMsg:
		return m, subscribeCmd(m.pool, m.cfg.Channel)
	case publishDoneMsg:
		return m.handlePublishDone(msg)
	case nip05CheckedMsg:
		return m.handleNip05Checked(msg)
	case errMsg:
		return m.handleErr(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m.handleInputUpdate(msg)
}

func (m *model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	log.Printf("WindowSizeMsg: %dx%d", msg.Width, msg.Height)
	m.width = msg.Width
	m.height = msg.Height
	m.updateLayout()
	return m, tea.ClearScreen
}

func (m *model) handleSubStarted(msg subStartedMsg) (tea.Model, tea.Cmd) {
	log.Println("subscription started")
	if m.cancelSub != nil {
		m.cancelSub()
	}
	m.events = msg.events
	m.cancelSub = msg.cancel
	m.addNotice("subscribed to #" + m.cfg.Channel)
	m.updateViewport()
	return m, waitForEvent(m.events)
}

func (m *model) handleEvent(msg eventMsg) (tea.Model, tea.Cmd) {
	m.rec.AddRemote(msg.ev)
	m.logTranscript(msg.ev)
	m.updateViewport()
	if m.events != nil {
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m *model) handleSubEnded() (tea.Model, tea.Cmd) {
	log.Println("subscription ended, scheduling reconnect")
	m.events = nil
	m.cancelSub = nil
	m.addNotice("lost all relays, reconnecting...")
	return m, reconnectAfter(5 * time.Second)
}

func (m *model) handlePublishDone(msg publishDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err == nil {
		m.statusMsg = ""
		return m, nil
	}
	log.Printf("publish %s failed: %v", msg.id, msg.err)
	var pubErr *relay.PublishError
	if errors.As(msg.err, &pubErr) {
		m.statusMsg = "not accepted by any relay"
	} else {
		m.statusMsg = "send failed: " + msg.err.Error()
	}
	return m, nil
}

func (m *model) handleNip05Checked(msg nip05CheckedMsg) (tea.Model, tea.Cmd) {
	if msg.pubkey != m.ownPubkey() {
		return m, nil
	}
	if msg.err != nil {
		log.Printf("nip05 check for %s: %v", shortPK(msg.pubkey), msg.err)
		m.verified = false
		return m, nil
	}
	m.verified = true
	m.addNotice("identity verified on " + strings.Join(m.cfg.Nip05Domains, ", "))
	m.updateViewport()
	return m, nil
}

func (m *model) handleErr(msg errMsg) (tea.Model, tea.Cmd) {
	log.Printf("error: %v", msg.err)
	m.statusMsg = msg.err.Error()
	if errors.Is(msg.err, relay.ErrSubscriptionFailed) {
		return m, reconnectAfter(5 * time.Second)
	}
	return m, nil
}

func (m *model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyPgUp:
		m.viewport.LineUp(5)
		return m, nil

	case tea.KeyPgDown:
		m.viewport.LineDown(5)
		return m, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		return m.sendMessage(text)
	}

	return m.handleInputUpdate(msg)
}

// logTranscript appends confirmed channel messages to the flat-file log,
// once per event id.
func (m *model) logTranscript(ev *nostr.Event) {
	if ev.Kind != nostr.KindTextNote || !ev.HasTag("t", m.cfg.Channel) {
		return
	}
	if m.logged[ev.ID] {
		return
	}
	m.logged[ev.ID] = true
	m.transcript.append(chat.Message{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		Content:   ev.Content,
		CreatedAt: ev.CreatedAt,
	}, m.displayName(ev.PubKey))
}

func (m *model) handleInputUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.updateLayout()
	return m, cmd
}
