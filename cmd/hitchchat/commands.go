package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Hitchwiki/mediawiki-nostr/internal/auth"
	"github.com/Hitchwiki/mediawiki-nostr/internal/chat"
	"github.com/Hitchwiki/mediawiki-nostr/internal/nip05"
	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
	"github.com/Hitchwiki/mediawiki-nostr/internal/relay"
)

// historyLimit bounds the initial REQ for stored channel messages.
const historyLimit = 50

type subStartedMsg struct {
	events <-chan *nostr.Event
	cancel func()
}

type subEndedMsg struct{}

type reconnectMsg struct{}

type eventMsg struct{ ev *nostr.Event }

type publishDoneMsg struct {
	id  string
	err error
}

type errMsg struct{ err error }

type nip05CheckedMsg struct {
	pubkey string
	err    error
}

// subscribeCmd opens the channel subscription across the pool: text notes
// for the channel plus the deletion, reaction and profile streams.
func subscribeCmd(pool *relay.Pool, channel string) tea.Cmd {
	return func() tea.Msg {
		filters := []nostr.Filter{
			{Kinds: []int{nostr.KindTextNote}, HashtagTs: []string{channel}, Limit: historyLimit},
			{Kinds: []int{nostr.KindDeletion, nostr.KindReaction, nostr.KindProfileMetadata}, Limit: 200},
		}
		events, cancel, err := pool.Subscribe(context.Background(), filters, relay.SubscribeOptions{})
		if err != nil {
			return errMsg{fmt.Errorf("subscribe: %w", err)}
		}
		return subStartedMsg{events: events, cancel: cancel}
	}
}

// waitForEvent blocks on the merged event stream and hands the next event
// to Update. It re-arms itself from the eventMsg handler.
func waitForEvent(events <-chan *nostr.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return subEndedMsg{}
		}
		return eventMsg{ev}
	}
}

// reconnectAfter schedules a resubscribe once the merged stream dies.
func reconnectAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return reconnectMsg{} })
}

// nip05CheckCmd verifies the active key against the configured identity
// domains, for the trust indicator only; a failure does not log the user out.
func nip05CheckCmd(resolver *nip05.Resolver, pubkey string, domains []string) tea.Cmd {
	if len(domains) == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), nip05.FetchTimeout)
		defer cancel()
		return nip05CheckedMsg{pubkey: pubkey, err: resolver.Verify(ctx, pubkey, domains)}
	}
}

// publishCmd fans the event out to the pool.
func publishCmd(pool *relay.Pool, ev *nostr.Event) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), relay.PublishTimeout)
		defer cancel()
		return publishDoneMsg{id: ev.ID, err: pool.Publish(ctx, ev)}
	}
}

func (m *model) handleCommand(text string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(text, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/login":
		if arg == "" {
			m.addNotice("usage: /login nsec1...")
			return m, nil
		}
		if err := m.engine.LoginWithKey(arg); err != nil {
			if errors.Is(err, auth.ErrUnsupportedKeyFormat) {
				m.addNotice("only nsec keys are accepted")
			} else {
				m.addNotice("login failed: " + err.Error())
			}
			return m, nil
		}
		snap := m.engine.Snapshot()
		m.verified = false
		m.addNotice("logged in as " + snap.Npub)
		return m, nip05CheckCmd(m.resolver, snap.PubKey, m.cfg.Nip05Domains)

	case "/genkey":
		if err := m.engine.GenerateKey(); err != nil {
			m.addNotice("key generation failed: " + err.Error())
			return m, nil
		}
		snap := m.engine.Snapshot()
		m.verified = false
		m.addNotice("new identity: " + snap.Npub)
		return m, nil

	case "/logout":
		if err := m.engine.Logout(); err != nil {
			m.addNotice("logout failed: " + err.Error())
			return m, nil
		}
		m.verified = false
		m.addNotice("logged out, reading anonymously")
		return m, nil

	case "/whoami":
		snap := m.engine.Snapshot()
		if snap.PubKey == "" {
			m.addNotice("anonymous")
		} else {
			m.addNotice(fmt.Sprintf("%s (%s)", snap.Npub, snap.State))
		}
		return m, nil

	case "/react":
		emoji := arg
		if emoji == "" {
			emoji = "👍"
		}
		target, ok := m.lastPeerMessage()
		if !ok {
			m.addNotice("no message to react to")
			return m, nil
		}
		signer, err := m.engine.Signer()
		if err != nil {
			m.addNotice("log in first: /login nsec1... or /genkey")
			return m, nil
		}
		if m.rec.HasReacted(target.ID, emoji, m.ownPubkey()) {
			m.addNotice("already reacted with " + emoji)
			return m, nil
		}
		tev := &nostr.Event{ID: target.ID, PubKey: target.PubKey}
		ev, err := chat.ComposeReaction(context.Background(), signer, tev, emoji)
		if err != nil {
			m.addNotice("sign failed: " + err.Error())
			return m, nil
		}
		m.rec.AddRemote(ev)
		m.updateViewport()
		return m, publishCmd(m.pool, ev)

	case "/delete":
		var target chat.Message
		if arg != "" {
			target = chat.Message{ID: arg}
		} else {
			var ok bool
			target, ok = m.lastOwnMessage()
			if !ok {
				m.addNotice("no own message to delete")
				return m, nil
			}
		}
		signer, err := m.engine.Signer()
		if err != nil {
			m.addNotice("log in first: /login nsec1... or /genkey")
			return m, nil
		}
		ev, err := chat.ComposeDeletion(context.Background(), signer, target.ID)
		if err != nil {
			m.addNotice("sign failed: " + err.Error())
			return m, nil
		}
		m.rec.AddRemote(ev)
		m.updateViewport()
		return m, publishCmd(m.pool, ev)

	case "/help":
		m.addNotice("/login nsec1... | /genkey | /logout | /whoami")
		m.addNotice("/react [emoji]: react to the latest message")
		m.addNotice("/delete [event-id]: retract your latest message")
		return m, nil

	case "/quit":
		return m, tea.Quit

	default:
		m.addNotice("unknown command: " + cmd)
		return m, nil
	}
}

// sendMessage signs and publishes the composed text, echoing it into the
// timeline before any relay answers.
func (m *model) sendMessage(text string) (tea.Model, tea.Cmd) {
	signer, err := m.engine.Signer()
	if err != nil {
		m.addNotice("log in first: /login nsec1... or /genkey")
		return m, nil
	}

	ev, err := chat.ComposeMessage(context.Background(), signer, m.cfg.Channel, text)
	if err != nil {
		m.addNotice("sign failed: " + err.Error())
		return m, nil
	}
	log.Printf("sending %s to #%s", ev.ID, m.cfg.Channel)

	m.rec.AddLocal(ev)
	m.updateViewport()
	return m, publishCmd(m.pool, ev)
}
