// Package chat merges locally created messages, relay-echoed events and
// out-of-order delivery into one ordered, deduplicated channel timeline,
// and tracks reactions, deletions, profiles and relay liveness.
package chat

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
	"github.com/Hitchwiki/mediawiki-nostr/internal/relay"
)

// MaxMessages is the default timeline cap; the oldest entries are evicted
// first.
const MaxMessages = 200

// Message is one timeline entry. Optimistic is true from local creation
// until the relay-echoed copy with the same id is observed.
type Message struct {
	ID         string     `json:"id"`
	PubKey     string     `json:"pubkey"`
	Content    string     `json:"content"`
	CreatedAt  int64      `json:"created_at"`
	Tags       [][]string `json:"tags"`
	Optimistic bool       `json:"-"`
}

// Profile is parsed kind-0 metadata.
type Profile struct {
	Name    string `json:"name"`
	Display string `json:"display_name"`
	Picture string `json:"picture"`
	Nip05   string `json:"nip05"`
}

// DisplayName picks the best available name.
func (p Profile) DisplayName() string {
	if p.Display != "" {
		return p.Display
	}
	return p.Name
}

// Reconciler owns the timeline, the reaction index and the relay-status
// map. Subscription goroutines and user actions feed it concurrently; one
// mutex serializes all mutations so the dedup and ordering invariants hold.
type Reconciler struct {
	channel string
	limit   int

	mu        sync.Mutex
	messages  []Message
	reactions map[string]map[string]map[string]bool // event id → emoji → reacting pubkeys
	deleted   map[string]map[string]bool            // event id → pubkeys that requested deletion
	profiles  map[string]Profile
	status    map[string]relay.Status
}

// NewReconciler returns a reconciler scoped to one channel name. The tag
// filter is exact and case-sensitive. A limit of zero or less falls back
// to MaxMessages.
func NewReconciler(channel string, limit int) *Reconciler {
	if limit <= 0 {
		limit = MaxMessages
	}
	return &Reconciler{
		channel:   channel,
		limit:     limit,
		reactions: make(map[string]map[string]map[string]bool),
		deleted:   make(map[string]map[string]bool),
		profiles:  make(map[string]Profile),
		status:    make(map[string]relay.Status),
	}
}

// Channel returns the active channel name.
func (r *Reconciler) Channel() string { return r.channel }

// AddLocal inserts an optimistic entry for a just-signed outgoing message.
// It is called before the publish resolves, so the local intent is visible
// before any external confirmation.
func (r *Reconciler) AddLocal(ev *nostr.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(Message{
		ID:         ev.ID,
		PubKey:     ev.PubKey,
		Content:    ev.Content,
		CreatedAt:  ev.CreatedAt,
		Tags:       ev.Tags,
		Optimistic: true,
	})
}

// AddRemote feeds one relay-delivered event into the view. The event is
// assumed to be already verified by the transport.
func (r *Reconciler) AddRemote(ev *nostr.Event) {
	switch ev.Kind {
	case nostr.KindTextNote:
		r.addNote(ev)
	case nostr.KindDeletion:
		r.applyDeletion(ev)
	case nostr.KindReaction:
		r.applyReaction(ev)
	case nostr.KindProfileMetadata:
		r.applyProfile(ev)
	default:
		log.Printf("chat: ignoring kind %d event %s", ev.Kind, ev.ID)
	}
}

func (r *Reconciler) addNote(ev *nostr.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A previously deleted message may be re-delivered by a relay that
	// does not honor deletion requests; the tombstone keeps it out.
	if r.deleted[ev.ID][ev.PubKey] {
		return
	}

	for i := range r.messages {
		if r.messages[i].ID == ev.ID {
			if r.messages[i].Optimistic {
				// Relay echo confirms the optimistic entry; the
				// relay-supplied fields become authoritative.
				r.messages[i] = Message{
					ID:        ev.ID,
					PubKey:    ev.PubKey,
					Content:   ev.Content,
					CreatedAt: ev.CreatedAt,
					Tags:      ev.Tags,
				}
			}
			return
		}
	}

	if !ev.HasTag("t", r.channel) {
		return
	}

	r.insert(Message{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		Content:   ev.Content,
		CreatedAt: ev.CreatedAt,
		Tags:      ev.Tags,
	})
}

// insert places the message at the first position whose created_at is
// strictly greater, keeping arrival order among equal timestamps, then
// evicts from the front past the timeline limit. Callers hold r.mu.
func (r *Reconciler) insert(m Message) {
	pos := sort.Search(len(r.messages), func(i int) bool {
		return r.messages[i].CreatedAt > m.CreatedAt
	})
	r.messages = append(r.messages, Message{})
	copy(r.messages[pos+1:], r.messages[pos:])
	r.messages[pos] = m

	if len(r.messages) > r.limit {
		r.messages = r.messages[len(r.messages)-r.limit:]
	}
}

func (r *Reconciler) applyDeletion(ev *nostr.Event) {
	target := ev.TagValue("e")
	if target == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleted[target] == nil {
		r.deleted[target] = make(map[string]bool)
	}
	r.deleted[target][ev.PubKey] = true

	for i := range r.messages {
		if r.messages[i].ID != target {
			continue
		}
		// Only the author's own deletion request removes the entry; this
		// is a local-view removal, relays may keep the event.
		if r.messages[i].PubKey != ev.PubKey {
			log.Printf("chat: ignoring deletion of %s by non-author %s", target, ev.PubKey)
			return
		}
		r.messages = append(r.messages[:i], r.messages[i+1:]...)
		return
	}
}

func (r *Reconciler) applyReaction(ev *nostr.Event) {
	target := ev.TagValue("e")
	if target == "" || ev.Content == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reactions[target] == nil {
		r.reactions[target] = make(map[string]map[string]bool)
	}
	if r.reactions[target][ev.Content] == nil {
		r.reactions[target][ev.Content] = make(map[string]bool)
	}
	// Duplicate (target, emoji, pubkey) triples are no-ops.
	r.reactions[target][ev.Content][ev.PubKey] = true
}

func (r *Reconciler) applyProfile(ev *nostr.Event) {
	var p Profile
	if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
		log.Printf("chat: bad profile metadata from %s: %v", ev.PubKey, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[ev.PubKey] = p
}

// Messages returns a copy of the timeline, oldest first.
func (r *Reconciler) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reactions returns emoji → count for one message.
func (r *Reconciler) Reactions(eventID string) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for emoji, pubkeys := range r.reactions[eventID] {
		out[emoji] = len(pubkeys)
	}
	return out
}

// HasReacted reports whether pubkey already reacted with emoji.
func (r *Reconciler) HasReacted(eventID, emoji, pubkey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reactions[eventID][emoji][pubkey]
}

// Profile returns the display profile for a pubkey, if one was seen.
func (r *Reconciler) Profile(pubkey string) (Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[pubkey]
	return p, ok
}

// SetStatus records a relay state transition; it satisfies relay.StatusFunc.
func (r *Reconciler) SetStatus(url string, st relay.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[url] = st
}

// Statuses returns a copy of the relay-status map.
func (r *Reconciler) Statuses() map[string]relay.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]relay.Status, len(r.status))
	for url, st := range r.status {
		out[url] = st
	}
	return out
}

// Seed loads cached history as regular (non-optimistic) entries.
func (r *Reconciler) Seed(msgs []Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		m.Optimistic = false
		dup := false
		for i := range r.messages {
			if r.messages[i].ID == m.ID {
				dup = true
				break
			}
		}
		if !dup {
			r.insert(m)
		}
	}
}
