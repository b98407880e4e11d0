package nostr

// Filter selects events in a REQ subscription (NIP-01). Zero-valued fields
// are omitted from the wire form and match everything.
type Filter struct {
	IDs       []string `json:"ids,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Kinds     []int    `json:"kinds,omitempty"`
	HashtagTs []string `json:"#t,omitempty"`
	EventRefs []string `json:"#e,omitempty"`
	Since     *int64   `json:"since,omitempty"`
	Until     *int64   `json:"until,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// Matches reports whether the event satisfies every constraint set on the
// filter. Relays apply filters server-side; this is used to drop events a
// misbehaving relay sends outside the subscription.
func (f Filter) Matches(ev *Event) bool {
	if len(f.IDs) > 0 && !contains(f.IDs, ev.ID) {
		return false
	}
	if len(f.Authors) > 0 && !contains(f.Authors, ev.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, ev.Kind) {
		return false
	}
	if len(f.HashtagTs) > 0 && !anyTagMatch(ev, "t", f.HashtagTs) {
		return false
	}
	if len(f.EventRefs) > 0 && !anyTagMatch(ev, "e", f.EventRefs) {
		return false
	}
	if f.Since != nil && ev.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && ev.CreatedAt > *f.Until {
		return false
	}
	return true
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func containsInt(xs []int, n int) bool {
	for _, x := range xs {
		if x == n {
			return true
		}
	}
	return false
}

func anyTagMatch(ev *Event, name string, values []string) bool {
	for _, v := range values {
		if ev.HasTag(name, v) {
			return true
		}
	}
	return false
}
