package nostr

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Client-to-relay messages (NIP-01).

// EventEnvelope encodes ["EVENT", event] for publishing.
func EventEnvelope(ev *Event) ([]byte, error) {
	return json.Marshal([]any{"EVENT", ev})
}

// ReqEnvelope encodes ["REQ", subscriptionID, filters...].
func ReqEnvelope(subID string, filters ...Filter) ([]byte, error) {
	arr := make([]any, 0, 2+len(filters))
	arr = append(arr, "REQ", subID)
	for _, f := range filters {
		arr = append(arr, f)
	}
	return json.Marshal(arr)
}

// CloseEnvelope encodes ["CLOSE", subscriptionID].
func CloseEnvelope(subID string) ([]byte, error) {
	return json.Marshal([]any{"CLOSE", subID})
}

// Relay-to-client messages. Exactly one of the pointer fields is set,
// according to Label.

// RelayMessage is a parsed inbound relay frame.
type RelayMessage struct {
	Label string

	// EVENT
	SubscriptionID string
	Event          *Event

	// OK
	EventID string
	OK      bool
	Reason  string

	// NOTICE
	Notice string
}

const (
	LabelEvent  = "EVENT"
	LabelOK     = "OK"
	LabelEOSE   = "EOSE"
	LabelNotice = "NOTICE"
	LabelClosed = "CLOSED"
)

// ParseRelayMessage parses one inbound frame. Unknown labels are returned
// with only Label set so the caller can log and skip them.
func ParseRelayMessage(data []byte) (*RelayMessage, error) {
	r := gjson.ParseBytes(data)
	if !r.IsArray() {
		return nil, fmt.Errorf("relay message is not a JSON array")
	}
	arr := r.Array()
	if len(arr) == 0 {
		return nil, fmt.Errorf("relay message is empty")
	}

	msg := &RelayMessage{Label: arr[0].Str}
	switch msg.Label {
	case LabelEvent:
		// ["EVENT", subscriptionID, event]
		if len(arr) < 3 {
			return nil, fmt.Errorf("EVENT message has %d elements, want 3", len(arr))
		}
		msg.SubscriptionID = arr[1].Str
		var ev Event
		if err := json.Unmarshal([]byte(arr[2].Raw), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		msg.Event = &ev
	case LabelOK:
		// ["OK", eventID, success, reason]
		if len(arr) < 3 {
			return nil, fmt.Errorf("OK message has %d elements, want at least 3", len(arr))
		}
		msg.EventID = arr[1].Str
		msg.OK = arr[2].Bool()
		if len(arr) > 3 {
			msg.Reason = arr[3].Str
		}
	case LabelEOSE, LabelClosed:
		// ["EOSE", subscriptionID] / ["CLOSED", subscriptionID, reason]
		if len(arr) < 2 {
			return nil, fmt.Errorf("%s message has %d elements, want at least 2", msg.Label, len(arr))
		}
		msg.SubscriptionID = arr[1].Str
		if len(arr) > 2 {
			msg.Reason = arr[2].Str
		}
	case LabelNotice:
		if len(arr) > 1 {
			msg.Notice = arr[1].Str
		}
	}
	return msg, nil
}
