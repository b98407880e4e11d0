package chat

import (
	"context"
	"time"

	"github.com/Hitchwiki/mediawiki-nostr/internal/auth"
	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// ComposeMessage builds and signs a channel text note. Messages carry an
// expiration tag so relays can drop them after thirty days.
func ComposeMessage(ctx context.Context, signer auth.Signer, channel, content string) (*nostr.Event, error) {
	now := time.Now()
	ev := &nostr.Event{
		CreatedAt: now.Unix(),
		Kind:      nostr.KindTextNote,
		Tags: [][]string{
			{"t", channel},
			nostr.ExpirationTag(now),
		},
		Content: content,
	}
	if err := signer.SignEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ComposeReaction builds and signs a kind-7 reaction to target.
func ComposeReaction(ctx context.Context, signer auth.Signer, target *nostr.Event, emoji string) (*nostr.Event, error) {
	ev := &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindReaction,
		Tags: [][]string{
			{"e", target.ID},
			{"p", target.PubKey},
		},
		Content: emoji,
	}
	if err := signer.SignEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ComposeDeletion builds and signs a kind-5 deletion request for eventID.
func ComposeDeletion(ctx context.Context, signer auth.Signer, eventID string) (*nostr.Event, error) {
	ev := &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindDeletion,
		Tags:      [][]string{{"e", eventID}},
		Content:   "",
	}
	if err := signer.SignEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
