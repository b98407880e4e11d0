package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Hitchwiki/mediawiki-nostr/internal/chat"
)

// escapeContent escapes newlines and backslashes for single-line log storage.
// Backslash is escaped first to avoid double-escaping.
func escapeContent(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// unescapeContent reverses escapeContent.
func unescapeContent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if i+1 < len(s) && s[i] == '\\' {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i += 2
				continue
			case '\\':
				b.WriteByte('\\')
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// transcript appends a human-readable record of the channel to a flat file,
// independent of the bounded JSON cache. Disabled when dir is empty.
type transcript struct {
	dir     string
	channel string
}

func newTranscript(dir, channel string) *transcript {
	return &transcript{dir: dir, channel: channel}
}

func (t *transcript) path() string {
	safe := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"\t", "_",
		":", "_",
		" ", "_",
	).Replace(t.channel)
	return filepath.Join(t.dir, "channel_"+safe+".log")
}

// append writes one message as a tab-separated line. Failures are logged
// and swallowed; the transcript is best effort.
func (t *transcript) append(msg chat.Message, displayName string) {
	if t.dir == "" {
		return
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		log.Printf("transcript: failed to create dir: %v", err)
		return
	}

	f, err := os.OpenFile(t.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("transcript: failed to open %s: %v", t.path(), err)
		return
	}
	defer f.Close()

	ts := time.Unix(msg.CreatedAt, 0).UTC().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\n", ts, msg.ID, msg.PubKey, displayName, escapeContent(msg.Content))
	if _, err := f.WriteString(line); err != nil {
		log.Printf("transcript: failed to write to %s: %v", t.path(), err)
	}
}
