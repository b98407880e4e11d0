// hitchchat is a terminal client for the hitchhiker chat channel: it talks
// to the configured relays directly, keeps its identity in a local file and
// renders one reconciled timeline.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/Hitchwiki/mediawiki-nostr/internal/auth"
	"github.com/Hitchwiki/mediawiki-nostr/internal/chat"
	"github.com/Hitchwiki/mediawiki-nostr/internal/relay"
)

func main() {
	configFlag := flag.String("config", "", "path to config file")
	debugFlag := flag.Bool("debug", false, "enable debug logging to debug.log")
	flag.Parse()

	if *debugFlag {
		f, err := tea.LogToFile("debug.log", "hitchchat")
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.Println("debug logging enabled")
	} else {
		log.SetOutput(io.Discard)
	}

	_ = godotenv.Load()

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("config loaded: %d relays, channel #%s", len(cfg.Relays), cfg.Channel)

	engine := auth.NewEngine(nil, auth.NewFileStore(cfg.identityPath()))

	rec := chat.NewReconciler(cfg.Channel, cfg.MaxMessages)
	cache := chat.NewCache(cfg.cachePath())
	if cached, err := cache.Load(); err != nil {
		log.Printf("message cache unreadable: %v", err)
	} else if len(cached) > 0 {
		rec.Seed(cached)
		log.Printf("seeded %d cached messages", len(cached))
	}

	pool, err := relay.NewPool(cfg.Relays, rec.SetStatus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay error: %v\n", err)
		os.Exit(1)
	}

	m := newModel(cfg, engine, pool, rec, cache)

	log.Println("starting TUI")
	p := tea.NewProgram(&m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := cache.Save(rec.Messages()); err != nil {
		log.Printf("saving message cache: %v", err)
	}
	pool.Close()
}
