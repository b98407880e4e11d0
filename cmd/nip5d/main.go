// nip5d serves the NIP-05 identity document and the challenge-response
// login endpoints that let a wiki account prove control of a Nostr key.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	configFlag := flag.String("config", "", "path to config file")
	flag.Parse()

	// Optional; deployment environments set real variables instead.
	_ = godotenv.Load()

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if len(cfg.Names) == 0 {
		log.Printf("no names configured, identity lookups will return empty documents")
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      newServer(cfg).router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("nip5d listening on %s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
