package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Hitchwiki/mediawiki-nostr/internal/auth"
	"github.com/Hitchwiki/mediawiki-nostr/internal/nip05"
	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// staticDirectory serves name lookups from the config mapping.
type staticDirectory map[string]string

func (d staticDirectory) PubkeyForName(name string) (string, bool) {
	pk, ok := d[name]
	return pk, ok
}

type server struct {
	names      nip05.Lookup
	challenges *challengeStore
	resolver   *nip05.Resolver
	domains    []string
}

func newServer(cfg Config) *server {
	return &server{
		names:      staticDirectory(cfg.Names),
		challenges: newChallengeStore(time.Duration(cfg.ChallengeTTL) * time.Second),
		resolver:   nip05.NewResolver(nil),
		domains:    cfg.Nip05Domains,
	}
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/.well-known/nostr.json", s.handleWellKnown).Methods("GET")
	r.HandleFunc("/login/challenge", s.handleChallenge).Methods("POST")
	r.HandleFunc("/login/verify", s.handleVerify).Methods("POST")
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("nip5d: writing response: %v", err)
	}
}

func (s *server) handleWellKnown(w http.ResponseWriter, r *http.Request) {
	// Identity documents are fetched cross-origin by clients.
	w.Header().Set("Access-Control-Allow-Origin", "*")

	name := r.URL.Query().Get("name")
	if !nip05.ValidName(name) {
		http.Error(w, "invalid name", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, nip05.BuildDocument(s.names, name))
}

func (s *server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"challenge": s.challenges.Issue()})
}

type verifyRequest struct {
	PubKey    string       `json:"pubkey"`
	Challenge string       `json:"challenge"`
	Event     *nostr.Event `json:"event"`
}

type verifyResponse struct {
	OK     bool   `json:"ok"`
	PubKey string `json:"pubkey,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Event == nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: "malformed request body"})
		return
	}

	// Consume first: a failed verification still burns the challenge, so
	// the signed event cannot be retried against the same nonce.
	if !s.challenges.Consume(req.Challenge) {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{Error: "unknown or expired challenge"})
		return
	}

	if err := auth.VerifyLogin(req.PubKey, req.Challenge, req.Event); err != nil {
		log.Printf("nip5d: login rejected for %s: %v", req.PubKey, err)
		writeJSON(w, http.StatusUnauthorized, verifyResponse{Error: err.Error()})
		return
	}

	hex, err := nostr.NormalizePubkey(req.PubKey)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{Error: err.Error()})
		return
	}

	if len(s.domains) > 0 {
		if err := s.resolver.Verify(r.Context(), hex, s.domains); err != nil {
			log.Printf("nip5d: login for %s failed identity check: %v", hex, err)
			writeJSON(w, http.StatusForbidden, verifyResponse{Error: "public key not listed on any allowed domain"})
			return
		}
	}

	writeJSON(w, http.StatusOK, verifyResponse{OK: true, PubKey: hex})
}
