// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/realtime"
	"github.com/danielhkuo/livepoll/votes"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, notifier *realtime.Notifier) *http.ServeMux {
	mux := http.NewServeMux()

	verifier := auth.NewVerifier(cfg.JWTSecret)
	recorder := votes.NewRecorder(db, cfg.DatabaseType, notifier, cfg.AllowResetClosed)

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(db, cfg, recorder)
	votingHandler := handlers.NewVotingHandler(db, cfg, recorder)
	resultsHandler := handlers.NewResultsHandler(db, cfg)
	realtimeHandler := handlers.NewRealtimeHandler(notifier)
	wsHandler := realtime.NewHandler(notifier, verifier, realtime.HandlerOptions{
		WriteTimeout:   cfg.WriteTimeout,
		PingInterval:   cfg.PingInterval,
		OriginPatterns: cfg.OriginPatterns,
	})

	withIdentity := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.WithIdentity(verifier, next))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Polls
	mux.HandleFunc("POST /api/polls", withIdentity(pollHandler.CreatePoll))
	mux.HandleFunc("GET /api/polls", withIdentity(pollHandler.ListPolls))
	mux.HandleFunc("GET /api/polls/{pollId}", withIdentity(resultsHandler.GetPoll))
	mux.HandleFunc("POST /api/polls/{pollId}/close", withIdentity(pollHandler.ClosePoll))
	mux.HandleFunc("POST /api/polls/{pollId}/reset", withIdentity(pollHandler.ResetPoll))

	// Voting
	mux.HandleFunc("POST /api/polls/{pollId}/vote", withIdentity(votingHandler.Vote))
	mux.HandleFunc("GET /api/polls/{pollId}/attempted", withIdentity(votingHandler.GetAttempted))

	// Realtime; the websocket handler authenticates before upgrading
	mux.HandleFunc("GET /api/polls/{pollId}/ws", middleware.WithLogging(wsHandler.ServeHTTP))
	mux.HandleFunc("GET /api/realtime/stats", middleware.WithLogging(realtimeHandler.Stats))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("livepoll API v1"))
	})

	return mux
}
