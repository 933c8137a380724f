// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"testing"

	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
	"github.com/danielhkuo/livepoll/votes"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PollChangedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev models.PollChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count(reason models.ChangeReason) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Reason == reason {
			n++
		}
	}
	return n
}

type testEnv struct {
	db      *sql.DB
	pub     *recordingPublisher
	polls   *PollHandler
	voting  *VotingHandler
	results *ResultsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	pub := &recordingPublisher{}
	rec := votes.NewRecorder(db, cfg.DatabaseType, pub, cfg.AllowResetClosed)
	return &testEnv{
		db:      db,
		pub:     pub,
		polls:   NewPollHandler(db, cfg, rec),
		voting:  NewVotingHandler(db, cfg, rec),
		results: NewResultsHandler(db, cfg),
	}
}

// asUser attaches identity the way middleware.WithIdentity does
func asUser(req *http.Request, identity string) *http.Request {
	if identity == "" {
		return req
	}
	return req.WithContext(middleware.ContextWithIdentity(req.Context(), identity))
}

// pollRequest builds a request against /api/polls/{pollId}/<suffix>
func pollRequest(method, pollID, suffix string, body interface{}, identity string) *http.Request {
	path := "/api/polls/" + pollID
	if suffix != "" {
		path += "/" + suffix
	}
	req := testutil.MakeRequest(method, path, body, nil)
	req.SetPathValue("pollId", pollID)
	return asUser(req, identity)
}
