// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the livepoll API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints. The
notifier must already be running:

	go notifier.Run(ctx)
	mux := router.NewRouter(db, cfg, notifier)

# Endpoints

Health:

	GET /health

Polls (bearer token required):

	POST /api/polls                  - Create poll
	GET  /api/polls                  - List polls
	GET  /api/polls/{pollId}         - Poll detail with scores
	POST /api/polls/{pollId}/close   - Close (creator only)
	POST /api/polls/{pollId}/reset   - Clear votes (creator only)

Voting (bearer token required):

	POST /api/polls/{pollId}/vote      - Cast a vote
	GET  /api/polls/{pollId}/attempted - Questions already answered

Realtime:

	GET /api/polls/{pollId}/ws - WebSocket; token in header or ?token=
	GET /api/realtime/stats    - Session and subscription counts

Vote, close and reset share one votes.Recorder, which publishes to the
notifier after each commit.
*/
package router
