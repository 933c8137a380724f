// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the livepoll API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - PollHandler: Poll creation, listing, close and reset
  - VotingHandler: Vote casting and the caller's answered questions
  - ResultsHandler: Poll detail with live scores
  - RealtimeHandler: Notifier statistics

Handlers that change poll state share one *votes.Recorder:

	rec := votes.NewRecorder(db, cfg.DatabaseType, notifier, cfg.AllowResetClosed)
	pollHandler := handlers.NewPollHandler(db, cfg, rec)

# Identity

Routes are wrapped with middleware.WithIdentity, and handlers read the
caller with middleware.IdentityFrom. Vote, close and reset bodies carry an
email that must equal the bearer identity.

# Status Codes

	POST /api/polls/{pollId}/vote   200, 400 closed/invalid option/duplicate/email mismatch, 404 missing poll
	POST /api/polls/{pollId}/close  200, 401 not creator, 404 missing or already closed
	POST /api/polls/{pollId}/reset  same as close

Store failures are logged and answered with 500.
*/
package handlers
