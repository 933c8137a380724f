// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package votes records votes and applies poll close and reset.

	rec := votes.NewRecorder(conn, db.TypeSQLite, notifier, cfg.AllowResetClosed)
	vote, err := rec.CastVote(ctx, pollID, optionID, "alice@example.com")
	switch {
	case errors.Is(err, votes.ErrDuplicateVote):
		// already answered this question
	case errors.Is(err, votes.ErrStore):
		// database failure
	}

Each operation is one transaction. A vote inserts the row and increments
the option score together, so an option's score always equals its vote
count. Duplicate votes are rejected by the UNIQUE(question_id, voter_email)
constraint rather than a prior lookup, which keeps concurrent casts for the
same voter from both succeeding.

Transactions ignore cancellation of the caller's context. The Publisher is
told about a change only after commit; a publish failure is logged and
does not fail the operation.
*/
package votes
