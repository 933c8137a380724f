// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the relational store and creates its schema.

# Drivers

Two database types are supported:

  - postgres: github.com/lib/pq
  - sqlite: modernc.org/sqlite (pure Go, default; also used by tests)

	conn, err := db.Open(db.TypeSQLite, "file:livepoll.db")

SQLite DSNs get foreign_keys and busy_timeout pragmas unless the caller
already passed _pragma parameters, and the pool is limited to one
connection.

# Schema Creation

	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - polls: title, creator_email, closed flag
  - questions: belong to a poll
  - poll_options: belong to a question, carry the score counter
  - votes: one row per (question_id, voter_email)

# Relationships

	polls 1──* questions
	questions 1──* poll_options
	questions 1──* votes
	poll_options 1──* votes

All foreign keys use ON DELETE CASCADE.

# Invariants

UNIQUE (question_id, voter_email) on votes is what makes a voter answer a
question at most once, even under concurrent requests. poll_options.score
must always equal the number of votes for the option; only the vote recorder
and poll reset change it, inside the same transaction as the vote rows.
*/
package db
