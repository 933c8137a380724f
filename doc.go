// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll API server.

livepoll runs live polls: participants vote over HTTP and every client
watching a poll is told over a websocket the moment its results change.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:livepoll.db JWT_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -jwt-secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite DSN or PostgreSQL connection string
  - JWT_SECRET (-jwt-secret): HS256 secret for bearer tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - RESET_CLOSED_POLLS (-reset-closed): allow resetting closed polls

See package cliparse for the realtime tuning options.

# Architecture

  - realtime: notifier goroutine, subscription registry, websocket handler
  - votes: transactional vote, close and reset; publishes after commit
  - handlers: HTTP request handlers (polls, voting, results, realtime)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, identity, JSON helpers
  - models: Request/response types and poll change events
  - auth: Bearer token issue and verification
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
