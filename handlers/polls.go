// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/votes"
)

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	rec *votes.Recorder
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config, rec *votes.Recorder) *PollHandler {
	return &PollHandler{db: db, cfg: cfg, rec: rec}
}

// pollIDFromPath parses the {pollId} wildcard
func pollIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("pollId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CreatePoll handles POST /api/polls
// The bearer identity becomes the poll's creator.
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	creator, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing bearer token")
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if strings.TrimSpace(req.Title) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Questions) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least one question is required")
		return
	}
	for _, q := range req.Questions {
		if strings.TrimSpace(q.Text) == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "question text is required")
			return
		}
		if len(q.Options) < 2 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "each question needs at least 2 options")
			return
		}
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var pollID int64
	err = tx.QueryRow(`
		INSERT INTO polls (title, creator_email, closed, created_at)
		VALUES ($1, $2, FALSE, $3)
		RETURNING id
	`, req.Title, creator, time.Now()).Scan(&pollID)
	if err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	for _, q := range req.Questions {
		var questionID int64
		err := tx.QueryRow(`
			INSERT INTO questions (poll_id, text) VALUES ($1, $2) RETURNING id
		`, pollID, q.Text).Scan(&questionID)
		if err != nil {
			slog.Error("failed to insert question", "error", err, "poll_id", pollID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
			return
		}

		for _, text := range q.Options {
			_, err := tx.Exec(`
				INSERT INTO poll_options (question_id, text, score) VALUES ($1, $2, 0)
			`, questionID, text)
			if err != nil {
				slog.Error("failed to insert option", "error", err, "poll_id", pollID)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
				return
			}
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID, "creator", creator, "questions", len(req.Questions))

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{PollID: pollID})
}

// ListPolls handles GET /api/polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, title, creator_email, closed, created_at
		FROM polls
		ORDER BY id DESC
	`)
	if err != nil {
		slog.Error("failed to query polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.Title, &p.CreatorEmail, &p.Closed, &p.CreatedAt); err != nil {
			slog.Error("failed to scan poll", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, polls)
}

// ClosePoll handles POST /api/polls/{pollId}/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	pollID, requester, ok := h.ownerRequest(w, r)
	if !ok {
		return
	}

	if err := h.rec.ClosePoll(r.Context(), pollID, requester); err != nil {
		h.ownerError(w, err, pollID, "close")
		return
	}

	slog.Info("poll closed", "poll_id", pollID)
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "poll closed"})
}

// ResetPoll handles POST /api/polls/{pollId}/reset
// Clears every vote and score; the poll stays open.
func (h *PollHandler) ResetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, requester, ok := h.ownerRequest(w, r)
	if !ok {
		return
	}

	if err := h.rec.ResetPoll(r.Context(), pollID, requester); err != nil {
		h.ownerError(w, err, pollID, "reset")
		return
	}

	slog.Info("poll reset", "poll_id", pollID)
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "poll reset"})
}

// ownerRequest parses close/reset input. The body email must name the
// bearer identity.
func (h *PollHandler) ownerRequest(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	pollID, ok := pollIDFromPath(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid poll id")
		return 0, "", false
	}

	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing bearer token")
		return 0, "", false
	}

	var req models.PollOwnerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return 0, "", false
	}
	if req.Email != identity {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "email does not match bearer identity")
		return 0, "", false
	}

	return pollID, identity, true
}

func (h *PollHandler) ownerError(w http.ResponseWriter, err error, pollID int64, op string) {
	switch {
	case errors.Is(err, votes.ErrPollNotFound), errors.Is(err, votes.ErrPollClosed):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found or already closed")
	case errors.Is(err, votes.ErrForbidden):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Only the poll creator can "+op+" this poll")
	default:
		slog.Error("failed to "+op+" poll", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+op+" poll")
	}
}
