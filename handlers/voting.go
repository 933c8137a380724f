// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/votes"
)

type VotingHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	rec *votes.Recorder
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, rec *votes.Recorder) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, rec: rec}
}

// Vote handles POST /api/polls/{pollId}/vote
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid poll id")
		return
	}

	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing bearer token")
		return
	}

	// Parse request
	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Email != identity {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email does not match bearer identity")
		return
	}
	if req.OptionID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	vote, err := h.rec.CastVote(r.Context(), pollID, int64(req.OptionID), identity)
	switch {
	case err == nil:
	case errors.Is(err, votes.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case errors.Is(err, votes.ErrPollClosed):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Poll is closed")
		return
	case errors.Is(err, votes.ErrInvalidOption):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid option for this poll")
		return
	case errors.Is(err, votes.ErrDuplicateVote):
		middleware.ErrorResponse(w, http.StatusBadRequest, "You have already answered this question")
		return
	default:
		slog.Error("failed to record vote", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	slog.Info("vote recorded", "poll_id", pollID, "question_id", vote.QuestionID, "option_id", vote.OptionID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "vote created"})
}

// GetAttempted handles GET /api/polls/{pollId}/attempted
// Returns the questions the caller has already answered.
func (h *VotingHandler) GetAttempted(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid poll id")
		return
	}

	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing bearer token")
		return
	}

	var exists bool
	err := h.db.QueryRowContext(r.Context(), `
		SELECT EXISTS(SELECT 1 FROM polls WHERE id = $1)
	`, pollID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT v.question_id
		FROM votes v
		JOIN questions q ON q.id = v.question_id
		WHERE q.poll_id = $1 AND v.voter_email = $2
		ORDER BY v.question_id
	`, pollID, identity)
	if err != nil {
		slog.Error("failed to query votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	resp := models.AttemptedResponse{PollID: pollID, QuestionIDs: []int64{}}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Error("failed to scan vote", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp.QuestionIDs = append(resp.QuestionIDs, id)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
