// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// GetPoll handles GET /api/polls/{pollId}
// Returns the poll with every question and option, scores included. Realtime
// clients call this whenever they are told the poll changed.
func (h *ResultsHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid poll id")
		return
	}

	var poll models.Poll
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, title, creator_email, closed, created_at
		FROM polls
		WHERE id = $1
	`, pollID).Scan(&poll.ID, &poll.Title, &poll.CreatorEmail, &poll.Closed, &poll.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Questions and options in one pass, grouped by question
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT q.id, q.text, o.id, o.text, o.score
		FROM questions q
		JOIN poll_options o ON o.question_id = q.id
		WHERE q.poll_id = $1
		ORDER BY q.id, o.id
	`, poll.ID)
	if err != nil {
		slog.Error("failed to query questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var questionID int64
		var questionText string
		var opt models.PollOption
		if err := rows.Scan(&questionID, &questionText, &opt.ID, &opt.Text, &opt.Score); err != nil {
			slog.Error("failed to scan option", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		opt.QuestionID = questionID

		if n := len(questions); n == 0 || questions[n-1].ID != questionID {
			questions = append(questions, models.Question{
				ID:      questionID,
				PollID:  poll.ID,
				Text:    questionText,
				Options: []models.PollOption{},
			})
		}
		last := &questions[len(questions)-1]
		last.Options = append(last.Options, opt)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate options", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollDetail{
		Poll:      poll,
		Questions: questions,
	})
}
