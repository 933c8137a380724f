// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
)

func TestCreatePoll(t *testing.T) {
	env := newTestEnv(t)

	valid := models.CreatePollRequest{
		Title: "Lunch",
		Questions: []models.CreateQuestionReq{
			{Text: "Where?", Options: []string{"Pizza", "Sushi", "Tacos"}},
			{Text: "When?", Options: []string{"12:00", "13:00"}},
		},
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		identity       string
		expectedStatus int
		checkResponse  func(t *testing.T, resp *models.CreatePollResponse)
	}{
		{
			name:           "valid poll creation",
			requestBody:    valid,
			identity:       "alice@x",
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.CreatePollResponse) {
				if resp.PollID <= 0 {
					t.Fatalf("Expected positive poll_id, got %d", resp.PollID)
				}

				var creator string
				var closed bool
				err := env.db.QueryRow("SELECT creator_email, closed FROM polls WHERE id = $1", resp.PollID).Scan(&creator, &closed)
				if err != nil {
					t.Fatalf("Failed to query poll: %v", err)
				}
				if creator != "alice@x" || closed {
					t.Errorf("Unexpected poll row: creator %q closed %v", creator, closed)
				}

				var options int
				env.db.QueryRow(`
					SELECT COUNT(*) FROM poll_options o
					JOIN questions q ON q.id = o.question_id
					WHERE q.poll_id = $1 AND o.score = 0
				`, resp.PollID).Scan(&options)
				if options != 5 {
					t.Errorf("Expected 5 zero-score options, got %d", options)
				}
			},
		},
		{
			name:           "missing identity",
			requestBody:    valid,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "missing title",
			requestBody: models.CreatePollRequest{
				Questions: valid.Questions,
			},
			identity:       "alice@x",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "no questions",
			requestBody:    models.CreatePollRequest{Title: "Empty"},
			identity:       "alice@x",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "single option",
			requestBody: models.CreatePollRequest{
				Title:     "Lonely",
				Questions: []models.CreateQuestionReq{{Text: "Only?", Options: []string{"Yes"}}},
			},
			identity:       "alice@x",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "blank question text",
			requestBody: models.CreatePollRequest{
				Title:     "Blank",
				Questions: []models.CreateQuestionReq{{Text: " ", Options: []string{"A", "B"}}},
			},
			identity:       "alice@x",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			identity:       "alice@x",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			var err error

			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatalf("Failed to marshal request body: %v", err)
				}
			}

			req := httptest.NewRequest("POST", "/api/polls", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = asUser(req, tt.identity)
			w := httptest.NewRecorder()

			env.polls.CreatePoll(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated && tt.checkResponse != nil {
				var resp models.CreatePollResponse
				testutil.AssertJSON(t, w, &resp)
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestListPolls(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.polls.ListPolls(w, httptest.NewRequest("GET", "/api/polls", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	if body := bytes.TrimSpace(w.Body.Bytes()); string(body) != "[]" {
		t.Errorf("Expected empty JSON array, got %s", body)
	}

	first := testutil.CreateTestPoll(t, env.db, "alice@x", false)
	second := testutil.CreateTestPoll(t, env.db, "bob@x", true)

	w = httptest.NewRecorder()
	env.polls.ListPolls(w, httptest.NewRequest("GET", "/api/polls", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var polls []models.Poll
	testutil.AssertJSON(t, w, &polls)
	if len(polls) != 2 {
		t.Fatalf("Expected 2 polls, got %d", len(polls))
	}
	// Newest first
	if polls[0].ID != second.ID || polls[1].ID != first.ID {
		t.Errorf("Unexpected order: %d, %d", polls[0].ID, polls[1].ID)
	}
	if !polls[0].Closed || polls[0].CreatorEmail != "bob@x" {
		t.Errorf("Unexpected poll %+v", polls[0])
	}
}

func TestClosePoll(t *testing.T) {
	env := newTestEnv(t)

	open := testutil.CreateTestPoll(t, env.db, "owner@x", false)
	closed := testutil.CreateTestPoll(t, env.db, "owner@x", true)
	openID := strconv.FormatInt(open.ID, 10)

	tests := []struct {
		name           string
		pollID         string
		identity       string
		body           interface{}
		expectedStatus int
	}{
		{"no identity", openID, "", models.PollOwnerRequest{Email: "owner@x"}, http.StatusUnauthorized},
		{"body email differs from bearer", openID, "owner@x", models.PollOwnerRequest{Email: "other@x"}, http.StatusUnauthorized},
		{"not the creator", openID, "intruder@x", models.PollOwnerRequest{Email: "intruder@x"}, http.StatusUnauthorized},
		{"missing poll", "9999", "owner@x", models.PollOwnerRequest{Email: "owner@x"}, http.StatusNotFound},
		{"already closed", strconv.FormatInt(closed.ID, 10), "owner@x", models.PollOwnerRequest{Email: "owner@x"}, http.StatusNotFound},
		{"bad poll id", "abc", "owner@x", models.PollOwnerRequest{Email: "owner@x"}, http.StatusBadRequest},
		{"creator closes", openID, "owner@x", models.PollOwnerRequest{Email: "owner@x"}, http.StatusOK},
		{"second close", openID, "owner@x", models.PollOwnerRequest{Email: "owner@x"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.polls.ClosePoll(w, pollRequest("POST", tt.pollID, "close", tt.body, tt.identity))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	if !testutil.IsClosed(t, env.db, open.ID) {
		t.Error("Expected poll to be closed")
	}
	if n := env.pub.count(models.ReasonClosed); n != 1 {
		t.Errorf("Expected 1 closed event, got %d", n)
	}
}

// TestResetPoll covers: creator resets an open poll, all scores return to
// 0, its votes are gone, and the poll stays open
func TestResetPoll(t *testing.T) {
	env := newTestEnv(t)

	poll := testutil.CreateTestPoll(t, env.db, "owner@x", false)
	q := poll.Questions[0]
	testutil.CastTestVote(t, env.db, q.ID, q.OptionIDs[0], "a@x")
	testutil.CastTestVote(t, env.db, q.ID, q.OptionIDs[1], "b@x")
	pollID := strconv.FormatInt(poll.ID, 10)

	w := httptest.NewRecorder()
	env.polls.ResetPoll(w, pollRequest("POST", pollID, "reset", models.PollOwnerRequest{Email: "intruder@x"}, "intruder@x"))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = httptest.NewRecorder()
	env.polls.ResetPoll(w, pollRequest("POST", pollID, "reset", models.PollOwnerRequest{Email: "owner@x"}, "owner@x"))
	testutil.AssertStatus(t, w, http.StatusOK)

	for _, id := range q.OptionIDs {
		if score, votes := testutil.OptionScore(t, env.db, id); score != 0 || votes != 0 {
			t.Errorf("Option %d: score %d votes %d after reset", id, score, votes)
		}
	}
	if testutil.IsClosed(t, env.db, poll.ID) {
		t.Error("Reset must leave the poll open")
	}
	if n := env.pub.count(models.ReasonReset); n != 1 {
		t.Errorf("Expected 1 reset event, got %d", n)
	}

	// Closed polls are refused under the default policy
	closed := testutil.CreateTestPoll(t, env.db, "owner@x", true)
	w = httptest.NewRecorder()
	env.polls.ResetPoll(w, pollRequest("POST", strconv.FormatInt(closed.ID, 10), "reset", models.PollOwnerRequest{Email: "owner@x"}, "owner@x"))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
