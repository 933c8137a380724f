// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
)

func TestGetPoll(t *testing.T) {
	env := newTestEnv(t)

	poll := testutil.CreateTestPoll(t, env.db, "owner@x", false)
	q2 := testutil.AddTestQuestion(t, env.db, poll.ID, "Second", "X", "Y", "Z")
	q1 := poll.Questions[0]
	testutil.CastTestVote(t, env.db, q1.ID, q1.OptionIDs[1], "a@x")
	testutil.CastTestVote(t, env.db, q1.ID, q1.OptionIDs[1], "b@x")
	testutil.CastTestVote(t, env.db, q2.ID, q2.OptionIDs[2], "a@x")

	tests := []struct {
		name           string
		pollID         string
		expectedStatus int
	}{
		{"existing poll", strconv.FormatInt(poll.ID, 10), http.StatusOK},
		{"missing poll", "9999", http.StatusNotFound},
		{"bad id", "x", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.results.GetPoll(w, pollRequest("GET", tt.pollID, "", nil, ""))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	w := httptest.NewRecorder()
	env.results.GetPoll(w, pollRequest("GET", strconv.FormatInt(poll.ID, 10), "", nil, ""))

	var detail models.PollDetail
	testutil.AssertJSON(t, w, &detail)

	if detail.Poll.ID != poll.ID || detail.Poll.CreatorEmail != "owner@x" || detail.Poll.Closed {
		t.Errorf("Unexpected poll %+v", detail.Poll)
	}
	if len(detail.Questions) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(detail.Questions))
	}
	if got := detail.Questions[0]; got.ID != q1.ID || len(got.Options) != 2 {
		t.Fatalf("Unexpected first question %+v", got)
	}
	if got := detail.Questions[1]; got.ID != q2.ID || len(got.Options) != 3 {
		t.Fatalf("Unexpected second question %+v", got)
	}

	scores := []int64{
		detail.Questions[0].Options[0].Score,
		detail.Questions[0].Options[1].Score,
		detail.Questions[1].Options[0].Score,
		detail.Questions[1].Options[1].Score,
		detail.Questions[1].Options[2].Score,
	}
	want := []int64{0, 2, 0, 0, 1}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("Scores = %v, want %v", scores, want)
			break
		}
	}
}
