// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
)

// TestJWTSecret signs every token issued by the helpers below
const TestJWTSecret = "test-jwt-secret"

// SetupTestDB creates a fresh SQLite database with the full schema.
// Each test gets its own file, removed with the test's temp dir.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := "file:" + filepath.Join(t.TempDir(), "livepoll_test.db")
	conn, err := db.Open(db.TypeSQLite, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              3318,
		DatabaseURL:       "file::memory:",
		DatabaseType:      db.TypeSQLite,
		JWTSecret:         TestJWTSecret,
		SessionBuffer:     16,
		EvictSlowSessions: true,
		WriteTimeout:      time.Second,
	}
}

// TestPoll holds the ids created by CreateTestPoll
type TestPoll struct {
	ID        int64
	Questions []TestQuestion
}

type TestQuestion struct {
	ID        int64
	OptionIDs []int64
}

// CreateTestPoll creates a poll owned by creator with one question and
// options "A" and "B"
func CreateTestPoll(t *testing.T, conn *sql.DB, creator string, closed bool) TestPoll {
	t.Helper()

	var poll TestPoll
	err := conn.QueryRow(`
		INSERT INTO polls (title, creator_email, closed, created_at)
		VALUES ('Test Poll', $1, $2, $3)
		RETURNING id
	`, creator, closed, time.Now()).Scan(&poll.ID)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	poll.Questions = append(poll.Questions, AddTestQuestion(t, conn, poll.ID, "Pick one", "A", "B"))
	return poll
}

// AddTestQuestion adds a question with the given options to a poll
func AddTestQuestion(t *testing.T, conn *sql.DB, pollID int64, text string, options ...string) TestQuestion {
	t.Helper()

	var q TestQuestion
	err := conn.QueryRow(`
		INSERT INTO questions (poll_id, text) VALUES ($1, $2) RETURNING id
	`, pollID, text).Scan(&q.ID)
	if err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}

	for _, label := range options {
		var optionID int64
		err := conn.QueryRow(`
			INSERT INTO poll_options (question_id, text) VALUES ($1, $2) RETURNING id
		`, q.ID, label).Scan(&optionID)
		if err != nil {
			t.Fatalf("Failed to create test option: %v", err)
		}
		q.OptionIDs = append(q.OptionIDs, optionID)
	}

	return q
}

// CastTestVote writes a vote and bumps the option score directly,
// bypassing the recorder
func CastTestVote(t *testing.T, conn *sql.DB, questionID, optionID int64, voter string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO votes (question_id, option_id, voter_email, created_at)
		VALUES ($1, $2, $3, $4)
	`, questionID, optionID, voter, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
	if _, err := conn.Exec(`UPDATE poll_options SET score = score + 1 WHERE id = $1`, optionID); err != nil {
		t.Fatalf("Failed to bump test score: %v", err)
	}
}

// OptionScore returns the cached score and the actual vote count for an option
func OptionScore(t *testing.T, conn *sql.DB, optionID int64) (score, votes int64) {
	t.Helper()

	err := conn.QueryRow(`
		SELECT o.score, (SELECT COUNT(*) FROM votes v WHERE v.option_id = o.id)
		FROM poll_options o WHERE o.id = $1
	`, optionID).Scan(&score, &votes)
	if err != nil {
		t.Fatalf("Failed to query option score: %v", err)
	}
	return score, votes
}

// IsClosed reports the poll's closed flag
func IsClosed(t *testing.T, conn *sql.DB, pollID int64) bool {
	t.Helper()

	var closed bool
	if err := conn.QueryRow(`SELECT closed FROM polls WHERE id = $1`, pollID).Scan(&closed); err != nil {
		t.Fatalf("Failed to query poll: %v", err)
	}
	return closed
}

// BearerToken issues a token for identity signed with TestJWTSecret
func BearerToken(t *testing.T, identity string) string {
	t.Helper()

	token, err := auth.NewVerifier(TestJWTSecret).IssueToken(identity, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

// AuthHeader returns request headers carrying a bearer token for identity
func AuthHeader(t *testing.T, identity string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + BearerToken(t, identity)}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
