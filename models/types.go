package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ChangeReason says why a poll's state changed
type ChangeReason string

const (
	ReasonVoteCast ChangeReason = "vote_cast"
	ReasonClosed   ChangeReason = "closed"
	ReasonReset    ChangeReason = "reset"
)

// PollChangedEvent is never persisted; it describes something that already
// committed in the store.
type PollChangedEvent struct {
	PollID int64        `json:"poll_id"`
	Reason ChangeReason `json:"reason"`
}

// ID accepts either a JSON number or a numeric string.
// Older clients send option ids as strings.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("id must be a number or numeric string")
		}
		n = json.Number(s)
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", n.String())
	}
	*id = ID(v)
	return nil
}

// Request types

type CreatePollRequest struct {
	Title     string              `json:"title"`
	Questions []CreateQuestionReq `json:"questions"`
}

type CreateQuestionReq struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type VoteRequest struct {
	Email    string `json:"email"`
	OptionID ID     `json:"option_id"`
}

// Used by both close and reset
type PollOwnerRequest struct {
	Email string `json:"email"`
}

// Response types

type CreatePollResponse struct {
	PollID int64 `json:"poll_id"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AttemptedResponse struct {
	PollID      int64   `json:"poll_id"`
	QuestionIDs []int64 `json:"question_ids"`
}

// Domain types

type Poll struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	CreatorEmail string    `json:"creator_email"`
	Closed       bool      `json:"closed"`
	CreatedAt    time.Time `json:"created_at"`
}

type Question struct {
	ID      int64        `json:"id"`
	PollID  int64        `json:"poll_id"`
	Text    string       `json:"text"`
	Options []PollOption `json:"options"`
}

// Score is a cached count of votes for the option
type PollOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	Score      int64  `json:"score"`
}

type Vote struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question_id"`
	OptionID   int64     `json:"option_id"`
	VoterEmail string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type PollDetail struct {
	Poll      Poll       `json:"poll"`
	Questions []Question `json:"questions"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
