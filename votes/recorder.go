// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votes

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
)

const publishTimeout = 2 * time.Second

// Publisher receives an event after the change it describes has committed.
// realtime.Notifier satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev models.PollChangedEvent) error
}

// Recorder applies votes, closes and resets against the store.
type Recorder struct {
	db               *sql.DB
	pub              Publisher
	allowResetClosed bool

	// row locks on the poll; empty on SQLite where writers are serialized
	shareLock  string
	updateLock string
}

func NewRecorder(conn *sql.DB, dbType string, pub Publisher, allowResetClosed bool) *Recorder {
	r := &Recorder{db: conn, pub: pub, allowResetClosed: allowResetClosed}
	if dbType == db.TypePostgres {
		r.shareLock = " FOR SHARE"
		r.updateLock = " FOR UPDATE"
	}
	return r
}

// CastVote records voter's answer for the question owning optionID.
// The vote insert and the score increment commit together; a second vote by
// the same voter on the same question fails with ErrDuplicateVote.
func (r *Recorder) CastVote(ctx context.Context, pollID, optionID int64, voter string) (models.Vote, error) {
	// A client hanging up must not abort the transaction midway
	ctx = context.WithoutCancel(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, storeErr("begin", err)
	}
	defer tx.Rollback()

	var closed bool
	err = tx.QueryRowContext(ctx, `SELECT closed FROM polls WHERE id = $1`+r.shareLock, pollID).Scan(&closed)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, ErrPollNotFound
	}
	if err != nil {
		return models.Vote{}, storeErr("query poll", err)
	}
	if closed {
		return models.Vote{}, ErrPollClosed
	}

	vote := models.Vote{OptionID: optionID, VoterEmail: voter, CreatedAt: time.Now().UTC()}
	err = tx.QueryRowContext(ctx, `
		SELECT o.question_id
		FROM poll_options o
		JOIN questions q ON q.id = o.question_id
		WHERE o.id = $1 AND q.poll_id = $2
	`, optionID, pollID).Scan(&vote.QuestionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, ErrInvalidOption
	}
	if err != nil {
		return models.Vote{}, storeErr("query option", err)
	}

	// UNIQUE(question_id, voter_email) decides concurrent duplicates
	err = tx.QueryRowContext(ctx, `
		INSERT INTO votes (question_id, option_id, voter_email, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, vote.QuestionID, optionID, voter, vote.CreatedAt).Scan(&vote.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Vote{}, ErrDuplicateVote
		}
		return models.Vote{}, storeErr("insert vote", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE poll_options SET score = score + 1 WHERE id = $1`, optionID); err != nil {
		return models.Vote{}, storeErr("increment score", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return models.Vote{}, ErrDuplicateVote
		}
		return models.Vote{}, storeErr("commit", err)
	}

	r.publish(ctx, pollID, models.ReasonVoteCast)
	return vote, nil
}

// ClosePoll marks the poll closed. Closing is one-way.
func (r *Recorder) ClosePoll(ctx context.Context, pollID int64, requester string) error {
	ctx = context.WithoutCancel(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer tx.Rollback()

	if err := r.checkOwner(ctx, tx, pollID, requester, false); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE polls SET closed = TRUE WHERE id = $1`, pollID); err != nil {
		return storeErr("close poll", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}

	r.publish(ctx, pollID, models.ReasonClosed)
	return nil
}

// ResetPoll deletes every vote under the poll and zeroes its option scores.
// The closed flag is left as it was. Closed polls are only reset when the
// recorder was built with allowResetClosed.
func (r *Recorder) ResetPoll(ctx context.Context, pollID int64, requester string) error {
	ctx = context.WithoutCancel(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer tx.Rollback()

	if err := r.checkOwner(ctx, tx, pollID, requester, r.allowResetClosed); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM votes
		WHERE question_id IN (SELECT id FROM questions WHERE poll_id = $1)
	`, pollID); err != nil {
		return storeErr("delete votes", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE poll_options SET score = 0
		WHERE question_id IN (SELECT id FROM questions WHERE poll_id = $1)
	`, pollID); err != nil {
		return storeErr("zero scores", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}

	r.publish(ctx, pollID, models.ReasonReset)
	return nil
}

// checkOwner locks the poll row and applies the open/creator checks shared
// by close and reset. Missing and closed polls are reported before
// ownership.
func (r *Recorder) checkOwner(ctx context.Context, tx *sql.Tx, pollID int64, requester string, allowClosed bool) error {
	var creator string
	var closed bool
	err := tx.QueryRowContext(ctx, `SELECT creator_email, closed FROM polls WHERE id = $1`+r.updateLock, pollID).Scan(&creator, &closed)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPollNotFound
	}
	if err != nil {
		return storeErr("query poll", err)
	}
	if closed && !allowClosed {
		return ErrPollClosed
	}
	if creator != requester {
		return ErrForbidden
	}
	return nil
}

// publish never fails the operation; the change is already committed
func (r *Recorder) publish(ctx context.Context, pollID int64, reason models.ChangeReason) {
	if r.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.pub.Publish(ctx, models.PollChangedEvent{PollID: pollID, Reason: reason}); err != nil {
		slog.Warn("failed to publish poll change", "poll_id", pollID, "reason", reason, "error", err)
	}
}
