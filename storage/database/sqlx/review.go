package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
)

const (
	reviewColumns = "session_id, user_name, peer_name, contrib_rate, is_fit, description, submitted_at"

	deleteStaleReviewsQuery = `DELETE FROM reviews WHERE session_id = $1 AND user_name = $2 AND peer_name <> ALL($3)`
	upsertReviewsQuery      = `INSERT INTO reviews (` + reviewColumns + `)
VALUES (:session_id, :user_name, :peer_name, :contrib_rate, :is_fit, :description, :submitted_at)
ON CONFLICT (session_id, user_name, peer_name) DO UPDATE SET
contrib_rate = EXCLUDED.contrib_rate, is_fit = EXCLUDED.is_fit,
description = EXCLUDED.description, submitted_at = EXCLUDED.submitted_at`
	queryReviewsQuery  = `SELECT ` + reviewColumns + ` FROM reviews WHERE session_id = $1 AND ($2 = '' OR user_name = $2) ORDER BY user_name, peer_name`
	deleteReviewsQuery = `DELETE FROM reviews WHERE session_id = $1`
)

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *sqlx.DB) review.Repository {
	return &reviewRepository{db: db}
}

// ReplaceReviews upserts the given reviews and deletes the other reviews of userName in the session.
// It must run within a transaction to be atomic; concurrent calls for the same user do not conflict.
func (repo *reviewRepository) ReplaceReviews(ctx context.Context, sessionID int64, userName string, reviews []review.Review, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	peers := make([]string, 0, len(reviews))
	for _, rv := range reviews {
		peers = append(peers, rv.PeerName)
	}
	if _, err := e.ExecContext(ctx, deleteStaleReviewsQuery, sessionID, userName, pq.Array(peers)); err != nil {
		return errors.Wrap(err, "deleting stale reviews")
	}
	if len(reviews) == 0 {
		return nil
	}
	if _, err := sqlx.NamedExecContext(ctx, e, upsertReviewsQuery, reviews); err != nil {
		return errors.Wrap(err, "upserting reviews")
	}
	return nil
}

func (repo *reviewRepository) QueryReviews(ctx context.Context, sessionID int64, userName string, exec ...core.DBExecutor) ([]review.Review, error) {
	reviews := make([]review.Review, 0)
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &reviews, queryReviewsQuery, sessionID, userName); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	return reviews, nil
}

func (repo *reviewRepository) DeleteReviews(ctx context.Context, sessionID int64, exec ...core.DBExecutor) (int64, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx, deleteReviewsQuery, sessionID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting reviews")
	}
	return rowsAffected(res), nil
}
