package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
)

type reviewRepository struct {
	db *reviewTable
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db.review}
}

func (repo *reviewRepository) ReplaceReviews(_ context.Context, sessionID int64, userName string, reviews []review.Review, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	kept := make([]review.Review, 0, len(repo.db.table)+len(reviews))
	for _, rv := range repo.db.table {
		if rv.SessionID != sessionID || rv.UserName != userName {
			kept = append(kept, rv)
		}
	}
	repo.db.table = append(kept, reviews...)
	return nil
}

func (repo *reviewRepository) QueryReviews(_ context.Context, sessionID int64, userName string, _ ...core.DBExecutor) ([]review.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviews := make([]review.Review, 0)
	for _, rv := range repo.db.table {
		if rv.SessionID == sessionID && (userName == "" || rv.UserName == userName) {
			reviews = append(reviews, rv)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		if reviews[i].UserName != reviews[j].UserName {
			return reviews[i].UserName < reviews[j].UserName
		}
		return reviews[i].PeerName < reviews[j].PeerName
	})
	return reviews, nil
}

func (repo *reviewRepository) DeleteReviews(_ context.Context, sessionID int64, _ ...core.DBExecutor) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	kept := make([]review.Review, 0, len(repo.db.table))
	for _, rv := range repo.db.table {
		if rv.SessionID == sessionID {
			n++
			continue
		}
		kept = append(kept, rv)
	}
	repo.db.table = kept
	return n, nil
}
