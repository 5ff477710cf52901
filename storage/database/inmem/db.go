package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/core/session"
	"github.com/trezcool/peereval/core/user"
)

type (
	// DB is an in-memory store for DEV & tests.
	// WithinTx serializes units of work but does not roll them back on error.
	DB struct {
		txMu    sync.Mutex
		user    *userTable
		session *sessionTable
		review  *reviewTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	sessionTable struct {
		mutex   sync.RWMutex
		pkCount int64
		table   map[int64]*session.Session
		members []session.Member
	}

	reviewTable struct {
		mutex sync.RWMutex
		table []review.Review
	}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		session: &sessionTable{table: make(map[int64]*session.Session)},
		review:  &reviewTable{},
	}
}

func (db *DB) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return fn(nil)
}
