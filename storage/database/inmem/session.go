package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess session.Session, _ ...core.DBExecutor) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.pkCount++
	sess.ID = repo.db.pkCount
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *sessionRepository) QuerySessions(_ context.Context, limit int, _ ...core.DBExecutor) ([]session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := make([]session.Session, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		sessions = append(sessions, *s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id int64, _ ...core.DBExecutor) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) UpdateSession(_ context.Context, sess session.Session, _ ...core.DBExecutor) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[sess.ID]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	sess.CreatedAt = orig.CreatedAt
	sess.CreatedBy = orig.CreatedBy
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *sessionRepository) DeleteSession(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return session.ErrNotFound
	}
	delete(repo.db.table, id)
	repo.db.members = repo.db.keepMembers(func(m session.Member) bool { return m.SessionID != id })
	return nil
}

func (repo *sessionRepository) DeleteMembers(_ context.Context, sessionID int64, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.members = repo.db.keepMembers(func(m session.Member) bool { return m.SessionID != sessionID })
	return nil
}

func (repo *sessionRepository) InsertMembers(_ context.Context, members []session.Member, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, m := range members {
		for _, existing := range repo.db.members {
			if existing.SessionID == m.SessionID && existing.UserName == m.UserName {
				return errors.Errorf("member %q already on a team of session %d", m.UserName, m.SessionID)
			}
		}
		repo.db.members = append(repo.db.members, m)
	}
	return nil
}

func (repo *sessionRepository) QueryMembers(_ context.Context, sessionID int64, _ ...core.DBExecutor) ([]session.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	members := make([]session.Member, 0)
	for _, m := range repo.db.members {
		if m.SessionID == sessionID {
			members = append(members, m)
		}
	}
	sortMembers(members)
	return members, nil
}

func (repo *sessionRepository) QueryActiveSessions(_ context.Context, userName string, _ ...core.DBExecutor) ([]session.ActiveSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	active := make([]session.ActiveSession, 0)
	for _, m := range repo.db.members {
		s, ok := repo.db.table[m.SessionID]
		if !ok || m.UserName != userName || !s.IsOpen() {
			continue
		}
		active = append(active, session.ActiveSession{
			SessionID:          s.ID,
			SessionName:        s.Name,
			SessionDescription: s.Description,
			Status:             s.Status,
			SessionCreatedAt:   s.CreatedAt,
			TeamName:           m.TeamName,
			UserName:           m.UserName,
		})
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].SessionCreatedAt.Equal(active[j].SessionCreatedAt) {
			return active[i].SessionCreatedAt.After(active[j].SessionCreatedAt)
		}
		return active[i].SessionID > active[j].SessionID
	})
	return active, nil
}

func (t *sessionTable) keepMembers(keep func(session.Member) bool) []session.Member {
	kept := t.members[:0]
	for _, m := range t.members {
		if keep(m) {
			kept = append(kept, m)
		}
	}
	return kept
}

func sortMembers(members []session.Member) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].TeamName != members[j].TeamName {
			return members[i].TeamName < members[j].TeamName
		}
		return members[i].UserName < members[j].UserName
	})
}
