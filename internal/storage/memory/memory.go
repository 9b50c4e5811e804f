// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	nextUser int64
	nextExp  int64
	nextLim  int64
	users    map[string]core.User
	sessions map[string]core.Session
	items    []core.Expense
	limits   map[limitKey]core.CategoryLimit
}

type limitKey struct {
	userID   int64
	category string
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    map[string]core.User{},
		sessions: map[string]core.Session{},
		limits:   map[limitKey]core.CategoryLimit{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return core.User{}, core.ErrDuplicateUsername
	}
	s.nextUser++
	u := core.User{ID: s.nextUser, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	s.users[username] = u
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateSession(_ context.Context, sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, token string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListExpenses(_ context.Context, f core.Filter, order core.Order) ([]core.Expense, error) {
	s.mu.Lock()
	out := s.matching(f)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if order == core.DateAsc {
			if !a.Date.Equal(b.Date.Time) {
				return a.Date.Before(b.Date.Time)
			}
			return a.ID < b.ID
		}
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (s *Store) SumExpenses(_ context.Context, f core.Filter) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Total(s.matching(f)), nil
}

func (s *Store) GetExpense(_ context.Context, userID, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(userID, id)
	if i < 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return s.items[i], nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExp++
	now := time.Now()
	e.ID = s.nextExp
	e.CreatedAt, e.UpdatedAt = now, now
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(e.UserID, e.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	e.CreatedAt = s.items[i].CreatedAt
	e.UpdatedAt = time.Now()
	s.items[i] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(userID, id)
	if i < 0 {
		return false, nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true, nil
}

func (s *Store) SumByCategory(_ context.Context, userID int64) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.SumByCategory(s.matching(core.NewFilter(userID))), nil
}

func (s *Store) SumByMonth(_ context.Context, userID int64) ([]core.MonthAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.SumByMonth(s.matching(core.NewFilter(userID))), nil
}

func (s *Store) GetLimit(_ context.Context, userID int64, category string) (core.CategoryLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limits[limitKey{userID, category}]
	if !ok {
		return core.CategoryLimit{}, core.ErrNotFound
	}
	return l, nil
}

func (s *Store) UpsertLimit(_ context.Context, l core.CategoryLimit) (core.CategoryLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := limitKey{l.UserID, l.Category}
	if existing, ok := s.limits[k]; ok {
		l.ID = existing.ID
	} else {
		s.nextLim++
		l.ID = s.nextLim
	}
	s.limits[k] = l
	return l, nil
}

func (s *Store) ListLimits(_ context.Context, userID int64) ([]core.CategoryLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CategoryLimit
	for k, l := range s.limits {
		if k.userID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// matching copies the expenses selected by f. Caller holds s.mu.
func (s *Store) matching(f core.Filter) []core.Expense {
	var out []core.Expense
	for _, e := range s.items {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) index(userID, id int64) int {
	for i, e := range s.items {
		if e.ID == id && e.UserID == userID {
			return i
		}
	}
	return -1
}
