package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"expenses/internal/core"
	"expenses/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLen = 64

// IdentityService handles accounts and server-side sessions.
type IdentityService struct {
	users    storage.UserStore
	sessions storage.SessionStore
	ttl      time.Duration

	// Overridable in tests.
	now        func() time.Time
	bcryptCost int
}

func NewIdentityService(users storage.UserStore, sessions storage.SessionStore, ttl time.Duration) *IdentityService {
	return &IdentityService{
		users:      users,
		sessions:   sessions,
		ttl:        ttl,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// normalizeUsername trims and drops control characters so register and
// login resolve the same stored name.
func normalizeUsername(username string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, username))
}

// passwordDigest feeds bcrypt a fixed-length input. bcrypt rejects anything
// over 72 bytes.
func passwordDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// Register creates an account. The password is stored as a bcrypt hash.
func (s *IdentityService) Register(ctx context.Context, username, password string) (core.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return core.User{}, &core.ValidationError{Field: "username", Err: core.ErrEmptyUsername}
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return core.User{}, &core.ValidationError{Field: "username", Err: core.ErrUsernameTooLong}
	}
	if password == "" {
		return core.User{}, &core.ValidationError{Field: "password", Err: core.ErrEmptyPassword}
	}

	hash, err := bcrypt.GenerateFromPassword(passwordDigest(password), s.bcryptCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, core.ErrDuplicateUsername) {
			return core.User{}, err
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login verifies credentials and opens a session. Unknown users and wrong
// passwords both yield core.ErrInvalidCredentials.
func (s *IdentityService) Login(ctx context.Context, username, password string) (core.Session, error) {
	u, err := s.users.GetUserByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, core.ErrNotFound) {
		return core.Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), passwordDigest(password)); err != nil {
		return core.Session{}, core.ErrInvalidCredentials
	}

	now := s.now()
	sess := core.Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		Username:  u.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Logout ends the session. Unknown tokens are not an error.
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}

// Authenticate resolves a session token. Expired sessions are removed and
// reported as core.ErrSessionExpired; unknown tokens as core.ErrNotFound.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (core.Session, error) {
	if token == "" {
		return core.Session{}, core.ErrNotFound
	}
	sess, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return core.Session{}, err
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			slog.WarnContext(ctx, "Failed to delete expired session", "error", err)
		}
		return core.Session{}, core.ErrSessionExpired
	}
	return sess, nil
}

// SweepExpired deletes every expired session and returns how many went.
func (s *IdentityService) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *IdentityService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "Expired sessions removed", "count", n)
			}
		}
	}
}
