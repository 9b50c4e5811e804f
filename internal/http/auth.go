package http

import (
	"context"
	"errors"
	"net/http"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

const sessionCookieName = "session"

type sessionKey struct{}

// requireSession resolves the session cookie and redirects to /login when it
// is missing, unknown or expired.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookieName)
		if err != nil {
			RedirectTo("/login").Write(w)
			return
		}
		sess, err := s.identity.Authenticate(r.Context(), c.Value)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) && !errors.Is(err, core.ErrSessionExpired) {
				s.logger.ErrorContext(r.Context(), "Session lookup failed", "error", err)
			}
			s.clearSessionCookie(w)
			RedirectTo("/login").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next(w, r.WithContext(ctx))
	})
}

// currentSession returns the session resolved by requireSession.
func currentSession(ctx context.Context) core.Session {
	sess, _ := ctx.Value(sessionKey{}).(core.Session)
	return sess
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", page{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	u, err := s.identity.Register(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	switch {
	case errors.Is(err, core.ErrDuplicateUsername):
		TextResponse(http.StatusConflict, "Username already exists").Write(w)
		return
	case core.IsValidation(err):
		BadRequestError(err.Error()).Write(w)
		return
	case err != nil:
		s.logger.LogError(r.Context(), "Registration failed", err, applog.OpRegister)
		InternalServerError().Write(w)
		return
	}
	s.metrics.registrations.Add(1)
	s.logger.InfoContext(r.Context(), "User registered", applog.FieldUserID, u.ID)
	RedirectTo("/login").Write(w)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", page{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess, err := s.identity.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if errors.Is(err, core.ErrInvalidCredentials) {
		s.metrics.failedLogins.Add(1)
		TextResponse(http.StatusUnauthorized, "Invalid login").Write(w)
		return
	}
	if err != nil {
		s.logger.LogError(r.Context(), "Login failed", err, applog.OpLogin)
		InternalServerError().Write(w)
		return
	}
	s.metrics.logins.Add(1)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	RedirectTo("/").Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.identity.Logout(r.Context(), c.Value); err != nil {
			s.logger.WarnContext(r.Context(), "Failed to delete session on logout", "error", err)
		}
	}
	s.clearSessionCookie(w)
	RedirectTo("/login").Write(w)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
