package api

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── Authentication ─────────────────────────────────────────────────────────

type ctxKey int

const userKey ctxKey = iota

// userFrom returns the authenticated user stored by requireSession.
func userFrom(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userKey).(*domain.User)
	return u
}

// requireSession authenticates the request from its bearer token and
// stores the user in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.db.UserBySession(r.Context(), token)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

var usernameRe = regexp.MustCompile(`^[\w-]+$`)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates a user, seeds the default categories, and
// opens a session.
// POST /api/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !usernameRe.MatchString(req.Username) || len(req.Username) > 150 {
		writeError(w, http.StatusBadRequest, "username may contain only letters, digits, underscore and hyphen")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hashing password")
		return
	}

	user, err := s.db.CreateUser(r.Context(), req.Username, string(hash))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.db.SeedDefaultCategories(r.Context(), user.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := s.openSession(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// handleLogin verifies credentials and opens a session.
// POST /api/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeDomainError(w, domain.ErrInvalidCredentials)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeDomainError(w, domain.ErrInvalidCredentials)
		return
	}

	token, err := s.openSession(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// handleLogout deletes the current session.
// POST /api/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := s.db.DeleteSession(r.Context(), token); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) openSession(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.db.CreateSession(ctx, token, userID, time.Now().Add(s.sessionTTL)); err != nil {
		return "", err
	}
	return token, nil
}
