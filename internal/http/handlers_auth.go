package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := core.User{
		Name:         sanitizeInput(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Phone:        sanitizeInput(req.Phone),
		JoinedDate:   core.Date{Time: time.Now().UTC()},
	}
	if err := user.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			writeError(w, http.StatusConflict, "an account with this email already exists")
			return
		}
		s.logger.ErrorContext(r.Context(), "User creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.sessions.Create(r.Context(), user.Email, s.sessionTTL)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Session creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, Name: user.Name, Email: user.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Same answer as a wrong password, no account enumeration.
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.logger.ErrorContext(r.Context(), "User lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.sessions.Create(r.Context(), user.Email, s.sessionTTL)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Session creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, Name: user.Name, Email: user.Email})
}

type profileResponse struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	JoinedDate string `json:"joinedDate"`
	Avatar     string `json:"avatar,omitempty"`
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
}

// handleProfile serves the identity record behind the profile page. Email
// and joined date are read-only; name, phone and avatar can change.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req updateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		user, err := s.users.UserByEmail(r.Context(), owner)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "User lookup failed", "owner", owner, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if req.Name != nil {
			user.Name = sanitizeInput(*req.Name)
		}
		if req.Phone != nil {
			user.Phone = sanitizeInput(*req.Phone)
		}
		if req.Avatar != nil {
			user.Avatar = sanitizeInput(*req.Avatar)
		}
		if err := user.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := s.users.UpdateUser(r.Context(), user); err != nil {
			s.logger.ErrorContext(r.Context(), "Profile update failed", "owner", owner, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
		return
	}

	user, err := s.users.UserByEmail(r.Context(), owner)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "User lookup failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Name:       user.Name,
		Email:      user.Email,
		Phone:      user.Phone,
		JoinedDate: user.JoinedDate.String(),
		Avatar:     user.Avatar,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if token := bearerToken(r); token != "" {
		if err := s.sessions.Delete(r.Context(), token); err != nil {
			s.logger.ErrorContext(r.Context(), "Session delete failed", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
