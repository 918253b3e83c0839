package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	domain "accounts/backend/internal/domain/auth"
	authusecase "accounts/backend/internal/usecase/auth"
	userusecase "accounts/backend/internal/usecase/user"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	User      *domain.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !decodeBody(w, r, &payload, domain.ErrMissingCredentials) {
		s.metrics.LoginAttempt("bad_request")
		return
	}

	token, user, err := s.authService.Login(r.Context(), domain.Credentials{
		Username: payload.Username,
		Password: payload.Password,
	})
	if err != nil {
		e, _ := classify(err)
		s.metrics.LoginAttempt(e.code)
		writeError(w, r, err)
		return
	}
	s.metrics.LoginAttempt("success")

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token.Value,
		User:      user,
		ExpiresAt: token.ExpiresAt,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := s.userService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload createUserRequest
	if !decodeBody(w, r, &payload, domain.ErrMissingFields) {
		return
	}

	user, err := s.userService.Create(r.Context(), userusecase.CreateInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizeTarget(w, r)
	if !ok {
		return
	}

	var body json.RawMessage
	if !decodeBody(w, r, &body, domain.ErrEmptyUpdate) {
		return
	}
	// Only an empty object is rejected; unknown keys leave the user unchanged.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeAPIError(w, errInvalidJSON)
		return
	}
	if len(fields) == 0 {
		writeError(w, r, domain.ErrEmptyUpdate)
		return
	}
	var payload updateUserRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		writeAPIError(w, errInvalidJSON)
		return
	}

	user, err := s.userService.Update(r.Context(), id, userusecase.UpdateInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizeTarget(w, r)
	if !ok {
		return
	}

	if err := s.userService.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}

// authorizeTarget parses the {id} parameter and applies the self-only policy.
func (s *Server) authorizeTarget(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := userIDParam(w, r)
	if !ok {
		return 0, false
	}

	ac, ok := AuthContextFrom(r.Context())
	if !ok {
		writeError(w, r, domain.ErrMissingToken)
		return 0, false
	}
	if err := authusecase.AuthorizeSelf(ac, id); err != nil {
		writeError(w, r, err)
		return 0, false
	}
	return id, true
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeAPIError(w, errInvalidUserID)
		return 0, false
	}
	return id, true
}

// decodeBody reads a JSON object into dst. An empty body is reported as
// emptyErr; malformed JSON as a generic input error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, emptyErr error) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, r, emptyErr)
		} else {
			writeAPIError(w, errInvalidJSON)
		}
		return false
	}
	return true
}
