package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shosatojp/kakeibo-back/internal/core"
	applog "github.com/shosatojp/kakeibo-back/internal/log"
)

type tokenResponse struct {
	SessionID string `json:"sessionId"`
	ExpiresOn int64  `json:"expiresOn"` // unix milliseconds
}

// handleRegister creates an account from userName and password query
// parameters. Duplicate names and policy violations both come back as 400.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	userName := sanitizeInput(r.URL.Query().Get("userName"))
	password := r.URL.Query().Get("password")
	if userName == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	userID, err := s.auth.Register(r.Context(), userName, password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
		InfoContext(r.Context(), "User registered", applog.FieldUserID, userID, applog.FieldUserName, userName)
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	userName := r.URL.Query().Get("userName")
	password := r.URL.Query().Get("password")
	if userName == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	grant, err := s.sessions.Authenticate(r.Context(), userName, password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		SessionID: grant.SessionID,
		ExpiresOn: grant.ExpiresOn.UnixMilli(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID, userName := sessionIdentity(r)
	ok, err := s.sessions.Revoke(r.Context(), sessionID, userName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleRefresh replaces the presented session with a fresh token. The old
// token is dead whether or not the caller sees the response.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID, userName := sessionIdentity(r)
	grant, err := s.sessions.Rotate(r.Context(), sessionID, userName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		SessionID: grant.SessionID,
		ExpiresOn: grant.ExpiresOn.UnixMilli(),
	})
}

// handleUserName resolves a user id to its name. Unknown ids yield a null
// name rather than an error. Names never change once registered, so resolved
// ids are cached; misses are not, a later registration may fill them.
func (s *Server) handleUserName(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("userId")), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	var payload struct {
		UserName *string `json:"userName"`
	}

	key := strconv.FormatInt(userID, 10)
	if name, ok := s.userNames.Get(key); ok {
		payload.UserName = &name
		writeJSON(w, http.StatusOK, payload)
		return
	}

	name, err := s.auth.LookupUserName(r.Context(), userID)
	switch {
	case err == nil:
		s.userNames.Set(key, name)
		payload.UserName = &name
	case !errors.Is(err, core.ErrNotFound):
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleUserNameAvailable(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	available, err := s.auth.UserNameAvailable(r.Context(), r.URL.Query().Get("userName"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (s *Server) handlePasswordAvailable(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ok := s.auth.PasswordAcceptable(r.URL.Query().Get("password"))
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}
