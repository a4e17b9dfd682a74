package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

// Session identity travels in these request headers.
const (
	headerSessionID = "SessionId"
	headerUserName  = "UserName"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps service errors onto the API's status codes. Auth failures
// stay 400 and carry no detail about which credential half was wrong.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrAuthFailed), errors.Is(err, core.ErrConflict):
		writeJSON(w, http.StatusBadRequest, nil)
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, nil)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, nil)
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// sessionIdentity pulls the session token and user name out of the headers.
func sessionIdentity(r *http.Request) (sessionID, userName string) {
	return r.Header.Get(headerSessionID), r.Header.Get(headerUserName)
}

// authenticate validates the request's session and resolves its owner.
// A nil user means the response has already been written.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) *core.User {
	sessionID, userName := sessionIdentity(r)
	if !s.sessions.Validate(r.Context(), sessionID, userName) {
		writeJSON(w, http.StatusBadRequest, nil)
		return nil
	}
	user, err := s.auth.FindByUserName(r.Context(), userName)
	if err != nil {
		writeError(w, r, err)
		return nil
	}
	return user
}

// parseYearMonth reads the year and month query parameters.
func parseYearMonth(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("year")))
	if err != nil {
		return 0, 0, core.ErrValidation
	}
	month, err = strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, core.ErrValidation
	}
	return year, month, nil
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// suspicionFilter logs requests matching known attack patterns. They are
// still served; the signal feeds the metrics and the request log.
func (s *Server) suspicionFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}
