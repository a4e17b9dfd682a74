package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shosatojp/kakeibo-back/internal/core"
	applog "github.com/shosatojp/kakeibo-back/internal/log"
	"github.com/shosatojp/kakeibo-back/internal/services"
)

// entryJSON is the wire shape of a ledger entry. Dates travel as Unix
// milliseconds.
type entryJSON struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Title       string `json:"title"`
	Price       int64  `json:"price"`
	Date        int64  `json:"date"`
	CreatedOn   int64  `json:"createdOn"`
	Category    string `json:"category"`
	CreatedBy   int64  `json:"createdBy"`
	Description string `json:"description"`
}

func toEntryJSON(e core.Entry) entryJSON {
	return entryJSON{
		ID:          e.ID,
		UserID:      e.UserID,
		Title:       e.Title,
		Price:       e.Price,
		Date:        e.Date.Millis(),
		CreatedOn:   e.CreatedOn.UnixMilli(),
		Category:    e.Category,
		CreatedBy:   e.CreatedBy,
		Description: e.Description,
	}
}

type newEntryRequest struct {
	Title       string `json:"title"`
	Price       int64  `json:"price"`
	Date        int64  `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// handleEntry dispatches the ledger entry collection endpoint by method.
func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateEntry(w, r)
	case http.MethodGet:
		s.handleListEntries(w, r)
	case http.MethodDelete:
		s.handleDeleteEntry(w, r)
	default:
		w.Header().Set("Allow", "POST, GET, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	user := s.authenticate(w, r)
	if user == nil {
		return
	}

	var req newEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	in := services.NewEntry{
		Title:       sanitizeInput(req.Title),
		Price:       req.Price,
		Date:        core.DateFromMillis(req.Date),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
	}
	id, err := s.ledger.AddEntry(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogEntryCreated(r.Context(), id, in.Title, in.Price, in.Category)

	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

// handleListEntries returns the owner's entries for the requested month. The
// window is half-open: the first instant of the month up to, excluding, the
// first instant of the next.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	user := s.authenticate(w, r)
	if user == nil {
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	entries, err := s.ledger.ListMonth(r.Context(), user.ID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		payload = append(payload, toEntryJSON(e))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	user := s.authenticate(w, r)
	if user == nil {
		return
	}

	entryID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	deleted, err := s.ledger.DeleteEntry(r.Context(), user.ID, entryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		slog.InfoContext(r.Context(), "Delete matched no entry", "entry_id", entryID, "user_id", user.ID)
	} else {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogEntryDeleted(r.Context(), entryID, user.ID)
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	user := s.authenticate(w, r)
	if user == nil {
		return
	}

	categories, err := s.ledger.Categories(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

type categorySumJSON struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
	Sum      int64  `json:"sum"`
}

type monthSummaryJSON struct {
	Year          int                        `json:"year"`
	Month         int                        `json:"month"`
	TotalCount    int64                      `json:"totalCount"`
	TotalSum      int64                      `json:"totalSum"`
	AveragePerDay float64                    `json:"averagePerDay"`
	ByCategory    map[string]categorySumJSON `json:"byCategory"`
}

// handleMonth returns the aggregate for the requested month, with the window
// clamped to the present so an in-progress month only counts elapsed days.
// The aggregate is recomputed on every request: the clamp moves with the
// clock, so yesterday's answer can be wrong today even with no write.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	user := s.authenticate(w, r)
	if user == nil {
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	summary, err := s.summary.SummarizeMonth(r.Context(), user.ID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := monthSummaryJSON{
		Year:          summary.Year,
		Month:         summary.Month,
		TotalCount:    summary.TotalCount,
		TotalSum:      summary.TotalSum,
		AveragePerDay: summary.AveragePerDay,
		ByCategory:    make(map[string]categorySumJSON, len(summary.ByCategory)),
	}
	for name, cs := range summary.ByCategory {
		payload.ByCategory[name] = categorySumJSON{Category: cs.Category, Count: cs.Count, Sum: cs.Sum}
	}
	writeJSON(w, http.StatusOK, payload)
}
