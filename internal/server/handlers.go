package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/cvrgpt/internal/apperr"
	"github.com/sells-group/cvrgpt/internal/compare"
	"github.com/sells-group/cvrgpt/internal/model"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < 2 {
		writeError(w, r, apperr.Validation("q must be at least 2 characters"))
		return
	}
	limit, err := intParam(r, "limit", 10, 1, 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := intParam(r, "offset", 0, 0, 1<<20)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.provider.SearchCompanies(r.Context(), q, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	cvr, err := cvrParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.provider.GetCompany(r.Context(), cvr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFilings(w http.ResponseWriter, r *http.Request) {
	cvr, err := cvrParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", 10, 1, 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.provider.ListFilings(r.Context(), cvr, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	cvr, err := cvrParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.provider.LatestAccounts(r.Context(), cvr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) compareResult(r *http.Request, cvr string) (*model.CompareResult, error) {
	acc, err := s.provider.LatestAccounts(r.Context(), cvr)
	if err != nil {
		return nil, err
	}
	res := compare.Compare(acc.Current, acc.Previous)
	res.Sources = acc.Citations
	return &res, nil
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	cvr, err := cvrParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.compareResult(r, cvr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompareExport(w http.ResponseWriter, r *http.Request) {
	cvr, err := cvrParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.compareResult(r, cvr)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="compare_%s.csv"`, cvr))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(compare.ExportCSV(*res))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.BadRequest("invalid JSON body"))
		return
	}
	resp, err := s.chat.Handle(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatExport(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "thread_id")
	data, err := s.chat.ExportLastTable(threadID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="chat_%s.csv"`, threadID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.EventFilter{EventType: q.Get("type")}
	if nace := strings.TrimSpace(q.Get("nace")); nace != "" {
		for _, p := range strings.Split(nace, ",") {
			if p = strings.TrimSpace(p); p != "" {
				filter.NACEPrefixes = append(filter.NACEPrefixes, p)
			}
		}
	}

	lastDays, err := intParam(r, "last_days", 0, 0, 3650)
	if err != nil {
		writeError(w, r, err)
		return
	}
	from, to := q.Get("from"), q.Get("to")
	if lastDays > 0 && (from != "" || to != "") {
		writeError(w, r, apperr.BadRequest("last_days cannot be combined with from/to"))
		return
	}
	if lastDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, -lastDays)
		filter.DateFrom = &t
	}
	if filter.DateFrom, filter.DateTo, err = parseDateWindow(from, to, filter.DateFrom); err != nil {
		writeError(w, r, err)
		return
	}

	if filter.Limit, err = intParam(r, "limit", 50, 1, 200); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = intParam(r, "offset", 0, 0, 1<<20); err != nil {
		writeError(w, r, err)
		return
	}

	evs, err := s.events.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evs, "count": len(evs)})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	up := s.provider.Ping(r.Context())
	status := "ok"
	code := http.StatusOK
	if !up {
		status = "degraded"
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"provider": map[string]any{
			"name": s.provider.Name(),
			"up":   up,
		},
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"reason": "cache store unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func cvrParam(r *http.Request) (string, error) {
	cvr := chi.URLParam(r, "cvr")
	if !model.ValidCVR(cvr) {
		return "", apperr.Validation("cvr must be exactly 8 digits")
	}
	return cvr, nil
}

func intParam(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, apperr.Validation(fmt.Sprintf("%s must be an integer between %d and %d", name, min, max))
	}
	return n, nil
}

func parseDateWindow(from, to string, dateFrom *time.Time) (*time.Time, *time.Time, error) {
	var dateTo *time.Time
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, nil, apperr.Validation("from must be YYYY-MM-DD")
		}
		dateFrom = &t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, nil, apperr.Validation("to must be YYYY-MM-DD")
		}
		// Window end is inclusive of the whole day.
		t = t.Add(24*time.Hour - time.Nanosecond)
		dateTo = &t
	}
	return dateFrom, dateTo, nil
}
