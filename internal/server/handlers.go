package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/covspect/covspect/internal/errdefs"
	"github.com/covspect/covspect/internal/service"
)

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	n := 0
	if raw := q.Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, r, errdefs.InvalidFilterf("invalid report count %q", raw))
			return
		}
		n = parsed
	}

	reports, err := s.service.LatestReports(r.Context(), q.Get("repository"), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, reports)
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := s.service.CoverageForPath(r.Context(), service.PathQuery{
		Repository: q.Get("repository"),
		Changeset:  q.Get("changeset"),
		Path:       q.Get("path"),
		Platform:   q.Get("platform"),
		Suite:      q.Get("suite"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := parseUnix(q.Get("start"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := parseUnix(q.Get("end"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	series, err := s.service.History(r.Context(), service.HistoryQuery{
		Repository: q.Get("repository"),
		Path:       q.Get("path"),
		Start:      start,
		End:        end,
		Platform:   q.Get("platform"),
		Suite:      q.Get("suite"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, series)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.service.Filters(r.Context(), r.URL.Query().Get("repository"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, catalog)
}

func (s *Server) handleExtensions(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.service.SupportedExtensions())
}

func (s *Server) handleZeroCoverage(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.ZeroCoverage(r.Context(), r.URL.Query().Get("repository"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		slog.ErrorContext(r.Context(), "failed to write zero coverage response", "error", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.service.Ready() {
		writeJSON(r.Context(), w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseUnix(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, errdefs.InvalidFilterf("invalid timestamp %q", raw)
	}
	return time.Unix(seconds, 0).UTC(), nil
}
