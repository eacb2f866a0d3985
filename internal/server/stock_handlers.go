package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gzimm88/StockLensesV2/internal/modules/scoring"
)

func symbolParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func (s *Server) handleListTickers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.tickers.List(queryInt(r, "limit", 100))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tickers": rows, "count": len(rows)})
}

func (s *Server) handleGetTicker(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	row, err := s.tickers.Get(symbol)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		s.writeError(w, http.StatusNotFound, "ticker not found: "+symbol)
		return
	}
	s.writeJSON(w, http.StatusOK, row)
}

// handleRefresh runs the full pipeline for one ticker inline and
// returns the per-step outcome. Partial runs still return 200, the
// caller inspects the status field.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	res := s.etl.RunFullRefresh(r.Context(), symbol)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	m, err := s.metrics.Get(symbol)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		s.writeError(w, http.StatusNotFound, "no metrics for "+symbol)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetFinancials(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	freq := r.URL.Query().Get("freq")
	if freq == "" {
		freq = "quarterly"
	}
	if freq != "quarterly" && freq != "annual" {
		s.writeError(w, http.StatusBadRequest, "freq must be quarterly or annual")
		return
	}
	records, err := s.financials.GetForTicker(symbol, freq, queryInt(r, "limit", 20))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":  symbol,
		"freq":    freq,
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	bars, err := s.prices.GetForTicker(symbol, r.URL.Query().Get("start"), queryInt(r, "limit", 500))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": symbol,
		"bars":   bars,
		"count":  len(bars),
	})
}

func (s *Server) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	lensID := r.URL.Query().Get("lens_id")
	snaps, err := s.scoring.GetSnapshots(symbol, lensID, queryInt(r, "limit", 50))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":    symbol,
		"snapshots": snaps,
		"count":     len(snaps),
	})
}

// handleGetConfidence reports field coverage for a lens without
// producing a snapshot. Useful for inspecting which inputs an analyst
// still needs to fill in.
func (s *Server) handleGetConfidence(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	m, err := s.metrics.Get(symbol)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		s.writeError(w, http.StatusNotFound, "no metrics for "+symbol)
		return
	}
	lensName := r.URL.Query().Get("lens")
	if lensName == "" {
		lensName = "Conservative"
	}
	conf := scoring.ComputeConfidence(m, lensName)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":     symbol,
		"lens":       lensName,
		"confidence": conf,
	})
}

func (s *Server) handleListLenses(w http.ResponseWriter, r *http.Request) {
	lenses, err := s.scoring.ListLenses()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(lenses) == 0 {
		lenses = scoring.BuiltinLenses
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"lenses": lenses, "count": len(lenses)})
}

func (s *Server) handleGetLens(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lens, err := s.scoring.GetLens(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if lens == nil {
		s.writeError(w, http.StatusNotFound, "lens not found: "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, lens)
}
