package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"posledger/internal/cache"
	"posledger/internal/core"
	"posledger/internal/log"
	"posledger/internal/report"
	"posledger/internal/services"
)

// transactionBody is the create and update payload.
type transactionBody struct {
	Type       string     `json:"type"`
	Amount     flexString `json:"amount"`
	Charge     flexString `json:"charge"`
	ChargeMode string     `json:"chargeMode"`
	Time       string     `json:"time"`
}

func (b transactionBody) request() services.TransactionRequest {
	return services.TransactionRequest{
		Type:       b.Type,
		Amount:     string(b.Amount),
		Charge:     string(b.Charge),
		ChargeMode: b.ChargeMode,
	}
}

type selectionBody struct {
	Date *string `json:"date"`
	Type *string `json:"type"`
}

type summaryResponse struct {
	Selection services.Selection `json:"selection"`
	Revision  uint64             `json:"revision"`
	Summary   core.DailySummary  `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"revision": s.ledger.Revision(),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Transactions())
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	res := s.ledger.Create(r.Context(), body.request(), body.Time)
	s.writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	tx, err := s.validate.Parse(body.request())
	if err != nil {
		s.writeResult(w, http.StatusOK, services.Result{Message: services.MsgInvalidInput, Err: err})
		return
	}
	tx.ID = chi.URLParam(r, "id")

	res := s.ledger.Update(r.Context(), tx, body.Time)
	s.writeResult(w, http.StatusOK, res)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	res := s.ledger.Delete(r.Context(), chi.URLParam(r, "id"))
	s.writeResult(w, http.StatusOK, res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, summaryResponse{
		Selection: s.ledger.Selection(),
		Revision:  s.ledger.Revision(),
		Summary:   s.ledger.Summary(),
	})
}

// handleSelection checks both fields before applying either so a bad
// request never leaves the selection half changed.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var body selectionBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if body.Type != nil {
		if _, err := core.ParseTypeFilter(*body.Type); err != nil {
			writeError(w, http.StatusUnprocessableEntity, services.MsgInvalidFilter, nil)
			return
		}
	}
	if body.Date != nil {
		if _, err := core.ResolveDay(*body.Date, time.Now()); err != nil {
			writeError(w, http.StatusUnprocessableEntity, services.MsgInvalidDate, nil)
			return
		}
		if res := s.ledger.SelectDate(*body.Date); !res.Success {
			s.writeResult(w, http.StatusOK, res)
			return
		}
	}
	if body.Type != nil {
		if res := s.ledger.SelectType(*body.Type); !res.Success {
			s.writeResult(w, http.StatusOK, res)
			return
		}
	}

	s.handleSummary(w, r)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	revision := s.ledger.Revision()
	summary, filter, err := s.ledger.SummaryFor(q.Get("date"), q.Get("type"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	key := cache.NewReportKey(revision, summary.SummaryDate, filter)
	pdf, hit := s.reports.Get(key)
	if !hit {
		var buf bytes.Buffer
		if _, err := s.renderer.Render(&buf, summary, filter); err != nil {
			s.errors.LogError(r.Context(), "Failed to render report", err, log.ComponentHTTP, log.OpRender,
				log.NewFields().WithSelection(summary.SummaryDate.Format(core.DateLayout), filter.String()))
			writeError(w, http.StatusInternalServerError, "Failed to render report", nil)
			return
		}
		pdf = buf.Bytes()
		s.reports.Set(key, pdf)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(summary.SummaryDate, filter)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// writeResult maps a ledger result to a status code. okStatus is used on
// success.
func (s *Server) writeResult(w http.ResponseWriter, okStatus int, res services.Result) {
	if res.Success {
		writeJSON(w, okStatus, resultResponse{Success: true, Message: res.Message, Transaction: res.Transaction})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(res.Err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(res.Err, core.ErrValidation):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resultResponse{Message: res.Message, Details: services.Details(res.Err)})
}
