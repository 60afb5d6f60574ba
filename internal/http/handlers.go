package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tally/internal/core"
)

// createTransactionRequest mirrors the inbound POST body: the transaction
// sits under a "transaction" envelope.
type createTransactionRequest struct {
	Transaction core.Transaction `json:"transaction"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.ingestor.Ingest(r.Context(), req.Transaction)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to ingest transaction",
			"error", err,
			"merchant", req.Transaction.Merchant.Name,
			"cents_amount", req.Transaction.CentsAmount)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleSpendingByMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	months, err := s.spending.ByMonth(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute spending by month", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute report")
		return
	}

	totals := make(map[string]int64, len(months))
	for _, m := range months {
		totals[m.Label] = m.Cents
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleSpendingByCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	categories, err := s.spending.ByCategory(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute spending by category", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute report")
		return
	}

	totals := make(map[string]int64, len(categories))
	for _, c := range categories {
		totals[c.Name] = c.Cents
	}
	writeJSON(w, http.StatusOK, totals)
}

// isValidationError reports whether the ingestion failure was caused by a
// malformed payload rather than the store.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyAccountNumber,
		core.ErrInvalidDateTime,
		core.ErrInvalidCurrency,
		core.ErrInvalidType,
		core.ErrEmptyMerchantName,
		core.ErrEmptyCategoryKey,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
