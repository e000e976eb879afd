package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"limitservice/internal/service"
)

// LimitResponse represents a month limit.
type LimitResponse struct {
	ID        string `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	ClientID  string `json:"client_id"`
	Month     string `json:"month" example:"2026-09"`
	Balance   string `json:"balance" example:"60.00"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SetLimitRequest represents the request body for setting a new month limit.
type SetLimitRequest struct {
	Month   string `json:"month" example:"2026-09"`
	Balance string `json:"balance" example:"500.00"`
}

func limitResponseFromResult(l *service.LimitResult) LimitResponse {
	return LimitResponse{
		ID:        l.ID,
		ClientID:  l.ClientID,
		Month:     l.Month,
		Balance:   l.Balance,
		CreatedAt: l.CreatedAt,
	}
}

// parseMonth accepts "YYYY-MM"; an empty value means the current month.
func parseMonth(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Now().UTC(), true
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HandleGetLimit godoc
// @Summary Get the client's current month limit
// @Description Returns the latest limit row for the client and month. Does not create a default row.
// @Tags limits
// @Produce json
// @Param client_id path string true "Client ID (UUID)" format(uuid)
// @Param month query string false "Month in YYYY-MM format, defaults to the current month"
// @Success 200 {object} LimitResponse "Limit found"
// @Failure 400 {object} ErrorResponse "Invalid client id or month"
// @Failure 404 {object} ErrorResponse "No limit row for the client and month"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /limits/{client_id} [get]
func HandleGetLimit(svc service.TransactionServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "client_id")

		month, ok := parseMonth(r.URL.Query().Get("month"))
		if !ok {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid month, expected YYYY-MM"})
			return
		}

		limit, err := svc.CurrentLimit(r.Context(), clientID, month)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, limitResponseFromResult(limit))
	}
}

// HandleSetLimit godoc
// @Summary Set a new month limit for a client
// @Description Appends a limit row that supersedes earlier rows for the same client and month.
// @Tags limits
// @Accept json
// @Produce json
// @Param client_id path string true "Client ID (UUID)" format(uuid)
// @Param request body SetLimitRequest true "Month and balance"
// @Success 200 {object} LimitResponse "New limit row"
// @Failure 400 {object} ErrorResponse "Invalid client id, month or balance"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /limits/{client_id} [put]
func HandleSetLimit(svc service.TransactionServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "client_id")

		var req SetLimitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
			return
		}

		month, ok := parseMonth(req.Month)
		if !ok {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid month, expected YYYY-MM"})
			return
		}

		balance, err := decimal.NewFromString(req.Balance)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid balance"})
			return
		}

		limit, err := svc.SetLimit(r.Context(), clientID, month, balance)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, limitResponseFromResult(limit))
	}
}
