package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"limitservice/internal/service"
)

// TransactionRequest represents the request body for recording an operation.
type TransactionRequest struct {
	ClientID      string `json:"client_id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Amount        string `json:"amount" example:"40.00"`
	Currency      string `json:"currency" example:"USD"`
	OperationTime string `json:"operation_time,omitempty" example:"2026-09-01T10:15:30Z"`
}

// TransactionResponse represents the response for a recorded operation.
type TransactionResponse struct {
	TransactionID string `json:"transaction_id" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// ExceededItem is one row of the exceeded-transactions report.
type ExceededItem struct {
	TransactionID string        `json:"transaction_id"`
	Currency      string        `json:"currency" example:"USD"`
	Amount        string        `json:"amount" example:"120.00"`
	OperationTime string        `json:"operation_time" example:"2026-09-01T10:15:30Z"`
	Limit         LimitResponse `json:"limit"`
}

// RateResponse represents an exchange quote.
type RateResponse struct {
	From       string `json:"from" example:"EUR"`
	To         string `json:"to" example:"USD"`
	Rate       string `json:"rate" example:"1.0843"`
	ValidUntil string `json:"valid_until" example:"2026-09-01T11:15:30Z"`
}

// HandleRecordTransaction godoc
// @Summary Record a consumable operation
// @Description Debits the amount from the client's limit for the operation's calendar month and stores an immutable transaction record. The exceeded flag is fixed at write time.
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body TransactionRequest true "Operation to record"
// @Success 201 {object} TransactionResponse "Operation recorded"
// @Failure 400 {object} ErrorResponse "Invalid client id, amount or currency"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /transactions [post]
func HandleRecordTransaction(svc service.TransactionServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
			return
		}

		opTime := time.Now().UTC()
		if req.OperationTime != "" {
			opTime, err = time.Parse(time.RFC3339, req.OperationTime)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid operation_time, expected RFC3339"})
				return
			}
		}

		txID, err := svc.Record(r.Context(), service.ConsumableOperation{
			ClientID:      req.ClientID,
			OperationTime: opTime,
			Amount:        amount,
			Currency:      req.Currency,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, TransactionResponse{TransactionID: txID})
	}
}

// HandleExceededTransactions godoc
// @Summary List transactions that exceeded the limit
// @Description Returns the client's transactions flagged at write time, each joined with the limit row it referenced.
// @Tags transactions
// @Produce json
// @Param client_id query string true "Client ID (UUID)" format(uuid)
// @Success 200 {array} ExceededItem "Flagged transactions"
// @Failure 400 {object} ErrorResponse "Invalid client id"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /transactions/exceeded [get]
func HandleExceededTransactions(svc service.TransactionServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("client_id")
		if clientID == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "client_id query param is required"})
			return
		}

		rows, err := svc.ExceededTransactions(r.Context(), clientID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		items := make([]ExceededItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, ExceededItem{
				TransactionID: row.TransactionID,
				Currency:      row.Currency,
				Amount:        row.Amount,
				OperationTime: row.OperationTime,
				Limit:         limitResponseFromResult(&row.Limit),
			})
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// HandleGetRate godoc
// @Summary Get exchange quote for a currency pair
// @Description Returns the cached quote for the pair, fetching one from the external provider on first sight.
// @Tags rates
// @Produce json
// @Param from query string true "Source currency code (3 letters)" minlength(3) maxlength(3)
// @Param to query string true "Target currency code (3 letters)" minlength(3) maxlength(3)
// @Success 200 {object} RateResponse "Quote found"
// @Failure 400 {object} ErrorResponse "Invalid currency code"
// @Failure 502 {object} ErrorResponse "Rate provider unavailable"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /rates [get]
func HandleGetRate(svc service.RateServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		if from == "" || to == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "from and to query params are required"})
			return
		}

		rate, err := svc.GetRate(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, RateResponse{
			From:       rate.From,
			To:         rate.To,
			Rate:       rate.Rate,
			ValidUntil: rate.ValidUntil,
		})
	}
}
