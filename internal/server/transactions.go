package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	transactiondomain "github.com/smallbiznis/revenueshare/internal/transaction/domain"
)

type completeTransactionRequest struct {
	TransactionID string          `json:"transaction_id"`
	PackageType   string          `json:"package_type"`
	ConsumerID    string          `json:"consumer_id"`
	TotalAmount   json.RawMessage `json:"total_amount"`
	Currency      string          `json:"currency"`
	Province      string          `json:"province"`
	CompletedAt   *time.Time      `json:"completed_at"`
}

// CompleteTransaction ingests a transaction completion event. Redelivery of
// the same event answers 200 with the stored outcome.
func (s *Server) CompleteTransaction(c *gin.Context) {
	var req completeTransactionRequest
	if err := decodeJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	amount, err := parseMinorUnits("total_amount", req.TotalAmount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	event := transactiondomain.CompletionEvent{
		TransactionID: strings.TrimSpace(req.TransactionID),
		PackageType:   strings.TrimSpace(req.PackageType),
		ConsumerID:    strings.TrimSpace(req.ConsumerID),
		TotalAmount:   amount,
		Currency:      strings.TrimSpace(req.Currency),
		Province:      strings.TrimSpace(req.Province),
	}
	if req.CompletedAt != nil {
		event.CompletedAt = *req.CompletedAt
	}

	result, err := s.transactionSvc.ProcessCompletion(c.Request.Context(), event)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": result})
}
