package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
)

func (s *Server) ListPayouts(c *gin.Context) {
	var req payoutdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := s.payoutSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// ListOwnPayouts lists the calling provider's payouts.
func (s *Server) ListOwnPayouts(c *gin.Context) {
	var req payoutdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	providerID, err := scopeProvider(actorFromContext(c), req.ProviderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if providerID == "" {
		AbortWithError(c, payoutdomain.ErrInvalidProvider)
		return
	}
	req.ProviderID = providerID

	items, err := s.payoutSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetPayout(c *gin.Context) {
	detail, err := s.payoutSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) GetPayoutStatement(c *gin.Context) {
	doc, err := s.statements.Render(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}

func (s *Server) GeneratePayouts(c *gin.Context) {
	var req payoutdomain.GenerateRequest
	if err := decodeJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	req.Trigger = payoutdomain.TriggerManual

	report, err := s.payoutSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Per-provider failures are reported in the body; the run itself completed.
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetGenerationRun(c *gin.Context) {
	report, err := s.payoutSvc.GetRun(c.Request.Context(), strings.TrimSpace(c.Param("run_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) MarkPayoutProcessing(c *gin.Context) {
	var req payoutdomain.MarkProcessingRequest
	if err := decodeOptionalJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	payout, err := s.payoutSvc.MarkProcessing(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payout})
}

type completePayoutRequest struct {
	TransactionRef   string          `json:"transaction_ref"`
	BankAccount      string          `json:"bank_account"`
	PaymentMethod    string          `json:"payment_method"`
	ExpectedTotalDue json.RawMessage `json:"expected_total_due"`
}

func (s *Server) CompletePayout(c *gin.Context) {
	var req completePayoutRequest
	if err := decodeJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	expected, err := parseOptionalMinorUnits("expected_total_due", req.ExpectedTotalDue)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payout, err := s.payoutSvc.Complete(c.Request.Context(), strings.TrimSpace(c.Param("id")), payoutdomain.CompleteRequest{
		TransactionRef:   strings.TrimSpace(req.TransactionRef),
		BankAccount:      strings.TrimSpace(req.BankAccount),
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		ExpectedTotalDue: expected,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payout})
}

func (s *Server) FailPayout(c *gin.Context) {
	var req payoutdomain.FailRequest
	if err := decodeJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	payout, err := s.payoutSvc.Fail(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payout})
}

func (s *Server) RetryPayout(c *gin.Context) {
	payout, err := s.payoutSvc.Retry(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payout})
}
