package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	attributiondomain "github.com/smallbiznis/revenueshare/internal/attribution/domain"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	"github.com/smallbiznis/revenueshare/internal/period"
	pricingdomain "github.com/smallbiznis/revenueshare/internal/pricing/domain"
	reportingdomain "github.com/smallbiznis/revenueshare/internal/reporting/domain"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	transactiondomain "github.com/smallbiznis/revenueshare/internal/transaction/domain"
	"github.com/smallbiznis/revenueshare/pkg/db"
	"github.com/smallbiznis/revenueshare/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

var validationErrors = []error{
	ErrInvalidRequest,
	period.ErrInvalidMonth,
	pagination.ErrInvalidToken,

	pricingdomain.ErrInvalidPackageType,
	pricingdomain.ErrInvalidCommission,
	pricingdomain.ErrCommissionSumMismatch,
	pricingdomain.ErrCommissionScaleTooLarge,

	transactiondomain.ErrInvalidTransactionID,
	transactiondomain.ErrInvalidPackageType,
	transactiondomain.ErrInvalidAmount,
	transactiondomain.ErrInvalidCompletedAt,
	transactiondomain.ErrInvalidConsumer,
	transactiondomain.ErrProvinceRequired,

	attributiondomain.ErrProvinceRequired,
	attributiondomain.ErrUnsupportedPackageType,
	attributiondomain.ErrInvalidRowContribution,
	attributiondomain.ErrInvalidTransactionInput,

	sharedomain.ErrInvalidProvider,
	sharedomain.ErrInvalidStatus,
	sharedomain.ErrInvalidRange,
	sharedomain.ErrInvalidTransaction,
	sharedomain.ErrNegativeAmount,
	sharedomain.ErrInvalidWeight,
	sharedomain.ErrInvalidPercent,

	payoutdomain.ErrInvalidPayoutID,
	payoutdomain.ErrInvalidProvider,
	payoutdomain.ErrInvalidStatus,
	payoutdomain.ErrInvalidPaymentMethod,
	payoutdomain.ErrFailureReasonRequired,

	reportingdomain.ErrInvalidRange,
}

var notFoundErrors = []error{
	ErrNotFound,
	pricingdomain.ErrSnapshotNotFound,
	transactiondomain.ErrTransactionNotFound,
	attributiondomain.ErrAttributionNotFound,
	payoutdomain.ErrPayoutNotFound,
	payoutdomain.ErrRunNotFound,
	gorm.ErrRecordNotFound,
}

var conflictErrors = []error{
	ErrConflict,
	transactiondomain.ErrTransactionMismatch,
	payoutdomain.ErrConcurrentUpdate,
	payoutdomain.ErrProviderBusy,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if target := matchAny(err, validationErrors); target != nil {
		code := target.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrUnknownRole):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case payoutdomain.IsStateError(err):
		return http.StatusConflict, errorPayload{
			Type:    "payout_state_error",
			Message: err.Error(),
		}
	case matchAny(err, conflictErrors) != nil, db.IsConflictErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case matchAny(err, notFoundErrors) != nil:
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger with the mapped error type and
// the sentinel code when one matched.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := ""
	if target := matchAny(err, validationErrors); target != nil {
		code = target.Error()
	} else if target := matchAny(err, conflictErrors); target != nil {
		code = target.Error()
	} else if target := matchAny(err, notFoundErrors); target != nil {
		code = target.Error()
	} else if payload.Type == "payout_state_error" {
		code = payload.Message
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func matchAny(err error, targets []error) error {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

func conflictMessage(err error) string {
	if target := matchAny(err, conflictErrors); target != nil && target != ErrConflict {
		return target.Error()
	}
	return "conflict"
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "province_required":
		return "province"
	case "transaction_ref_required":
		return "transaction_ref"
	case "failure_reason_required":
		return "reason"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "commission_percent_must_sum_to_100":
		return "provider and admin commission must sum to 100"
	default:
		return "invalid value"
	}
}
