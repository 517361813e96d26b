package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mintbay-api/internal/forwarder"
	"mintbay-api/internal/logger"
	"mintbay-api/internal/marketplace"
)

// CommonServices holds common dependencies used across handlers
type CommonServices struct {
	engine    *marketplace.Engine
	forwarder *forwarder.Forwarder
	clock     marketplace.Clock
}

// NewCommonServices creates a new instance of CommonServices
func NewCommonServices(engine *marketplace.Engine, fwd *forwarder.Forwarder, clock marketplace.Clock) *CommonServices {
	return &CommonServices{
		engine:    engine,
		forwarder: fwd,
		clock:     clock,
	}
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// sendError is a helper function that combines logging and error response
// It logs the error with the given message and sends a JSON error response
func sendError(c *gin.Context, statusCode int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// sendSuccess is a helper function that sends a success response
func sendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// handleSettlementError maps engine and relay error kinds to HTTP status
// codes so API clients can branch on cause.
func handleSettlementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, marketplace.ErrListingNotFound):
		sendError(c, http.StatusNotFound, "Listing not found", err)
	case errors.Is(err, marketplace.ErrInvalidQuantity),
		errors.Is(err, marketplace.ErrInvalidWindow),
		errors.Is(err, marketplace.ErrInvalidPrice),
		errors.Is(err, marketplace.ErrUnknownMethod):
		sendError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, marketplace.ErrSaleWindowClosed),
		errors.Is(err, marketplace.ErrInsufficientStock),
		errors.Is(err, marketplace.ErrBuyLimitExceeded):
		sendError(c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, marketplace.ErrCurrencyTransferFailed),
		errors.Is(err, marketplace.ErrAssetTransferFailed):
		sendError(c, http.StatusPaymentRequired, err.Error(), err)
	case errors.Is(err, marketplace.ErrNotAuthorized):
		sendError(c, http.StatusForbidden, "Caller not authorized", err)
	case errors.Is(err, marketplace.ErrFeeConfiguration):
		sendError(c, http.StatusInternalServerError, "Fee configuration invalid", err)
	case errors.Is(err, forwarder.ErrInvalidSignature):
		sendError(c, http.StatusUnauthorized, "Invalid signature", err)
	case errors.Is(err, forwarder.ErrNonceReplay):
		sendError(c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, forwarder.ErrRequestExpired):
		sendError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, forwarder.ErrUnknownTarget):
		sendError(c, http.StatusNotFound, "Forward target not found", err)
	default:
		sendError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
