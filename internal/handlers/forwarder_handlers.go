package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"mintbay-api/internal/auth"
	"mintbay-api/internal/forwarder"
)

// ForwarderHandler handles meta-transaction relay operations
type ForwarderHandler struct {
	common    *CommonServices
	processor *RelayProcessor
}

// NewForwarderHandler creates a new ForwarderHandler instance
func NewForwarderHandler(common *CommonServices, processor *RelayProcessor) *ForwarderHandler {
	return &ForwarderHandler{common: common, processor: processor}
}

// ForwardRequestBody is the wire form of a signed forward request. The
// signature travels as a 0x-prefixed hex string.
type ForwardRequestBody struct {
	From       string          `json:"from" binding:"required"`
	To         string          `json:"to" binding:"required"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
	Nonce      uint64          `json:"nonce"`
	ValidUntil uint64          `json:"valid_until" binding:"required"`
	Signature  string          `json:"signature" binding:"required"`
}

// RelayResult wraps the raw output of a forwarded call.
type RelayResult struct {
	Result json.RawMessage `json:"result"`
}

func (b *ForwardRequestBody) toRequest() (forwarder.ForwardRequest, error) {
	if !common.IsHexAddress(b.From) || !common.IsHexAddress(b.To) {
		return forwarder.ForwardRequest{}, auth.ErrInvalidWalletAddress
	}
	sig, err := hexutil.Decode(b.Signature)
	if err != nil {
		return forwarder.ForwardRequest{}, err
	}
	return forwarder.ForwardRequest{
		From:       common.HexToAddress(b.From),
		To:         common.HexToAddress(b.To),
		Payload:    b.Payload,
		Nonce:      b.Nonce,
		ValidUntil: b.ValidUntil,
		Signature:  sig,
	}, nil
}

// Execute godoc
// @Summary Execute a signed forward request
// @Description Verifies the signature, spends the signer's nonce and runs the call with the signer as the effective caller
// @Tags relay
// @Accept json
// @Produce json
// @Param request body ForwardRequestBody true "Signed forward request"
// @Success 200 {object} RelayResult
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /relay/execute [post]
func (h *ForwarderHandler) Execute(c *gin.Context) {
	var body ForwardRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := body.toRequest()
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid forward request", err)
		return
	}

	out, err := h.common.forwarder.Execute(c.Request.Context(), req)
	if err != nil {
		handleSettlementError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, RelayResult{Result: out})
}

// Queue godoc
// @Summary Queue a signed forward request for asynchronous execution
// @Description Verifies the envelope up front, then hands it to the relay worker pool
// @Tags relay
// @Accept json
// @Produce json
// @Param request body ForwardRequestBody true "Signed forward request"
// @Success 202 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /relay/queue [post]
func (h *ForwarderHandler) Queue(c *gin.Context) {
	var body ForwardRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := body.toRequest()
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid forward request", err)
		return
	}

	// Reject obviously bad envelopes before they occupy a queue slot. The
	// nonce is still spent by the worker, so a queued request can lose the
	// race to a concurrent submission.
	if _, err := h.common.forwarder.Verify(req); err != nil {
		handleSettlementError(c, err)
		return
	}

	if err := h.processor.Enqueue(req); err != nil {
		sendError(c, http.StatusServiceUnavailable, "Relay queue is full", err)
		return
	}
	sendSuccess(c, http.StatusAccepted, SuccessResponse{Message: "Forward request queued"})
}

// GetNonce godoc
// @Summary Current nonce for a signer
// @Description Returns the value the signer's next forward request must carry
// @Tags relay
// @Produce json
// @Param address path string true "Signer address"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /relay/nonce/{address} [get]
func (h *ForwarderHandler) GetNonce(c *gin.Context) {
	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		sendError(c, http.StatusBadRequest, "Invalid signer address", auth.ErrInvalidWalletAddress)
		return
	}

	signer := common.HexToAddress(addr)
	c.JSON(http.StatusOK, gin.H{
		"address": signer,
		"nonce":   h.common.forwarder.NonceOf(signer),
	})
}
