package handlers

import (
	"context"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"mintbay-api/internal/auth"
	"mintbay-api/internal/marketplace"
)

// MarketplaceHandler handles listing and purchase operations
type MarketplaceHandler struct {
	common *CommonServices
}

// NewMarketplaceHandler creates a new MarketplaceHandler instance
func NewMarketplaceHandler(common *CommonServices) *MarketplaceHandler {
	return &MarketplaceHandler{common: common}
}

// CreateListingRequest is the body for creating a listing. Big integer
// fields travel as decimal strings.
type CreateListingRequest struct {
	AssetContract  string `json:"asset_contract" binding:"required"`
	TokenID        string `json:"token_id" binding:"required"`
	Currency       string `json:"currency" binding:"required"`
	PricePerToken  string `json:"price_per_token" binding:"required"`
	Quantity       uint64 `json:"quantity" binding:"required"`
	TokensPerBuyer uint64 `json:"tokens_per_buyer" binding:"required"`
	StartTime      uint64 `json:"start_time"`
	EndTime        uint64 `json:"end_time" binding:"required"`
}

// BuyRequest is the body for a direct purchase.
type BuyRequest struct {
	Quantity uint64 `json:"quantity" binding:"required"`
}

// ListingResponse is a listing snapshot with its derived status.
type ListingResponse struct {
	marketplace.Listing
	Status marketplace.ListingStatus `json:"status"`
}

// FeeRateRequest is the body for the admin fee endpoints.
type FeeRateRequest struct {
	Bps uint64 `json:"bps"`
}

func (h *MarketplaceHandler) listingResponse(l marketplace.Listing) ListingResponse {
	return ListingResponse{Listing: l, Status: l.Status(h.common.clock.Now())}
}

// CreateListing godoc
// @Summary Create a listing
// @Description Lists a quantity of an asset for sale at a fixed price inside a time window
// @Tags listings
// @Accept json
// @Produce json
// @Param request body CreateListingRequest true "Listing parameters"
// @Success 201 {object} ListingResponse
// @Failure 400 {object} ErrorResponse
// @Router /listings [post]
func (h *MarketplaceHandler) CreateListing(c *gin.Context) {
	seller, ok := auth.CallerAddress(c)
	if !ok {
		sendError(c, http.StatusBadRequest, "Caller wallet address required", auth.ErrMissingWalletAddress)
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if !common.IsHexAddress(req.AssetContract) || !common.IsHexAddress(req.Currency) {
		sendError(c, http.StatusBadRequest, "Invalid contract address", auth.ErrInvalidWalletAddress)
		return
	}

	tokenID, ok := new(big.Int).SetString(req.TokenID, 10)
	if !ok {
		sendError(c, http.StatusBadRequest, "Invalid token id", nil)
		return
	}
	price, ok := new(big.Int).SetString(req.PricePerToken, 10)
	if !ok {
		sendError(c, http.StatusBadRequest, "Invalid price", nil)
		return
	}

	id, err := h.common.engine.CreateListing(c.Request.Context(), seller, marketplace.CreateListingParams{
		AssetContract:  common.HexToAddress(req.AssetContract),
		TokenID:        tokenID,
		Currency:       common.HexToAddress(req.Currency),
		PricePerToken:  price,
		Quantity:       req.Quantity,
		TokensPerBuyer: req.TokensPerBuyer,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
	})
	if err != nil {
		handleSettlementError(c, err)
		return
	}

	listing, err := h.common.engine.GetListing(id)
	if err != nil {
		handleSettlementError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, h.listingResponse(listing))
}

// GetListing godoc
// @Summary Get a listing
// @Description Returns a read-only snapshot of the listing
// @Tags listings
// @Produce json
// @Param listing_id path int true "Listing ID"
// @Success 200 {object} ListingResponse
// @Failure 404 {object} ErrorResponse
// @Router /listings/{listing_id} [get]
func (h *MarketplaceHandler) GetListing(c *gin.Context) {
	id, err := parseListingID(c)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid listing ID format", err)
		return
	}

	listing, err := h.common.engine.GetListing(id)
	if err != nil {
		handleSettlementError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, h.listingResponse(listing))
}

// ListListings godoc
// @Summary List all listings
// @Tags listings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /listings [get]
func (h *MarketplaceHandler) ListListings(c *gin.Context) {
	listings := h.common.engine.ListListings()
	items := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		items = append(items, h.listingResponse(l))
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   items,
	})
}

// Buy godoc
// @Summary Purchase against a listing
// @Description Settles a purchase: currency moves to the treasuries and the seller, the asset moves to the buyer
// @Tags listings
// @Accept json
// @Produce json
// @Param listing_id path int true "Listing ID"
// @Param request body BuyRequest true "Purchase quantity"
// @Success 200 {object} marketplace.Receipt
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /listings/{listing_id}/buy [post]
func (h *MarketplaceHandler) Buy(c *gin.Context) {
	buyer, ok := auth.CallerAddress(c)
	if !ok {
		sendError(c, http.StatusBadRequest, "Caller wallet address required", auth.ErrMissingWalletAddress)
		return
	}

	id, err := parseListingID(c)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid listing ID format", err)
		return
	}

	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	receipt, err := h.common.engine.Buy(c.Request.Context(), buyer, id, req.Quantity)
	if err != nil {
		handleSettlementError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, receipt)
}

// GetBought godoc
// @Summary Cumulative units bought by a buyer
// @Tags listings
// @Produce json
// @Param listing_id path int true "Listing ID"
// @Param address path string true "Buyer address"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /listings/{listing_id}/bought/{address} [get]
func (h *MarketplaceHandler) GetBought(c *gin.Context) {
	id, err := parseListingID(c)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid listing ID format", err)
		return
	}

	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		sendError(c, http.StatusBadRequest, "Invalid buyer address", auth.ErrInvalidWalletAddress)
		return
	}

	bought, err := h.common.engine.BoughtFromListing(id, common.HexToAddress(addr))
	if err != nil {
		handleSettlementError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listing_id": id,
		"buyer":      common.HexToAddress(addr),
		"bought":     bought,
	})
}

// SetRoyaltyBps godoc
// @Summary Update the royalty rate
// @Tags admin
// @Accept json
// @Produce json
// @Param request body FeeRateRequest true "Rate in basis points"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/fees/royalty [post]
func (h *MarketplaceHandler) SetRoyaltyBps(c *gin.Context) {
	h.setFeeRate(c, h.common.engine.SetRoyaltyBps, "Royalty rate updated")
}

// SetMarketFeeBps godoc
// @Summary Update the marketplace fee rate
// @Tags admin
// @Accept json
// @Produce json
// @Param request body FeeRateRequest true "Rate in basis points"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/fees/market [post]
func (h *MarketplaceHandler) SetMarketFeeBps(c *gin.Context) {
	h.setFeeRate(c, h.common.engine.SetMarketFeeBps, "Market fee rate updated")
}

func (h *MarketplaceHandler) setFeeRate(c *gin.Context, apply func(ctx context.Context, caller common.Address, bps uint64) error, message string) {
	caller, ok := auth.CallerAddress(c)
	if !ok {
		sendError(c, http.StatusBadRequest, "Caller wallet address required", auth.ErrMissingWalletAddress)
		return
	}

	var req FeeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := apply(c.Request.Context(), caller, req.Bps); err != nil {
		handleSettlementError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, SuccessResponse{Message: message})
}

func parseListingID(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("listing_id"), 10, 64)
}
