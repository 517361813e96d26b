package server

import (
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mintbay-api/internal/auth"
	"mintbay-api/internal/config"
	"mintbay-api/internal/forwarder"
	"mintbay-api/internal/handlers"
	"mintbay-api/internal/ledger"
	"mintbay-api/internal/logger"
	"mintbay-api/internal/marketplace"
)

// Handler Definitions
var (
	marketplaceHandler *handlers.MarketplaceHandler
	forwarderHandler   *handlers.ForwarderHandler
	relayProcessor     *handlers.RelayProcessor

	engine *marketplace.Engine
	fwd    *forwarder.Forwarder
)

func InitializeHandlers() {
	operator := config.MustAddress("MARKETPLACE_OPERATOR_ADDRESS")
	platform := config.MustAddress("PLATFORM_TREASURY_ADDRESS")
	royaltyTreasury := config.MustAddress("ROYALTY_TREASURY_ADDRESS")
	adminAddr := config.MustAddress("MARKETPLACE_ADMIN_ADDRESS")

	royaltyBps := config.Uint64OrDefault("ROYALTY_BPS", 500)
	marketFeeBps := config.Uint64OrDefault("MARKET_FEE_BPS", 250)
	chainID := config.Uint64OrDefault("CHAIN_ID", 1)

	// In-memory ledgers back the settlement ports. Swapping in chain-backed
	// implementations only requires satisfying the ledger interfaces.
	assets := ledger.NewMemoryAssetLedger()
	currency := ledger.NewMemoryCurrencyLedger()
	registry := ledger.NewMemoryRegistry(royaltyTreasury)
	registry.GrantRole(ledger.RoleAdmin, adminAddr)

	clock := marketplace.SystemClock{}
	engine = marketplace.NewEngine(marketplace.Config{
		Operator:         operator,
		PlatformTreasury: platform,
		RoyaltyBps:       royaltyBps,
		MarketFeeBps:     marketFeeBps,
	}, assets, currency, registry, clock)

	engine.Events().AddSaleListener(func(sale marketplace.NewSale) {
		logger.Info("sale settled",
			zap.String("event_id", sale.EventID.String()),
			zap.Uint64("listing_id", sale.ListingID),
			zap.String("buyer", sale.Buyer.Hex()),
			zap.String("seller", sale.Seller.Hex()),
			zap.Uint64("quantity", sale.Quantity),
			zap.Uint64("remaining", sale.Listing.Quantity),
		)
	})

	fwd = forwarder.New(forwarder.Domain{
		Name:              "Mintbay",
		Version:           "1",
		ChainID:           new(big.Int).SetUint64(chainID),
		VerifyingContract: operator,
	}, clock)
	fwd.RegisterTarget(operator, engine)

	commonServices := handlers.NewCommonServices(engine, fwd, clock)
	relayProcessor = handlers.NewRelayProcessor(fwd, 3, 100)

	marketplaceHandler = handlers.NewMarketplaceHandler(commonServices)
	forwarderHandler = handlers.NewForwarderHandler(commonServices, relayProcessor)
}

func InitializeRoutes(router *gin.Engine) {
	// Initialize logger first
	logger.InitLogger()

	// Configure and apply CORS middleware
	router.Use(configureCORS())
	router.Use(handlers.RequestID())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Start the relay processor with 3 workers and a buffer size of 100
	relayProcessor.Start()

	// Ensure we gracefully stop the relay processor when the server shuts down
	router.GET("/shutdown", func(c *gin.Context) {
		go func() {
			time.Sleep(1 * time.Second)
			relayProcessor.Stop()
			logger.Info("Server is shutting down...")
			os.Exit(0)
		}()
		c.JSON(http.StatusOK, gin.H{"message": "Server is shutting down..."})
	})

	// if we are not in production, log the request body
	if os.Getenv("GIN_MODE") != "release" {
		router.Use(handlers.LogRequest())
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Listings
		listings := v1.Group("/listings")
		{
			listings.GET("", marketplaceHandler.ListListings)
			listings.GET("/:listing_id", marketplaceHandler.GetListing)
			listings.GET("/:listing_id/bought/:address", marketplaceHandler.GetBought)

			// Mutations carry the caller's wallet address
			authed := listings.Group("")
			authed.Use(auth.RequireCallerAddress())
			{
				authed.POST("", marketplaceHandler.CreateListing)
				authed.POST("/:listing_id/buy", marketplaceHandler.Buy)
			}
		}

		// Relay
		relay := v1.Group("/relay")
		{
			relay.POST("/execute", forwarderHandler.Execute)
			relay.POST("/queue", forwarderHandler.Queue)
			relay.GET("/nonce/:address", forwarderHandler.GetNonce)
		}

		// Admin-only routes
		admin := v1.Group("/admin")
		admin.Use(auth.EnsureValidAPIKey())
		admin.Use(auth.RequireCallerAddress())
		{
			admin.POST("/fees/royalty", marketplaceHandler.SetRoyaltyBps)
			admin.POST("/fees/market", marketplaceHandler.SetMarketFeeBps)
		}
	}
}

// configureCORS returns a configured CORS middleware
func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		// Default to localhost if not set
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	// Get allowed methods from environment variable
	methodsEnv := os.Getenv("CORS_ALLOWED_METHODS")
	if methodsEnv == "" {
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	} else {
		methods := strings.Split(methodsEnv, ",")
		for i, method := range methods {
			methods[i] = strings.TrimSpace(method)
		}
		corsConfig.AllowMethods = methods
	}

	// Get allowed headers from environment variable
	headersEnv := os.Getenv("CORS_ALLOWED_HEADERS")
	if headersEnv == "" {
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", "X-Wallet-Address"}
	} else {
		headers := strings.Split(headersEnv, ",")
		for i, header := range headers {
			headers[i] = strings.TrimSpace(header)
		}
		corsConfig.AllowHeaders = headers
	}

	// Get exposed headers from environment variable
	exposedHeadersEnv := os.Getenv("CORS_EXPOSED_HEADERS")
	if exposedHeadersEnv != "" {
		exposedHeaders := strings.Split(exposedHeadersEnv, ",")
		for i, header := range exposedHeaders {
			exposedHeaders[i] = strings.TrimSpace(header)
		}
		corsConfig.ExposeHeaders = exposedHeaders
	}

	corsConfig.AllowCredentials = os.Getenv("CORS_ALLOW_CREDENTIALS") == "true"

	return cors.New(corsConfig)
}
