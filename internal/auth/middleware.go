package auth

import (
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"mintbay-api/internal/logger"
)

const (
	// HeaderAPIKey carries the admin API key
	HeaderAPIKey = "x-api-key"
	// HeaderWalletAddress carries the caller's wallet address
	HeaderWalletAddress = "x-wallet-address"

	callerContextKey = "caller_address"
)

// EnsureValidAPIKey guards admin routes with the API key configured in
// ADMIN_API_KEY.
func EnsureValidAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderAPIKey)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingAPIKey.Error()})
			return
		}
		if apiKey != os.Getenv("ADMIN_API_KEY") {
			logger.Warn("rejected request with invalid api key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidAPIKey.Error()})
			return
		}
		c.Next()
	}
}

// RequireCallerAddress extracts and validates the caller's wallet address
// from the request headers and stores it in the request context. Routes that
// act on behalf of a wallet depend on it.
func RequireCallerAddress() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderWalletAddress)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ErrMissingWalletAddress.Error()})
			return
		}
		if !common.IsHexAddress(raw) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ErrInvalidWalletAddress.Error()})
			return
		}
		c.Set(callerContextKey, common.HexToAddress(raw))
		c.Next()
	}
}

// CallerAddress returns the validated wallet address stored by
// RequireCallerAddress.
func CallerAddress(c *gin.Context) (common.Address, bool) {
	v, ok := c.Get(callerContextKey)
	if !ok {
		return common.Address{}, false
	}
	addr, ok := v.(common.Address)
	return addr, ok
}
