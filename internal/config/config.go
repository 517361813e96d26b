// Package config centralizes environment lookups so required deployment
// values fail loudly at startup instead of surfacing mid-request.
package config

import (
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"mintbay-api/internal/logger"
)

// MustEnv returns the named environment variable or exits.
func MustEnv(name string) string {
	v := os.Getenv(name)
	if v == "" {
		logger.Fatal("required environment variable is not set", zap.String("name", name))
	}
	return v
}

// EnvOrDefault returns the named environment variable or the fallback.
func EnvOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// MustAddress reads a required environment variable and validates it as a
// hex address.
func MustAddress(name string) common.Address {
	v := MustEnv(name)
	if !common.IsHexAddress(v) {
		logger.Fatal("environment variable is not a valid address",
			zap.String("name", name),
			zap.String("value", v),
		)
	}
	return common.HexToAddress(v)
}

// Uint64OrDefault reads an unsigned integer environment variable with a
// fallback.
func Uint64OrDefault(name string, fallback uint64) uint64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		logger.Fatal("environment variable is not a valid unsigned integer",
			zap.String("name", name),
			zap.String("value", v),
			zap.Error(err),
		)
	}
	return parsed
}
