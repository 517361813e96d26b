package auth

import "errors"

var (
	ErrMissingAPIKey        = errors.New("api key is required")
	ErrInvalidAPIKey        = errors.New("invalid api key")
	ErrMissingWalletAddress = errors.New("wallet address header is required")
	ErrInvalidWalletAddress = errors.New("invalid wallet address")
)
