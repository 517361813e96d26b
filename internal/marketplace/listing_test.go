package marketplace_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"mintbay-api/internal/marketplace"
)

func TestListingStatus(t *testing.T) {
	base := marketplace.Listing{
		TokenID:       big.NewInt(1),
		PricePerToken: big.NewInt(5),
		Quantity:      10,
		StartTime:     100,
		EndTime:       200,
	}

	tests := []struct {
		name     string
		quantity uint64
		now      uint64
		want     marketplace.ListingStatus
	}{
		{"before window", 10, 99, marketplace.StatusNotYetOpen},
		{"at start", 10, 100, marketplace.StatusActive},
		{"inside window", 10, 150, marketplace.StatusActive},
		{"at end", 10, 200, marketplace.StatusActive},
		{"after end", 10, 201, marketplace.StatusExpired},
		{"sold out inside window", 0, 150, marketplace.StatusSoldOut},
		{"sold out wins over expired", 0, 300, marketplace.StatusSoldOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := base
			l.Quantity = tt.quantity
			assert.Equal(t, tt.want, l.Status(tt.now))
		})
	}
}
