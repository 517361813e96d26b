package marketplace_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mintbay-api/internal/marketplace"
)

func TestCallDispatchesBuyForSigner(t *testing.T) {
	f := newFixture(t, 500, 500)
	id := f.listDefault(t)

	payload, err := json.Marshal(marketplace.RelayCall{
		Method: "buy",
		Buy:    &marketplace.RelayBuy{ListingID: id, Quantity: 4},
	})
	require.NoError(t, err)

	out, err := f.engine.Call(context.Background(), buyerAddr, payload)
	require.NoError(t, err)

	var receipt marketplace.Receipt
	require.NoError(t, json.Unmarshal(out, &receipt))
	assert.Equal(t, buyerAddr, receipt.Buyer, "relayed purchase settles for the signer")
	assert.Equal(t, int64(20), receipt.TotalPrice.Int64())

	bought, err := f.engine.BoughtFromListing(id, buyerAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), bought)
}

func TestCallDispatchesList(t *testing.T) {
	f := newFixture(t, 0, 0)

	payload, err := json.Marshal(marketplace.RelayCall{
		Method: "list",
		List: &marketplace.RelayList{
			AssetContract:  assetAddr,
			TokenID:        big.NewInt(7),
			Currency:       currencyAddr,
			PricePerToken:  big.NewInt(5),
			Quantity:       10,
			TokensPerBuyer: 5,
			StartTime:      0,
			EndTime:        100,
		},
	})
	require.NoError(t, err)

	out, err := f.engine.Call(context.Background(), sellerAddr, payload)
	require.NoError(t, err)

	var result marketplace.RelayListResult
	require.NoError(t, json.Unmarshal(out, &result))

	listing, err := f.engine.GetListing(result.ListingID)
	require.NoError(t, err)
	assert.Equal(t, sellerAddr, listing.Seller, "relayed listing belongs to the signer")
}

func TestCallRejectsMalformedPayloads(t *testing.T) {
	f := newFixture(t, 0, 0)
	ctx := context.Background()

	t.Run("not json", func(t *testing.T) {
		_, err := f.engine.Call(ctx, buyerAddr, []byte("not-json"))
		assert.Error(t, err)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := f.engine.Call(ctx, buyerAddr, []byte(`{"method":"cancel"}`))
		assert.ErrorIs(t, err, marketplace.ErrUnknownMethod)
	})

	t.Run("missing arguments", func(t *testing.T) {
		_, err := f.engine.Call(ctx, buyerAddr, []byte(`{"method":"buy"}`))
		assert.ErrorIs(t, err, marketplace.ErrUnknownMethod)
	})
}
