package handlers

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mintbay-api/internal/forwarder"
	"mintbay-api/internal/ledger"
	"mintbay-api/internal/marketplace"
)

type relayFixture struct {
	router *gin.Engine
	fwd    *forwarder.Forwarder
	domain forwarder.Domain
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	assets := ledger.NewMemoryAssetLedger()
	currency := ledger.NewMemoryCurrencyLedger()
	registry := ledger.NewMemoryRegistry(testTreasury)
	clock := &testClock{now: 100}

	engine := marketplace.NewEngine(marketplace.Config{
		Operator:         testOperator,
		PlatformTreasury: testPlatform,
		RoyaltyBps:       500,
		MarketFeeBps:     500,
	}, assets, currency, registry, clock)

	domain := forwarder.Domain{
		Name:              "Mintbay",
		Version:           "1",
		ChainID:           big.NewInt(31337),
		VerifyingContract: testOperator,
	}
	fwd := forwarder.New(domain, clock)
	fwd.RegisterTarget(testOperator, engine)

	h := NewForwarderHandler(NewCommonServices(engine, fwd, clock), NewRelayProcessor(fwd, 1, 10))

	router := gin.New()
	router.POST("/relay/execute", h.Execute)
	router.GET("/relay/nonce/:address", h.GetNonce)

	return &relayFixture{router: router, fwd: fwd, domain: domain}
}

func (f *relayFixture) post(t *testing.T, body ForwardRequestBody) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/relay/execute", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRelayExecuteHandler(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	signedBody := func(t *testing.T, f *relayFixture, payload []byte, nonce uint64) ForwardRequestBody {
		t.Helper()
		req := forwarder.ForwardRequest{
			From:       signer,
			To:         testOperator,
			Payload:    payload,
			Nonce:      nonce,
			ValidUntil: 2000,
		}
		sig, err := forwarder.SignRequest(key, f.domain, req)
		require.NoError(t, err)
		return ForwardRequestBody{
			From:       signer.Hex(),
			To:         testOperator.Hex(),
			Payload:    payload,
			Nonce:      nonce,
			ValidUntil: 2000,
			Signature:  hexutil.Encode(sig),
		}
	}

	t.Run("relays a signed listing creation", func(t *testing.T) {
		f := newRelayFixture(t)
		payload := []byte(`{"method":"list","list":{"asset_contract":"` + testAsset.Hex() + `","token_id":7,"currency":"` + testCurrency.Hex() + `","price_per_token":5,"quantity":100,"tokens_per_buyer":10,"start_time":0,"end_time":500}}`)

		w := f.post(t, signedBody(t, f, payload, 0))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, uint64(1), f.fwd.NonceOf(signer))
	})

	t.Run("rejects a tampered signature", func(t *testing.T) {
		f := newRelayFixture(t)
		body := signedBody(t, f, []byte(`{"method":"list"}`), 0)
		body.ValidUntil = 3000

		w := f.post(t, body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, uint64(0), f.fwd.NonceOf(signer))
	})

	t.Run("rejects a replayed nonce", func(t *testing.T) {
		f := newRelayFixture(t)
		payload := []byte(`{"method":"list","list":{"asset_contract":"` + testAsset.Hex() + `","token_id":7,"currency":"` + testCurrency.Hex() + `","price_per_token":5,"quantity":100,"tokens_per_buyer":10,"start_time":0,"end_time":500}}`)
		body := signedBody(t, f, payload, 0)

		w := f.post(t, body)
		require.Equal(t, http.StatusOK, w.Code)
		w = f.post(t, body)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects a malformed signature encoding", func(t *testing.T) {
		f := newRelayFixture(t)
		body := signedBody(t, f, []byte(`{"method":"list"}`), 0)
		body.Signature = "not-hex"

		w := f.post(t, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRelayNonceHandler(t *testing.T) {
	f := newRelayFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/relay/nonce/"+testSeller.Hex(), nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Address common.Address `json:"address"`
		Nonce   uint64         `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testSeller, resp.Address)
	assert.Equal(t, uint64(0), resp.Nonce)
}
