package forwarder_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mintbay-api/internal/forwarder"
)

var targetAddr = common.HexToAddress("0x9000000000000000000000000000000000000001")

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 { return c.now }

// echoTarget records the caller it observed and echoes the payload back.
type echoTarget struct {
	lastCaller common.Address
	calls      int
	err        error
}

func (e *echoTarget) Call(_ context.Context, caller common.Address, payload []byte) ([]byte, error) {
	e.lastCaller = caller
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return payload, nil
}

func testDomain() forwarder.Domain {
	return forwarder.Domain{
		Name:              "Mintbay Forwarder",
		Version:           "1",
		ChainID:           big.NewInt(31337),
		VerifyingContract: common.HexToAddress("0x9000000000000000000000000000000000000099"),
	}
}

type harness struct {
	fwd    *forwarder.Forwarder
	target *echoTarget
	clock  *fakeClock
	domain forwarder.Domain
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		target: &echoTarget{},
		clock:  &fakeClock{now: 1000},
		domain: testDomain(),
	}
	h.fwd = forwarder.New(h.domain, h.clock)
	h.fwd.RegisterTarget(targetAddr, h.target)
	return h
}

func (h *harness) signedRequest(t *testing.T, key *ecdsaKey, nonce, validUntil uint64) forwarder.ForwardRequest {
	t.Helper()
	req := forwarder.ForwardRequest{
		From:       key.addr,
		To:         targetAddr,
		Payload:    []byte(`{"method":"buy"}`),
		Nonce:      nonce,
		ValidUntil: validUntil,
	}
	sig, err := forwarder.SignRequest(key.key, h.domain, req)
	require.NoError(t, err)
	req.Signature = sig
	return req
}

type ecdsaKey struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newKey(t *testing.T) *ecdsaKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &ecdsaKey{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

func TestExecuteForwardsAuthenticatedSigner(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)

	req := h.signedRequest(t, key, 0, 2000)
	out, err := h.fwd.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.Payload, out)
	assert.Equal(t, key.addr, h.target.lastCaller, "target sees the signer, not the relayer")
	assert.Equal(t, uint64(1), h.fwd.NonceOf(key.addr))
}

func TestExecuteRejectsReplay(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)

	req := h.signedRequest(t, key, 0, 2000)
	_, err := h.fwd.Execute(context.Background(), req)
	require.NoError(t, err)

	_, err = h.fwd.Execute(context.Background(), req)
	assert.ErrorIs(t, err, forwarder.ErrNonceReplay)
	assert.Equal(t, 1, h.target.calls, "replay must not reach the target")
}

func TestExecuteRejectsOutOfOrderNonce(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)

	// Nonce 2 while the counter is at 0: future nonces are rejected, not held.
	req := h.signedRequest(t, key, 2, 2000)
	_, err := h.fwd.Execute(context.Background(), req)
	assert.ErrorIs(t, err, forwarder.ErrNonceReplay)
	assert.Zero(t, h.fwd.NonceOf(key.addr))
}

func TestExecuteRejectsExpiredRequest(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)

	req := h.signedRequest(t, key, 0, 999)
	_, err := h.fwd.Execute(context.Background(), req)
	assert.ErrorIs(t, err, forwarder.ErrRequestExpired)
	assert.Zero(t, h.fwd.NonceOf(key.addr), "expired request must not spend the nonce")
}

func TestExecuteRejectsForgedSignatures(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)
	other := newKey(t)

	t.Run("wrong signer claimed", func(t *testing.T) {
		req := h.signedRequest(t, key, 0, 2000)
		req.From = other.addr
		_, err := h.fwd.Execute(context.Background(), req)
		assert.ErrorIs(t, err, forwarder.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		req := h.signedRequest(t, key, 0, 2000)
		req.Payload = []byte(`{"method":"list"}`)
		_, err := h.fwd.Execute(context.Background(), req)
		assert.ErrorIs(t, err, forwarder.ErrInvalidSignature)
	})

	t.Run("truncated signature", func(t *testing.T) {
		req := h.signedRequest(t, key, 0, 2000)
		req.Signature = req.Signature[:32]
		_, err := h.fwd.Execute(context.Background(), req)
		assert.ErrorIs(t, err, forwarder.ErrInvalidSignature)
	})

	assert.Zero(t, h.target.calls)
}

func TestExecuteSpendsNonceWhenTargetFails(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)
	h.target.err = errors.New("listing not found")

	req := h.signedRequest(t, key, 0, 2000)
	_, err := h.fwd.Execute(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, uint64(1), h.fwd.NonceOf(key.addr), "a consumed nonce stays spent")

	// Re-submitting the same envelope is now a replay.
	_, err = h.fwd.Execute(context.Background(), req)
	assert.ErrorIs(t, err, forwarder.ErrNonceReplay)
}

func TestExecuteRejectsUnknownTarget(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)

	req := forwarder.ForwardRequest{
		From:       key.addr,
		To:         common.HexToAddress("0x9000000000000000000000000000000000000077"),
		Payload:    []byte(`{}`),
		Nonce:      0,
		ValidUntil: 2000,
	}
	sig, err := forwarder.SignRequest(key.key, h.domain, req)
	require.NoError(t, err)
	req.Signature = sig

	_, err = h.fwd.Execute(context.Background(), req)
	assert.ErrorIs(t, err, forwarder.ErrUnknownTarget)
	assert.Zero(t, h.fwd.NonceOf(key.addr), "nothing was forwarded, so no nonce is spent")

	// The same nonce still works once the request names a real target.
	req.To = targetAddr
	sig, err = forwarder.SignRequest(key.key, h.domain, req)
	require.NoError(t, err)
	req.Signature = sig

	_, err = h.fwd.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h.fwd.NonceOf(key.addr))
}

func TestVerifyDoesNotSpendNonce(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)

	req := h.signedRequest(t, key, 0, 2000)

	signer, err := h.fwd.Verify(req)
	require.NoError(t, err)
	assert.Equal(t, key.addr, signer)
	assert.Zero(t, h.fwd.NonceOf(key.addr))

	// The same envelope still executes afterwards.
	_, err = h.fwd.Execute(context.Background(), req)
	assert.NoError(t, err)
}

func TestNoncesArePerSigner(t *testing.T) {
	h := newHarness(t)
	alice := newKey(t)
	bob := newKey(t)

	_, err := h.fwd.Execute(context.Background(), h.signedRequest(t, alice, 0, 2000))
	require.NoError(t, err)
	_, err = h.fwd.Execute(context.Background(), h.signedRequest(t, alice, 1, 2000))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), h.fwd.NonceOf(alice.addr))
	assert.Zero(t, h.fwd.NonceOf(bob.addr))

	_, err = h.fwd.Execute(context.Background(), h.signedRequest(t, bob, 0, 2000))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h.fwd.NonceOf(bob.addr))
}

func TestDomainSeparation(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)

	otherDomain := testDomain()
	otherDomain.ChainID = big.NewInt(1)
	other := forwarder.New(otherDomain, h.clock)
	other.RegisterTarget(targetAddr, h.target)

	// An envelope signed for one relay domain must not verify on another.
	req := h.signedRequest(t, key, 0, 2000)
	_, err := other.Execute(context.Background(), req)
	assert.ErrorIs(t, err, forwarder.ErrInvalidSignature)
}

func TestSignatureWithLegacyRecoveryID(t *testing.T) {
	h := newHarness(t)
	key := newKey(t)

	req := h.signedRequest(t, key, 0, 2000)
	// Some wallets return V as 27/28 instead of 0/1.
	req.Signature[crypto.RecoveryIDOffset] += 27

	_, err := h.fwd.Execute(context.Background(), req)
	assert.NoError(t, err)
}
