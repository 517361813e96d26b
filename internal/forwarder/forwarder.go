package forwarder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"mintbay-api/internal/logger"
)

// Relay authentication failures.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNonceReplay      = errors.New("nonce already used or out of order")
	ErrRequestExpired   = errors.New("request expired")
	ErrUnknownTarget    = errors.New("unknown forward target")
)

// Clock supplies the expiry time base.
type Clock interface {
	Now() uint64
}

// Target is anything the relay can forward calls to. The caller argument is
// the authenticated signer, which the target must treat as the originator.
type Target interface {
	Call(ctx context.Context, caller common.Address, payload []byte) ([]byte, error)
}

// ForwardRequest is a signed authorization envelope: the signer authorizes
// one execution of Payload against To, valid until ValidUntil.
type ForwardRequest struct {
	From       common.Address `json:"from"`
	To         common.Address `json:"to"`
	Payload    []byte         `json:"payload"`
	Nonce      uint64         `json:"nonce"`
	ValidUntil uint64         `json:"valid_until"`
	Signature  []byte         `json:"signature"`
}

// Forwarder verifies signed forward requests and executes them against
// registered targets, spending one per-signer nonce per execution. Nonces are
// strictly sequential: a request must carry exactly the signer's current
// counter, so replays and out-of-order submissions both fail.
type Forwarder struct {
	mu      sync.Mutex
	domain  Domain
	nonces  map[common.Address]uint64
	targets map[common.Address]Target
	clock   Clock
	logger  *zap.Logger
}

// New creates a forwarder for the given signing domain.
func New(domain Domain, clock Clock) *Forwarder {
	log := logger.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Forwarder{
		domain:  domain,
		nonces:  make(map[common.Address]uint64),
		targets: make(map[common.Address]Target),
		clock:   clock,
		logger:  log,
	}
}

// RegisterTarget makes the target reachable under the given address.
func (f *Forwarder) RegisterTarget(addr common.Address, target Target) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets[addr] = target
}

// NonceOf returns the signer's current nonce, i.e. the value its next
// request must carry.
func (f *Forwarder) NonceOf(signer common.Address) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonces[signer]
}

// Verify authenticates the envelope without consuming its nonce: signature
// recovery against the claimed signer, expiry, then strict nonce equality.
func (f *Forwarder) Verify(req ForwardRequest) (common.Address, error) {
	signer, err := f.authenticate(req)
	if err != nil {
		return common.Address{}, err
	}

	f.mu.Lock()
	current := f.nonces[signer]
	f.mu.Unlock()
	if req.Nonce != current {
		return common.Address{}, fmt.Errorf("%w: expected %d, got %d", ErrNonceReplay, current, req.Nonce)
	}

	return signer, nil
}

// Execute verifies the envelope, spends the signer's nonce and forwards the
// payload with the signer bound as the effective caller. The nonce is spent
// before the forwarded call runs and stays spent even if that call fails.
func (f *Forwarder) Execute(ctx context.Context, req ForwardRequest) ([]byte, error) {
	signer, err := f.authenticate(req)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	current := f.nonces[signer]
	if req.Nonce != current {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonceReplay, current, req.Nonce)
	}
	target, ok := f.targets[req.To]
	if !ok {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, req.To.Hex())
	}
	// The nonce is spent only for dispatchable requests; an unregistered
	// target forwards nothing, so it must not consume one.
	f.nonces[signer] = current + 1
	f.mu.Unlock()

	out, err := target.Call(ctx, signer, req.Payload)
	if err != nil {
		f.logger.Warn("forwarded call failed, nonce stays spent",
			zap.String("signer", signer.Hex()),
			zap.String("target", req.To.Hex()),
			zap.Uint64("nonce", req.Nonce),
			zap.Error(err),
		)
		return nil, err
	}

	f.logger.Info("forwarded call executed",
		zap.String("signer", signer.Hex()),
		zap.String("target", req.To.Hex()),
		zap.Uint64("nonce", req.Nonce),
	)
	return out, nil
}

// authenticate checks the signature and expiry and returns the recovered
// signer.
func (f *Forwarder) authenticate(req ForwardRequest) (common.Address, error) {
	if len(req.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature must be %d bytes", ErrInvalidSignature, crypto.SignatureLength)
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, req.Signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(Digest(f.domain, req).Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if recovered := crypto.PubkeyToAddress(*pub); recovered != req.From {
		return common.Address{}, fmt.Errorf("%w: recovered %s, claimed %s", ErrInvalidSignature, recovered.Hex(), req.From.Hex())
	}

	if req.ValidUntil < f.clock.Now() {
		return common.Address{}, fmt.Errorf("%w: valid until %d, now %d", ErrRequestExpired, req.ValidUntil, f.clock.Now())
	}

	return req.From, nil
}
