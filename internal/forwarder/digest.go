package forwarder

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// domainTypeHash is the keccak256 hash of the EIP712Domain type definition
	domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

	// requestTypeHash is the keccak256 hash of the ForwardRequest type definition
	requestTypeHash = crypto.Keccak256Hash([]byte("ForwardRequest(address from,address to,bytes32 payloadHash,uint256 nonce,uint256 validUntil)"))
)

// Domain identifies one relay deployment. It is mixed into every digest so a
// signature authorized for one relay cannot be replayed against another.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

func (d Domain) separator() common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		common.LeftPadBytes(d.ChainID.Bytes(), 32),
		common.LeftPadBytes(d.VerifyingContract.Bytes(), 32),
	)
}

func padUint64(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}

// Digest computes the domain-separated signing digest for a forward request.
// The payload enters through its keccak hash, so signatures commit to the
// exact call bytes without re-encoding them.
func Digest(domain Domain, req ForwardRequest) common.Hash {
	structHash := crypto.Keccak256Hash(
		requestTypeHash.Bytes(),
		common.LeftPadBytes(req.From.Bytes(), 32),
		common.LeftPadBytes(req.To.Bytes(), 32),
		crypto.Keccak256(req.Payload),
		padUint64(req.Nonce),
		padUint64(req.ValidUntil),
	)

	return crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		domain.separator().Bytes(),
		structHash.Bytes(),
	)
}

// SignRequest produces the 65-byte secp256k1 signature the relay verifies.
// Used by the test suites and by clients constructing envelopes locally.
func SignRequest(key *ecdsa.PrivateKey, domain Domain, req ForwardRequest) ([]byte, error) {
	return crypto.Sign(Digest(domain, req).Bytes(), key)
}
