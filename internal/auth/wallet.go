package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrSignatureMismatch = errors.New("signature does not match the wallet")

// NormalizeAddress validates a hex address and returns its lowercase form.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid wallet address %q", address)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// RecoverAddress returns the signer of a personal_sign (EIP-191) message.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("malformed signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	// wallets produce v in {27,28}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover signer: %w", err)
	}

	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// VerifySignature checks that message was signed by address.
func VerifySignature(address, message, signature string) error {
	want, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	got, err := RecoverAddress(message, signature)
	if err != nil {
		return err
	}
	if got != want {
		return ErrSignatureMismatch
	}
	return nil
}

// SignMessage produces the personal_sign signature a browser wallet would return.
func SignMessage(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// LoadPrivateKey parses a hex encoded secp256k1 key, with or without the 0x prefix.
func LoadPrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet key: %w", err)
	}
	return key, nil
}

// AddressOf returns the lowercase address of key.
func AddressOf(key *ecdsa.PrivateKey) string {
	return strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
}
