package auth_test

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/realia-labs/realia/internal/auth"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// personalSign mimics what a browser wallet returns for personal_sign.
func personalSign(message string) (address string, signature string) {
	key, err := crypto.GenerateKey()
	Expect(err).To(BeNil())

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	Expect(err).To(BeNil())
	sig[64] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

var _ = Describe("wallet signatures", func() {
	It("recovers the signer of a personal message", func() {
		address, sig := personalSign("a1b2c3")

		recovered, err := auth.RecoverAddress("a1b2c3", sig)
		Expect(err).To(BeNil())
		Expect(recovered).To(Equal(strings.ToLower(address)))
		Expect(auth.VerifySignature(address, "a1b2c3", sig)).To(BeNil())
	})

	It("rejects a signature over another message", func() {
		address, sig := personalSign("a1b2c3")
		Expect(auth.VerifySignature(address, "tampered", sig)).To(MatchError(auth.ErrSignatureMismatch))
	})

	It("rejects malformed signatures", func() {
		_, err := auth.RecoverAddress("a1b2c3", "0x1234")
		Expect(err).ToNot(BeNil())

		_, err = auth.RecoverAddress("a1b2c3", "not-hex")
		Expect(err).ToNot(BeNil())
	})

	It("normalizes addresses", func() {
		addr, err := auth.NormalizeAddress("0xAbCdEf0000000000000000000000000000000001")
		Expect(err).To(BeNil())
		Expect(addr).To(Equal("0xabcdef0000000000000000000000000000000001"))

		_, err = auth.NormalizeAddress("0x123")
		Expect(err).ToNot(BeNil())
	})

	It("signs messages the way wallets do", func() {
		key, err := crypto.GenerateKey()
		Expect(err).To(BeNil())

		sig, err := auth.SignMessage(key, "nonce-1")
		Expect(err).To(BeNil())
		Expect(auth.VerifySignature(auth.AddressOf(key), "nonce-1", sig)).To(Succeed())

		loaded, err := auth.LoadPrivateKey(hexutil.Encode(crypto.FromECDSA(key)))
		Expect(err).To(BeNil())
		Expect(auth.AddressOf(loaded)).To(Equal(auth.AddressOf(key)))

		_, err = auth.LoadPrivateKey("zz")
		Expect(err).ToNot(BeNil())
	})
})
