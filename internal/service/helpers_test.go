package service_test

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/internal/store"
)

func newTestStore() (store.Store, *gorm.DB) {
	cfg, err := config.NewDefault()
	Expect(err).To(BeNil())
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file::memory:"

	db, err := store.InitDB(cfg)
	Expect(err).To(BeNil())

	s := store.NewStore(db)
	Expect(s.InitialMigration(context.TODO())).To(BeNil())
	return s, db
}

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet() wallet {
	key, err := crypto.GenerateKey()
	Expect(err).To(BeNil())
	return wallet{key: key, address: strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())}
}

// sign produces a personal_sign signature.
func (w wallet) sign(message string) string {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	Expect(err).To(BeNil())
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func mustBigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	Expect(ok).To(BeTrue())
	return n
}
