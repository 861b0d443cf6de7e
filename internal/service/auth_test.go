package service_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/service"
	"github.com/realia-labs/realia/internal/store"
)

var _ = Describe("AuthService", Ordered, func() {
	var (
		s             store.Store
		gormdb        *gorm.DB
		authenticator *auth.SessionAuthenticator
		srv           *service.AuthService
		ctx           context.Context
	)

	BeforeAll(func() {
		s, gormdb = newTestStore()
		authenticator = auth.NewSessionAuthenticator([]byte("test-secret"), s.Session())
		srv = service.NewAuthService(s, authenticator, time.Hour)
		ctx = context.TODO()
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM sessions;")
		gormdb.Exec("DELETE FROM nonces;")
		gormdb.Exec("DELETE FROM users;")
	})

	Context("nonce", func() {
		It("registers the wallet and returns a 32 byte hex nonce", func() {
			w := newWallet()

			nonce, err := srv.CreateNonce(ctx, w.address)
			Expect(err).To(BeNil())
			Expect(nonce).To(HaveLen(64))

			var count int
			tx := gormdb.Raw(fmt.Sprintf("SELECT COUNT(*) FROM users WHERE address = '%s';", w.address)).Scan(&count)
			Expect(tx.Error).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rejects a malformed address", func() {
			_, err := srv.CreateNonce(ctx, "0x1234")
			Expect(err).ToNot(BeNil())
			_, ok := err.(*service.ErrInvalidAddress)
			Expect(ok).To(BeTrue())
		})
	})

	Context("connect", func() {
		It("opens a session for a signed nonce", func() {
			w := newWallet()
			nonce, err := srv.CreateNonce(ctx, w.address)
			Expect(err).To(BeNil())

			conn, err := srv.Connect(ctx, w.address, nonce, w.sign(nonce))
			Expect(err).To(BeNil())
			Expect(conn.Address).To(Equal(w.address))
			Expect(conn.Token).ToNot(BeEmpty())

			user, err := authenticator.Authenticate(ctx, conn.Token)
			Expect(err).To(BeNil())
			Expect(user.WalletAddress).To(Equal(w.address))
			Expect(user.SessionID).To(Equal(conn.SessionID))
		})

		It("spends the nonce", func() {
			w := newWallet()
			nonce, err := srv.CreateNonce(ctx, w.address)
			Expect(err).To(BeNil())

			_, err = srv.Connect(ctx, w.address, nonce, w.sign(nonce))
			Expect(err).To(BeNil())

			_, err = srv.Connect(ctx, w.address, nonce, w.sign(nonce))
			_, ok := err.(*service.ErrInvalidNonce)
			Expect(ok).To(BeTrue())
		})

		It("rejects a signature from another wallet", func() {
			w := newWallet()
			other := newWallet()
			nonce, err := srv.CreateNonce(ctx, w.address)
			Expect(err).To(BeNil())

			_, err = srv.Connect(ctx, w.address, nonce, other.sign(nonce))
			_, ok := err.(*service.ErrInvalidSignature)
			Expect(ok).To(BeTrue())
		})

		It("spends the nonce on a rejected signature", func() {
			w := newWallet()
			other := newWallet()
			nonce, err := srv.CreateNonce(ctx, w.address)
			Expect(err).To(BeNil())

			_, err = srv.Connect(ctx, w.address, nonce, other.sign(nonce))
			_, ok := err.(*service.ErrInvalidSignature)
			Expect(ok).To(BeTrue())

			_, err = srv.Connect(ctx, w.address, nonce, w.sign(nonce))
			_, ok = err.(*service.ErrInvalidNonce)
			Expect(ok).To(BeTrue())
		})

		It("rejects a message that is not the pending nonce", func() {
			w := newWallet()
			_, err := srv.CreateNonce(ctx, w.address)
			Expect(err).To(BeNil())

			_, err = srv.Connect(ctx, w.address, "hello", w.sign("hello"))
			_, ok := err.(*service.ErrInvalidNonce)
			Expect(ok).To(BeTrue())
		})
	})

	Context("logout", func() {
		It("revokes the session", func() {
			w := newWallet()
			nonce, err := srv.CreateNonce(ctx, w.address)
			Expect(err).To(BeNil())
			conn, err := srv.Connect(ctx, w.address, nonce, w.sign(nonce))
			Expect(err).To(BeNil())

			Expect(srv.Logout(ctx, conn.SessionID)).To(Succeed())

			_, err = authenticator.Authenticate(ctx, conn.Token)
			Expect(err).ToNot(BeNil())
		})

		It("returns the connected user", func() {
			w := newWallet()
			_, err := srv.CreateNonce(ctx, w.address)
			Expect(err).To(BeNil())

			user, err := srv.Me(ctx, w.address)
			Expect(err).To(BeNil())
			Expect(user.Address).To(Equal(w.address))

			_, err = srv.Me(ctx, newWallet().address)
			_, ok := err.(*service.ErrResourceNotFound)
			Expect(ok).To(BeTrue())
		})
	})
})
