package service_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/realia-labs/realia/internal/consensus"
	"github.com/realia-labs/realia/internal/ledger"
	"github.com/realia-labs/realia/internal/publisher"
	"github.com/realia-labs/realia/internal/service"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/internal/store/model"
)

const (
	owner    = "0x1111111111111111111111111111111111111111"
	stranger = "0x2222222222222222222222222222222222222222"
)

var _ = Describe("RecordService", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		blobs  *publisher.MemoryBlobStore
		srv    *service.RecordService
		ctx    context.Context
	)

	insertRecord := func(tokenID, address string) {
		image, err := s.Image().Create(ctx, model.Image{
			ImageCID:    "cid-" + tokenID,
			MetadataCID: "meta-" + tokenID,
			BlobKey:     fmt.Sprintf("token-images/cid-%s.png", tokenID),
			MimeType:    "image/png",
			Metadata:    model.MakeJSONField(model.Metadata{Name: "n" + tokenID}),
		})
		Expect(err).To(BeNil())
		_, err = s.Record().Create(ctx, model.AuthenticityRecord{ID: uuid.New(), TokenID: tokenID, Owner: address, ImageID: image.ID})
		Expect(err).To(BeNil())
	}

	BeforeAll(func() {
		s, gormdb = newTestStore()
		ctx = context.TODO()
		blobs = publisher.NewMemoryBlobStore("http://blobs.local")
		srv = service.NewRecordService(s, publisher.New(publisher.NewMemoryContentStore(), blobs, ""), time.Hour)
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM nfts;")
		gormdb.Exec("DELETE FROM images;")
	})

	It("lists every record with the total", func() {
		insertRecord("1", owner)
		insertRecord("2", owner)
		insertRecord("3", stranger)

		records, total, err := srv.ListNfts(ctx, service.NftFilter{})
		Expect(err).To(BeNil())
		Expect(records).To(HaveLen(3))
		Expect(total).To(Equal(int64(3)))
	})

	It("filters by owner and pages", func() {
		insertRecord("1", owner)
		insertRecord("2", owner)
		insertRecord("3", stranger)

		records, total, err := srv.ListNfts(ctx, service.NftFilter{Owner: owner, Limit: 1})
		Expect(err).To(BeNil())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Owner).To(Equal(owner))
		Expect(total).To(Equal(int64(2)))
	})

	It("returns a typed not found error", func() {
		_, err := srv.GetNft(ctx, "404")
		Expect(err).ToNot(BeNil())
		_, ok := err.(*service.ErrResourceNotFound)
		Expect(ok).To(BeTrue())
	})

	It("presigns stored images only", func() {
		insertRecord("5", owner)
		record, err := srv.GetNft(ctx, "5")
		Expect(err).To(BeNil())
		Expect(srv.ImageURL(ctx, record.Image)).To(BeEmpty())

		Expect(blobs.Put(ctx, record.Image.BlobKey, "image/png", []byte("png"))).To(Succeed())
		Expect(srv.ImageURL(ctx, record.Image)).To(Equal("http://blobs.local/token-images/cid-5.png"))
	})
})

var _ = Describe("VerificationService", func() {
	It("returns the record and the on-chain responses", func() {
		s, _ := newTestStore()
		defer s.Close()
		ctx := context.TODO()

		chain := ledger.NewMemoryLedger(ledger.WithUnlimitedOrders())
		outcome, err := chain.RequestVerification(ctx, owner, "ipfs://meta")
		Expect(err).To(BeNil())
		_, err = chain.Agent(stranger).RespondVerification(ctx, mustBigInt(outcome.ID), ledger.ResultVerified, nil)
		Expect(err).To(BeNil())

		image, err := s.Image().Create(ctx, model.Image{ImageCID: "cid", MetadataCID: "meta", BlobKey: "k"})
		Expect(err).To(BeNil())
		_, err = s.Verification().Create(ctx, model.VerificationRecord{ID: uuid.New(), VerificationID: outcome.ID, Requester: owner, ImageID: image.ID})
		Expect(err).To(BeNil())

		srv := service.NewVerificationService(s, consensus.FromLedger(chain))
		record, err := srv.GetVerification(ctx, outcome.ID)
		Expect(err).To(BeNil())
		Expect(record.Requester).To(Equal(owner))

		responses, err := srv.Responses(ctx, outcome.ID)
		Expect(err).To(BeNil())
		Expect(responses).To(HaveLen(1))
		Expect(consensus.AnyTrue(responses)).To(BeTrue())

		_, err = srv.GetVerification(ctx, "99")
		_, ok := err.(*service.ErrResourceNotFound)
		Expect(ok).To(BeTrue())
	})
})
