package ledger_test

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/realia-labs/realia/internal/ledger"
)

var _ = Describe("decoder", func() {
	var (
		nftAddress   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
		otherAddress = common.HexToAddress("0x00000000000000000000000000000000000000b2")
		owner        = common.HexToAddress("0x1111111111111111111111111111111111111111")
		decoder      *ledger.Decoder
	)

	BeforeEach(func() {
		decoder = ledger.NewDecoder(ledger.NFTABI(), nftAddress)
	})

	Context("decode log", func() {
		It("decodes a Minted log", func() {
			log, err := ledger.PackLog(ledger.NFTABI(), nftAddress, ledger.EventMinted, owner, big.NewInt(42))
			Expect(err).To(BeNil())

			event, ok, err := decoder.DecodeLog(log)
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
			Expect(event.Name).To(Equal(ledger.EventMinted))
			Expect(event.Args).To(HaveLen(2))
			Expect(event.Args[0]).To(Equal(owner))
			Expect(event.Args[1].(*big.Int).Int64()).To(Equal(int64(42)))
		})

		It("skips logs of another contract", func() {
			log, err := ledger.PackLog(ledger.NFTABI(), otherAddress, ledger.EventMinted, owner, big.NewInt(42))
			Expect(err).To(BeNil())

			_, ok, err := decoder.DecodeLog(log)
			Expect(err).To(BeNil())
			Expect(ok).To(BeFalse())
		})

		It("skips events the interface does not declare", func() {
			log, err := ledger.PackLog(ledger.FactoryABI(), nftAddress, ledger.EventVerificationRequested, owner, big.NewInt(1))
			Expect(err).To(BeNil())

			_, ok, err := decoder.DecodeLog(log)
			Expect(err).To(BeNil())
			Expect(ok).To(BeFalse())
		})

		It("skips logs without topics", func() {
			_, ok, err := decoder.DecodeLog(&types.Log{Address: nftAddress})
			Expect(err).To(BeNil())
			Expect(ok).To(BeFalse())
		})

		It("fails on a truncated payload of a known event", func() {
			log, err := ledger.PackLog(ledger.NFTABI(), nftAddress, ledger.EventMinted, owner, big.NewInt(42))
			Expect(err).To(BeNil())
			log.Data = log.Data[:40]

			_, _, err = decoder.DecodeLog(log)
			Expect(err).ToNot(BeNil())
		})
	})

	Context("scan outcome", func() {
		It("returns the id of the first matching event after unrelated logs", func() {
			foreign, err := ledger.PackLog(ledger.NFTABI(), otherAddress, ledger.EventMinted, owner, big.NewInt(7))
			Expect(err).To(BeNil())
			minted, err := ledger.PackLog(ledger.NFTABI(), nftAddress, ledger.EventMinted, owner, big.NewInt(42))
			Expect(err).To(BeNil())

			id, err := ledger.ScanOutcome(decoder, []*types.Log{foreign, {Address: nftAddress}, minted}, ledger.EventMinted, ledger.OutcomeArgIndex)
			Expect(err).To(BeNil())
			Expect(id).To(Equal("42"))
		})

		It("reports a missing outcome", func() {
			foreign, err := ledger.PackLog(ledger.NFTABI(), otherAddress, ledger.EventMinted, owner, big.NewInt(7))
			Expect(err).To(BeNil())

			_, err = ledger.ScanOutcome(decoder, []*types.Log{foreign}, ledger.EventMinted, ledger.OutcomeArgIndex)
			Expect(errors.Is(err, ledger.ErrOutcomeMissing)).To(BeTrue())
		})

		It("treats a malformed log as absent", func() {
			broken, err := ledger.PackLog(ledger.NFTABI(), nftAddress, ledger.EventMinted, owner, big.NewInt(7))
			Expect(err).To(BeNil())
			broken.Data = broken.Data[:40]
			minted, err := ledger.PackLog(ledger.NFTABI(), nftAddress, ledger.EventMinted, owner, big.NewInt(42))
			Expect(err).To(BeNil())

			id, err := ledger.ScanOutcome(decoder, []*types.Log{broken, minted}, ledger.EventMinted, ledger.OutcomeArgIndex)
			Expect(err).To(BeNil())
			Expect(id).To(Equal("42"))

			_, err = ledger.ScanOutcome(decoder, []*types.Log{broken}, ledger.EventMinted, ledger.OutcomeArgIndex)
			Expect(errors.Is(err, ledger.ErrOutcomeMissing)).To(BeTrue())
		})

		It("reports a missing outcome for an empty receipt", func() {
			_, err := ledger.ScanOutcome(decoder, nil, ledger.EventMinted, ledger.OutcomeArgIndex)
			Expect(errors.Is(err, ledger.ErrOutcomeMissing)).To(BeTrue())
		})
	})

	Context("agent responses", func() {
		It("keeps responses of the requested id only", func() {
			factoryAddress := common.HexToAddress("0x00000000000000000000000000000000000000f1")
			factory := ledger.NewDecoder(ledger.FactoryABI(), factoryAddress)
			agent := common.HexToAddress("0x2222222222222222222222222222222222222222")

			first, err := ledger.PackLog(ledger.FactoryABI(), factoryAddress, ledger.EventVerificationResponseByAgent, agent, big.NewInt(3), true)
			Expect(err).To(BeNil())
			first.BlockNumber = 10
			second, err := ledger.PackLog(ledger.FactoryABI(), factoryAddress, ledger.EventVerificationResponseByAgent, agent, big.NewInt(4), false)
			Expect(err).To(BeNil())

			responses, err := ledger.CollectResponses(factory, []*types.Log{first, second}, "3")
			Expect(err).To(BeNil())
			Expect(responses).To(HaveLen(1))
			Expect(responses[0].Verified).To(BeTrue())
			Expect(responses[0].BlockNumber).To(Equal(uint64(10)))
			Expect(responses[0].Agent).To(Equal("0x2222222222222222222222222222222222222222"))
		})
	})
})
