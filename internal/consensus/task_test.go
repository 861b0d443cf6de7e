package consensus_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/realia-labs/realia/internal/consensus"
	"github.com/realia-labs/realia/internal/ledger"
)

func verdict(v bool) consensus.Response {
	return consensus.Response{Agent: "0xagent", Verified: &v}
}

// scriptedSource answers poll n with script[n], repeating the last entry afterwards.
type scriptedSource struct {
	lock   sync.Mutex
	script [][]consensus.Response
	errs   map[int]error
	polls  int
}

func (s *scriptedSource) ResponsesByID(_ context.Context, _ string) ([]consensus.Response, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	n := s.polls
	s.polls++
	if err, ok := s.errs[n]; ok {
		return nil, err
	}
	if len(s.script) == 0 {
		return nil, nil
	}
	if n >= len(s.script) {
		n = len(s.script) - 1
	}
	return s.script[n], nil
}

func (s *scriptedSource) Polls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.polls
}

var _ = Describe("consensus task", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.TODO()
	})

	It("reports verified once a later poll carries a true response and stops polling", func() {
		source := &scriptedSource{script: [][]consensus.Response{
			nil,
			{verdict(false)},
			{verdict(false), verdict(true)},
		}}

		task := consensus.Watch(ctx, source, "7", consensus.WithInterval(5*time.Millisecond), consensus.WithTimeout(5*time.Second))
		snap, err := task.Wait(ctx)
		Expect(err).To(BeNil())
		Expect(snap.State).To(Equal(consensus.StateVerified))
		Expect(snap.Attempts).To(Equal(3))
		Expect(snap.Responses).To(HaveLen(2))
		Expect(task.Verified()).To(BeTrue())

		polls := source.Polls()
		Consistently(source.Polls).WithTimeout(50 * time.Millisecond).Should(Equal(polls))
	})

	It("times out without ever reporting verified when nobody answers", func() {
		source := &scriptedSource{}

		task := consensus.Watch(ctx, source, "7", consensus.WithInterval(5*time.Millisecond), consensus.WithTimeout(60*time.Millisecond))
		Consistently(task.Verified).WithTimeout(40 * time.Millisecond).Should(BeFalse())

		snap, err := task.Wait(ctx)
		Expect(err).To(BeNil())
		Expect(snap.State).To(Equal(consensus.StateTimedOut))
		Expect(snap.Attempts).To(BeNumerically(">", 1))
		Expect(task.Verified()).To(BeFalse())
	})

	It("times out while the source is still blocked", func() {
		source := consensus.SourceFunc(func(ctx context.Context, _ string) ([]consensus.Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		start := time.Now()
		task := consensus.Watch(ctx, source, "7", consensus.WithInterval(10*time.Millisecond), consensus.WithTimeout(100*time.Millisecond))
		snap, err := task.Wait(waitCtx)
		Expect(err).To(BeNil())
		Expect(snap.State).To(Equal(consensus.StateTimedOut))
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
	})

	It("ends not verified on timeout when agents answered false", func() {
		source := &scriptedSource{script: [][]consensus.Response{{verdict(false)}}}

		task := consensus.Watch(ctx, source, "7", consensus.WithInterval(5*time.Millisecond), consensus.WithTimeout(40*time.Millisecond))
		snap, err := task.Wait(ctx)
		Expect(err).To(BeNil())
		Expect(snap.State).To(Equal(consensus.StateNotVerified))
	})

	It("stops on the first non-empty set when asked to", func() {
		source := &scriptedSource{script: [][]consensus.Response{
			{verdict(false)},
			{verdict(false), verdict(true)},
		}}

		task := consensus.Watch(ctx, source, "7", consensus.WithInterval(5*time.Millisecond), consensus.StopOnFirstResponse())
		snap, err := task.Wait(ctx)
		Expect(err).To(BeNil())
		Expect(snap.State).To(Equal(consensus.StateNotVerified))
		Expect(snap.Attempts).To(Equal(1))
	})

	It("treats poll errors as transient", func() {
		source := &scriptedSource{
			script: [][]consensus.Response{nil, nil, {verdict(true)}},
			errs:   map[int]error{0: errors.New("rpc unavailable"), 1: errors.New("rpc unavailable")},
		}

		task := consensus.Watch(ctx, source, "7", consensus.WithInterval(5*time.Millisecond))
		snap, err := task.Wait(ctx)
		Expect(err).To(BeNil())
		Expect(snap.State).To(Equal(consensus.StateVerified))
		Expect(snap.LastError).To(BeNil())
	})

	It("stops its ticker when cancelled", func() {
		source := &scriptedSource{}

		task := consensus.Watch(ctx, source, "7", consensus.WithInterval(5*time.Millisecond))
		Eventually(source.Polls).Should(BeNumerically(">=", 2))
		task.Cancel()
		Eventually(task.Done()).Should(BeClosed())
		Expect(task.Snapshot().State).To(Equal(consensus.StateCancelled))

		polls := source.Polls()
		Consistently(source.Polls).WithTimeout(30 * time.Millisecond).Should(Equal(polls))
	})

	It("applies the majority rule", func() {
		Expect(consensus.Majority([]consensus.Response{verdict(true), verdict(false)})).To(BeFalse())
		Expect(consensus.Majority([]consensus.Response{verdict(true), verdict(true), verdict(false)})).To(BeTrue())
		Expect(consensus.Majority(nil)).To(BeFalse())
		Expect(consensus.AnyTrue([]consensus.Response{verdict(false), {Agent: "0xabstain"}})).To(BeFalse())
	})

	Context("watcher", func() {
		It("cancels every task on close", func() {
			w := consensus.NewWatcher(&scriptedSource{}, consensus.WithInterval(5*time.Millisecond))
			first := w.Watch(ctx, "1")
			second := w.Watch(ctx, "2")
			Expect(w.Active()).To(Equal(2))

			w.Close()
			Expect(first.Done()).To(BeClosed())
			Expect(second.Done()).To(BeClosed())
			Eventually(w.Active).Should(BeZero())

			late := w.Watch(ctx, "3")
			Eventually(late.Done()).Should(BeClosed())
		})

		It("reads responses from ledger logs", func() {
			chain := ledger.NewMemoryLedger(ledger.WithUnlimitedOrders())
			outcome, err := chain.RequestVerification(ctx, "0x1111111111111111111111111111111111111111", "ipfs://meta")
			Expect(err).To(BeNil())

			w := consensus.NewWatcher(consensus.FromLedger(chain), consensus.WithInterval(5*time.Millisecond))
			defer w.Close()
			task := w.Watch(ctx, outcome.ID)

			_, err = chain.Respond("0x2222222222222222222222222222222222222222", big.NewInt(1), ledger.ResultNotVerified)
			Expect(err).To(BeNil())
			_, err = chain.Respond("0x3333333333333333333333333333333333333333", big.NewInt(1), ledger.ResultVerified)
			Expect(err).To(BeNil())

			snap, err := task.Wait(ctx)
			Expect(err).To(BeNil())
			Expect(snap.State).To(Equal(consensus.StateVerified))
		})
	})
})
