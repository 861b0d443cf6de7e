package events

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	api "github.com/realia-labs/realia/api/v1alpha1"
)

var _ = Describe("reader", func() {
	It("reads events up to the terminal one", func() {
		w := httptest.NewRecorder()
		sink, err := NewSSESink(w)
		Expect(err).To(BeNil())
		e := NewEmitter(sink)
		Expect(e.Progress("publishing_media", "uploading")).To(Succeed())
		Expect(e.Fail(api.Error{Error: "duplicate image", Status: 400})).To(Succeed())

		r := NewReader(strings.NewReader(w.Body.String()))

		ev, err := r.Next()
		Expect(err).To(BeNil())
		Expect(ev.Kind).To(Equal(api.EventProgress))
		var progress api.Progress
		Expect(ev.Decode(&progress)).To(Succeed())
		Expect(progress.Stage).To(Equal("publishing_media"))

		ev, err = r.Next()
		Expect(err).To(BeNil())
		Expect(ev.Kind).To(Equal(api.EventError))

		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
	})

	It("reports a truncated stream", func() {
		body := "event: progress\ndata: {\"stage\":\"minting\",\"message\":\"sending\"}\n\nevent: progress\ndata: {\"sta"
		r := NewReader(strings.NewReader(body))

		ev, err := r.Next()
		Expect(err).To(BeNil())
		Expect(ev.Kind).To(Equal(api.EventProgress))

		_, err = r.Next()
		Expect(errors.Is(err, ErrStreamTruncated)).To(BeTrue())
	})

	It("skips comments and keep-alive blank lines", func() {
		r := NewReader(strings.NewReader(": ping\n\n\nevent: complete\ndata: {}\n\n"))

		ev, err := r.Next()
		Expect(err).To(BeNil())
		Expect(ev.Kind).To(Equal(api.EventComplete))
	})
})
