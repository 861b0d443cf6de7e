package client_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/realia-labs/realia/internal/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func classifierServer(verdict string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		Expect(r.Header.Get("Authorization")).To(Equal("Bearer key"))

		file, header, err := r.FormFile("image")
		Expect(err).To(BeNil())
		Expect(header.Filename).To(Equal("image.png"))
		content, _ := io.ReadAll(file)
		Expect(string(content)).To(Equal("png-bytes"))

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"1","report":{"ai_generated":{"verdict":"` + verdict + `","ai":{"confidence":0.9}}}}`))
	}))
}

var _ = Describe("classifier client", func() {
	It("reports an ai verdict", func() {
		server := classifierServer("ai", http.StatusOK)
		defer server.Close()

		isAI, err := client.NewClassifierClient(server.URL, "key", 0).IsAIGenerated(context.Background(), []byte("png-bytes"), "image/png")
		Expect(err).To(BeNil())
		Expect(isAI).To(BeTrue())
	})

	It("reports a human verdict", func() {
		server := classifierServer("human", http.StatusOK)
		defer server.Close()

		isAI, err := client.NewClassifierClient(server.URL, "key", 0).IsAIGenerated(context.Background(), []byte("png-bytes"), "image/png")
		Expect(err).To(BeNil())
		Expect(isAI).To(BeFalse())
	})

	It("propagates service failures", func() {
		server := classifierServer("ai", http.StatusTooManyRequests)
		defer server.Close()

		_, err := client.NewClassifierClient(server.URL, "key", 0).IsAIGenerated(context.Background(), []byte("png-bytes"), "image/png")
		Expect(err).ToNot(BeNil())
	})
})
