package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/realia-labs/realia/internal/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("gateway client", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/bafymeta":
				_, _ = w.Write([]byte(`{"name":"n"}`))
			default:
				http.NotFound(w, r)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("resolves ipfs uris", func() {
		c := client.NewGatewayClient(server.URL+"/", 0, 0)
		Expect(c.URL("ipfs://bafymeta")).To(Equal(server.URL + "/bafymeta"))

		body, err := c.Fetch(context.Background(), "ipfs://bafymeta")
		Expect(err).To(BeNil())
		Expect(string(body)).To(Equal(`{"name":"n"}`))
	})

	It("fails on missing content", func() {
		_, err := client.NewGatewayClient(server.URL, 0, 0).Fetch(context.Background(), "bafymissing")
		Expect(err).ToNot(BeNil())
	})

	It("enforces the size limit", func() {
		_, err := client.NewGatewayClient(server.URL, 4, 0).Fetch(context.Background(), "bafymeta")
		Expect(err).ToNot(BeNil())
	})
})
