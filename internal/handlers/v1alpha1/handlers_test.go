package v1alpha1_test

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/events"
	"github.com/realia-labs/realia/internal/ledger"
)

func readStream(resp *http.Response) []events.Event {
	defer resp.Body.Close()
	reader := events.NewReader(resp.Body)
	var out []events.Event
	for {
		e, err := reader.Next()
		if err == io.EOF {
			return out
		}
		Expect(err).To(BeNil())
		out = append(out, e)
	}
}

var _ = Describe("mint and verify handlers", func() {
	var srv *testServer

	BeforeEach(func() {
		srv = newTestServer(false)
	})

	AfterEach(func() {
		srv.Shutdown()
	})

	It("streams the mint and lists the new token", func() {
		srv.chain.GrantOrder(devWallet, ledger.OrderMint)

		resp := postUpload(srv.URL+"/api/v1/mint", pngBytes, api.MintData{Name: "sunset", Description: "taken at dusk"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

		stream := readStream(resp)
		Expect(stream).ToNot(BeEmpty())
		last := stream[len(stream)-1]
		Expect(last.Kind).To(Equal(api.EventComplete))

		var result api.MintResult
		Expect(last.Decode(&result)).To(Succeed())
		Expect(result.TokenID).To(Equal("7"))
		Expect(result.ImageURL).To(HavePrefix("http://blobs.local/"))

		var list api.NftList
		decode(get(srv.URL+"/api/v1/nfts?owner="+devWallet), &list)
		Expect(list.Total).To(Equal(int64(1)))
		Expect(list.Items[0].Name).To(Equal("sunset"))

		var nft api.Nft
		decode(get(srv.URL+"/api/v1/nfts/7"), &nft)
		Expect(nft.Owner).To(Equal(devWallet))
		Expect(nft.TokenURI).To(HavePrefix("ipfs://"))
	})

	It("reports a missing image as an error event", func() {
		resp := postUpload(srv.URL+"/api/v1/mint", nil, api.MintData{Name: "n", Description: "d"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		stream := readStream(resp)
		last := stream[len(stream)-1]
		Expect(last.Kind).To(Equal(api.EventError))

		var apiErr api.Error
		Expect(last.Decode(&apiErr)).To(Succeed())
		Expect(apiErr.Status).To(Equal(http.StatusBadRequest))
		Expect(apiErr.Stage).To(Equal("validating_file"))
	})

	It("reports malformed data as invalid json", func() {
		resp := postUpload(srv.URL+"/api/v1/mint", pngBytes, `{"name": "sunset",`)

		stream := readStream(resp)
		last := stream[len(stream)-1]
		Expect(last.Kind).To(Equal(api.EventError))

		var apiErr api.Error
		Expect(last.Decode(&apiErr)).To(Succeed())
		Expect(apiErr.Status).To(Equal(http.StatusBadRequest))
		Expect(apiErr.Stage).To(Equal("validating_data"))
		Expect(apiErr.Error).To(Equal("Validation failed: data is not valid JSON"))
	})

	It("rejects an oversized image at the first stage", func() {
		oversized := append(append([]byte(nil), pngBytes...), make([]byte, 2048)...)
		resp := postUpload(srv.URL+"/api/v1/mint", oversized, api.MintData{Name: "n", Description: "d"})

		stream := readStream(resp)
		Expect(stream).To(HaveLen(2))
		Expect(stream[1].Kind).To(Equal(api.EventError))
	})

	It("ends the stream with 403 when no mint order exists", func() {
		resp := postUpload(srv.URL+"/api/v1/mint", pngBytes, api.MintData{Name: "n", Description: "d"})

		stream := readStream(resp)
		var apiErr api.Error
		Expect(stream[len(stream)-1].Decode(&apiErr)).To(Succeed())
		Expect(apiErr.Status).To(Equal(http.StatusForbidden))
	})

	It("answers verify with json and exposes the agent responses", func() {
		srv.chain.GrantOrder(devWallet, ledger.OrderVerify)

		resp := postUpload(srv.URL+"/api/v1/verify", pngBytes, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var verify api.VerifyResponse
		decode(resp, &verify)
		Expect(verify.VerificationID).ToNot(BeEmpty())

		var pending api.Verification
		decode(get(srv.URL+"/api/v1/verifications/"+verify.VerificationID), &pending)
		Expect(pending.Requester).To(Equal(devWallet))
		Expect(pending.Status).To(Equal(api.VerificationStatusPending))
		Expect(pending.Responses).To(BeEmpty())

		id, ok := new(big.Int).SetString(verify.VerificationID, 10)
		Expect(ok).To(BeTrue())
		_, err := srv.chain.Respond("0x3333333333333333333333333333333333333333", id, ledger.ResultVerified)
		Expect(err).To(BeNil())

		var done api.Verification
		decode(get(srv.URL+"/api/v1/verifications/"+verify.VerificationID), &done)
		Expect(done.Status).To(Equal(api.VerificationStatusVerified))
		Expect(done.Responses).To(HaveLen(1))

		var list api.AgentResponseList
		decode(get(srv.URL+"/api/v1/verifications/"+verify.VerificationID+"/responses"), &list)
		Expect(list.Responses).To(HaveLen(1))
		Expect(*list.Responses[0].Verified).To(BeTrue())
	})

	It("answers verify with 403 when no verification order exists", func() {
		resp := postUpload(srv.URL+"/api/v1/verify", pngBytes, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

		var apiErr api.Error
		decode(resp, &apiErr)
		Expect(apiErr.Stage).To(Equal("checking_order"))
	})

	It("returns 404 for unknown records", func() {
		resp := get(srv.URL + "/api/v1/nfts/404")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		resp.Body.Close()

		resp = get(srv.URL + "/api/v1/verifications/404")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		resp.Body.Close()
	})

	It("serves health and version info", func() {
		resp := get(srv.URL + "/health")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		resp.Body.Close()

		var info api.Info
		resp = get(srv.URL + "/api/v1/info")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		decode(resp, &info)
		Expect(info.VersionName).ToNot(BeEmpty())
	})

	It("rejects bad paging parameters", func() {
		resp := get(srv.URL + "/api/v1/nfts?limit=-1")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		resp.Body.Close()
	})
})

var _ = Describe("session handlers", func() {
	var (
		srv     *testServer
		key     *ecdsa.PrivateKey
		address string
	)

	sign := func(message string) string {
		sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
		Expect(err).To(BeNil())
		sig[crypto.RecoveryIDOffset] += 27
		return hexutil.Encode(sig)
	}

	connect := func() *http.Cookie {
		var nonce api.NonceResponse
		resp := postJSON(srv.URL+"/api/v1/auth/nonce", api.NonceRequest{Address: address})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		decode(resp, &nonce)

		resp = postJSON(srv.URL+"/api/v1/auth/connect", api.ConnectRequest{Address: address, Message: nonce.Nonce, Signature: sign(nonce.Nonce)})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		defer resp.Body.Close()

		for _, c := range resp.Cookies() {
			if c.Name == auth.TokenCookie {
				Expect(c.HttpOnly).To(BeTrue())
				return c
			}
		}
		Fail("no session cookie")
		return nil
	}

	BeforeEach(func() {
		srv = newTestServer(true)
		var err error
		key, err = crypto.GenerateKey()
		Expect(err).To(BeNil())
		address = strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	})

	AfterEach(func() {
		srv.Shutdown()
	})

	It("refuses mint and verify without a session before any work", func() {
		srv.chain.GrantOrder(address, ledger.OrderMint)

		resp := postUpload(srv.URL+"/api/v1/mint", pngBytes, api.MintData{Name: "n", Description: "d"})
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		resp.Body.Close()

		resp = postUpload(srv.URL+"/api/v1/verify", pngBytes, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		resp.Body.Close()

		ok, err := srv.chain.HasOrder(context.TODO(), address, ledger.OrderMint)
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
	})

	It("connects a wallet and serves its own data", func() {
		cookie := connect()

		var me api.Me
		resp := get(srv.URL+"/api/v1/auth/me", cookie)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		decode(resp, &me)
		Expect(me.Address).To(Equal(address))

		srv.chain.GrantOrder(address, ledger.OrderMint)
		stream := readStream(postUpload(srv.URL+"/api/v1/mint", pngBytes, api.MintData{Name: "n", Description: "d"}, cookie))
		Expect(stream[len(stream)-1].Kind).To(Equal(api.EventComplete))

		var list api.NftList
		decode(get(srv.URL+"/api/v1/user/nfts", cookie), &list)
		Expect(list.Total).To(Equal(int64(1)))
		Expect(list.Items[0].Owner).To(Equal(address))
	})

	It("rejects a mint whose attached signature is from another wallet", func() {
		cookie := connect()
		srv.chain.GrantOrder(address, ledger.OrderMint)

		other, err := crypto.GenerateKey()
		Expect(err).To(BeNil())
		sig, err := crypto.Sign(accounts.TextHash([]byte("mine")), other)
		Expect(err).To(BeNil())
		sig[crypto.RecoveryIDOffset] += 27

		data := api.MintData{Name: "n", Description: "d", Message: "mine", Signature: hexutil.Encode(sig)}
		stream := readStream(postUpload(srv.URL+"/api/v1/mint", pngBytes, data, cookie))

		var apiErr api.Error
		Expect(stream[len(stream)-1].Decode(&apiErr)).To(Succeed())
		Expect(apiErr.Error).To(Equal("Invalid signature"))
		Expect(apiErr.Stage).To(Equal("validating_data"))
	})

	It("rejects a connect with a foreign signature", func() {
		var nonce api.NonceResponse
		decode(postJSON(srv.URL+"/api/v1/auth/nonce", api.NonceRequest{Address: address}), &nonce)

		other, err := crypto.GenerateKey()
		Expect(err).To(BeNil())
		sig, err := crypto.Sign(accounts.TextHash([]byte(nonce.Nonce)), other)
		Expect(err).To(BeNil())
		sig[crypto.RecoveryIDOffset] += 27

		resp := postJSON(srv.URL+"/api/v1/auth/connect", api.ConnectRequest{Address: address, Message: nonce.Nonce, Signature: hexutil.Encode(sig)})
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		resp.Body.Close()
	})

	It("validates the nonce request", func() {
		resp := postJSON(srv.URL+"/api/v1/auth/nonce", api.NonceRequest{Address: "not-an-address"})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		var apiErr api.Error
		decode(resp, &apiErr)
		Expect(apiErr.Error).To(ContainSubstring("address"))
	})

	It("revokes the session on logout", func() {
		cookie := connect()

		resp := postJSON(srv.URL+"/api/v1/auth/logout", struct{}{}, cookie)
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		resp.Body.Close()

		resp = get(srv.URL+"/api/v1/auth/me", cookie)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		resp.Body.Close()
	})

	It("accepts the token as a bearer header", func() {
		cookie := connect()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/auth/me", nil)
		Expect(err).To(BeNil())
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cookie.Value))
		resp, err := http.DefaultClient.Do(req)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		resp.Body.Close()
	})
})
