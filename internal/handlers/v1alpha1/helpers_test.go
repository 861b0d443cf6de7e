package v1alpha1_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/gomega"

	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/internal/consensus"
	handlers "github.com/realia-labs/realia/internal/handlers/v1alpha1"
	"github.com/realia-labs/realia/internal/ledger"
	"github.com/realia-labs/realia/internal/pipeline"
	"github.com/realia-labs/realia/internal/publisher"
	"github.com/realia-labs/realia/internal/service"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/internal/vectorindex"
)

const devWallet = "0x1111111111111111111111111111111111111111"

var pngBytes = []byte("\x89PNG\r\n\x1a\nhandler image")

type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, image []byte) ([]float32, error) {
	sum := sha256.Sum256(image)
	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = float32(sum[i]) + 1
	}
	return vec, nil
}

type humanClassifier struct{}

func (humanClassifier) IsAIGenerated(context.Context, []byte, string) (bool, error) {
	return false, nil
}

// testServer wires the handlers over in-memory collaborators.
type testServer struct {
	*httptest.Server
	store         store.Store
	chain         *ledger.MemoryLedger
	blobs         *publisher.MemoryBlobStore
	authenticator *auth.SessionAuthenticator
}

// newTestServer protects routes with sessions when sessions is true, otherwise
// every request acts as devWallet.
func newTestServer(sessions bool) *testServer {
	cfg, err := config.NewDefault()
	Expect(err).To(BeNil())
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file::memory:"

	db, err := store.InitDB(cfg)
	Expect(err).To(BeNil())
	s := store.NewStore(db)
	Expect(s.InitialMigration(context.TODO())).To(BeNil())

	chain := ledger.NewMemoryLedger(ledger.WithFirstTokenID(7))
	index := vectorindex.NewMemoryIndex()
	blobs := publisher.NewMemoryBlobStore("http://blobs.local")
	pub := publisher.New(publisher.NewMemoryContentStore(), blobs, "")

	orch := pipeline.NewOrchestrator(pipeline.Collaborators{
		Embedder:   hashEmbedder{},
		Classifier: humanClassifier{},
		Duplicates: vectorindex.NewDuplicateDetector(index, vectorindex.SearchParams{}, 0),
		Gate:       chain,
		Minter:     chain,
		Publisher:  pub,
		Index:      index,
		Store:      s,
	}, pipeline.WithMaxUploadSize(1024))

	sessionAuth := auth.NewSessionAuthenticator([]byte("handler-secret"), s.Session())
	h := handlers.NewServiceHandler(
		orch,
		service.NewAuthService(s, sessionAuth, time.Hour),
		service.NewRecordService(s, pub, time.Hour),
		service.NewVerificationService(s, consensus.FromLedger(chain)),
		handlers.WithMaxUploadSize(1024),
		handlers.WithSecureCookie(false),
	)

	authenticate := sessionAuth.Authenticator
	if !sessions {
		none, err := auth.NewNoneAuthenticator(devWallet)
		Expect(err).To(BeNil())
		authenticate = none.Authenticator
	}

	router := chi.NewRouter()
	handlers.HandlerFromMux(h, router, authenticate)

	return &testServer{
		Server:        httptest.NewServer(router),
		store:         s,
		chain:         chain,
		blobs:         blobs,
		authenticator: sessionAuth,
	}
}

func (t *testServer) Shutdown() {
	t.Close()
	Expect(t.store.Close()).To(Succeed())
}

// upload builds a multipart body with an optional image part and an optional data part.
func upload(image []byte, data any) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
		header.Set("Content-Type", "image/png")
		part, err := w.CreatePart(header)
		Expect(err).To(BeNil())
		_, err = part.Write(image)
		Expect(err).To(BeNil())
	}

	switch d := data.(type) {
	case nil:
	case string:
		// sent as is, valid JSON or not
		Expect(w.WriteField("data", d)).To(Succeed())
	default:
		raw, err := json.Marshal(d)
		Expect(err).To(BeNil())
		Expect(w.WriteField("data", string(raw))).To(Succeed())
	}

	Expect(w.Close()).To(Succeed())
	return body, w.FormDataContentType()
}

func postUpload(url string, image []byte, data any, cookies ...*http.Cookie) *http.Response {
	body, contentType := upload(image, data)
	req, err := http.NewRequest(http.MethodPost, url, body)
	Expect(err).To(BeNil())
	req.Header.Set("Content-Type", contentType)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	Expect(err).To(BeNil())
	return resp
}

func postJSON(url string, payload any, cookies ...*http.Cookie) *http.Response {
	raw, err := json.Marshal(payload)
	Expect(err).To(BeNil())
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	Expect(err).To(BeNil())
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	Expect(err).To(BeNil())
	return resp
}

func get(url string, cookies ...*http.Cookie) *http.Response {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	Expect(err).To(BeNil())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	Expect(err).To(BeNil())
	return resp
}

func decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
}
