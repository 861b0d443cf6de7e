package apiserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/realia-labs/realia/internal/client"
	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/internal/events"
	"github.com/realia-labs/realia/internal/ledger"
	"github.com/realia-labs/realia/internal/pipeline"
	"github.com/realia-labs/realia/internal/publisher"
	"github.com/realia-labs/realia/internal/vectorindex"
)

const typeMemory = "memory"

// VectorIndex is what the api and the agent need from the embedding index.
type VectorIndex interface {
	vectorindex.Index
	Close() error
}

type memoryIndexCloser struct {
	*vectorindex.MemoryIndex
}

func (memoryIndexCloser) Close() error { return nil }

// NewVectorIndex connects to qdrant and makes sure the collection exists.
func NewVectorIndex(ctx context.Context, cfg *config.Config) (VectorIndex, error) {
	if strings.EqualFold(cfg.Vector.Type, typeMemory) {
		zap.S().Named("api_server").Warn("using an in-memory vector index, duplicates are forgotten on restart")
		return memoryIndexCloser{vectorindex.NewMemoryIndex()}, nil
	}

	index, err := vectorindex.NewQdrantIndex(&qdrant.Config{
		Host:   cfg.Vector.Host,
		Port:   cfg.Vector.Port,
		APIKey: cfg.Vector.ApiKey,
		UseTLS: cfg.Vector.UseTLS,
	}, vectorindex.WithCollection(cfg.Vector.Collection, cfg.Vector.Dimension))
	if err != nil {
		return nil, err
	}
	if err := index.EnsureCollection(ctx); err != nil {
		_ = index.Close()
		return nil, err
	}
	return index, nil
}

func SearchParams(cfg *config.Config) vectorindex.SearchParams {
	return vectorindex.SearchParams{TopK: cfg.Vector.TopK, HnswEf: cfg.Vector.HnswEf}
}

// NewLedgerBackend dials the rpc endpoint. The memory ledger needs no backend.
func NewLedgerBackend(ctx context.Context, cfg *config.Config) (*ethclient.Client, error) {
	backend, err := ethclient.DialContext(ctx, cfg.Ledger.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.Ledger.RPCURL, err)
	}
	return backend, nil
}

func NewEVMLedger(backend ledger.Backend, cfg *config.Config) (*ledger.EVMLedger, error) {
	return ledger.NewEVMLedger(
		backend,
		cfg.Ledger.PrivateKey,
		cfg.Ledger.ChainID,
		cfg.Ledger.NFTAddress,
		cfg.Ledger.FactoryAddress,
		ledger.WithLogsFromBlock(cfg.Ledger.LogsFromBlock),
		ledger.WithReceiptTimeout(cfg.Ledger.ReceiptTimeout),
	)
}

func newLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, func(), error) {
	if strings.EqualFold(cfg.Ledger.Type, typeMemory) {
		zap.S().Named("api_server").Warn("using an in-memory ledger, every wallet holds unlimited orders")
		return ledger.NewMemoryLedger(ledger.WithUnlimitedOrders()), func() {}, nil
	}

	backend, err := NewLedgerBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	l, err := NewEVMLedger(backend, cfg)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return l, backend.Close, nil
}

func newContentStore(cfg *config.Config) publisher.ContentStore {
	if strings.EqualFold(cfg.Ipfs.Type, typeMemory) {
		return publisher.NewMemoryContentStore()
	}
	return publisher.NewPinataStore(cfg.Ipfs.PinataURL, cfg.Ipfs.PinataJWT, cfg.Ipfs.Timeout)
}

func newBlobStore(cfg *config.Config) (publisher.BlobStore, error) {
	if strings.EqualFold(cfg.Storage.Type, typeMemory) {
		return publisher.NewMemoryBlobStore(cfg.Service.BaseUrl + "/blobs"), nil
	}
	return publisher.NewMinioBlobStore(
		publisher.WithEndpoint(cfg.Storage.Endpoint),
		publisher.WithBucket(cfg.Storage.Bucket),
		publisher.WithAccessKey(cfg.Storage.AccessKey),
		publisher.WithSecretKey(cfg.Storage.SecretKey),
		publisher.WithRegion(cfg.Storage.Region),
		publisher.WithSSL(cfg.Storage.UseSSL),
	)
}

// Dependencies are the external collaborators of the api, built from configuration.
type Dependencies struct {
	Embedder   pipeline.Embedder
	Classifier pipeline.Classifier
	Index      VectorIndex
	Ledger     ledger.Ledger
	Publisher  *publisher.Publisher
	Producer   *events.EventProducer

	closers []func()
}

func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	d := &Dependencies{
		Embedder:   client.NewEmbeddingClient(cfg.Embedding.URL, cfg.Embedding.Timeout),
		Classifier: client.NewClassifierClient(cfg.Classifier.URL, cfg.Classifier.ApiKey, cfg.Classifier.Timeout),
	}

	index, err := NewVectorIndex(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	d.Index = index
	d.closers = append(d.closers, func() { _ = index.Close() })

	l, closeLedger, err := newLedger(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	d.Ledger = l
	d.closers = append(d.closers, closeLedger)

	blobs, err := newBlobStore(cfg)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}
	d.Publisher = publisher.New(newContentStore(cfg), blobs, cfg.Storage.KeyPrefix)

	d.Producer = events.NewEventProducer(&events.StdoutWriter{})
	d.closers = append(d.closers, func() { _ = d.Producer.Close() })

	return d, nil
}

// Close releases the collaborators in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}
