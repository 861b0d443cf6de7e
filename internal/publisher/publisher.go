package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/realia-labs/realia/internal/store/model"
	"go.uber.org/zap"
)

const (
	IPFSScheme       = "ipfs://"
	DefaultKeyPrefix = "token-images"
	metadataMimeType = "application/json"
)

// PublishedMedia identifies the published copies of one submission.
type PublishedMedia struct {
	ImageCID    string
	MetadataCID string
	BlobKey     string
	Metadata    model.Metadata
}

// TokenURI is the uri written on chain.
func (p PublishedMedia) TokenURI() string {
	return IPFSURI(p.MetadataCID)
}

func IPFSURI(contentID string) string {
	return IPFSScheme + contentID
}

// BlobKey derives the object key from the image content id and the mime subtype.
func BlobKey(prefix, imageCID, mimeType string) string {
	_, ext, ok := strings.Cut(mimeType, "/")
	if !ok || ext == "" {
		ext = "bin"
	}
	return path.Join(prefix, fmt.Sprintf("%s.%s", imageCID, ext))
}

// Publisher writes an image to the content store and the blob store, then its metadata document.
type Publisher struct {
	content   ContentStore
	blobs     BlobStore
	keyPrefix string
	log       *zap.SugaredLogger
}

func New(content ContentStore, blobs BlobStore, keyPrefix string) *Publisher {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Publisher{
		content:   content,
		blobs:     blobs,
		keyPrefix: keyPrefix,
		log:       zap.S().Named("publisher"),
	}
}

// Publish stores the image and its metadata. Writes already made are kept when a later step fails.
func (p *Publisher) Publish(ctx context.Context, image []byte, filename, mimeType string, metadata model.Metadata) (*PublishedMedia, error) {
	imageCID, err := p.content.Add(ctx, filename, mimeType, image)
	if err != nil {
		return nil, fmt.Errorf("failed to add image to content store: %w", err)
	}

	key := BlobKey(p.keyPrefix, imageCID, mimeType)
	if err := p.blobs.Put(ctx, key, mimeType, image); err != nil {
		return nil, fmt.Errorf("failed to write image blob: %w", err)
	}

	metadata.Image = IPFSURI(imageCID)
	doc, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	metadataCID, err := p.content.Add(ctx, imageCID+".json", metadataMimeType, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to add metadata to content store: %w", err)
	}

	p.log.Debugw("media published", "image_cid", imageCID, "metadata_cid", metadataCID, "blob_key", key)

	return &PublishedMedia{
		ImageCID:    imageCID,
		MetadataCID: metadataCID,
		BlobKey:     key,
		Metadata:    metadata,
	}, nil
}

// ImageURL returns a time limited url of the blob.
func (p *Publisher) ImageURL(ctx context.Context, blobKey string, ttl time.Duration) (string, error) {
	return p.blobs.PresignedURL(ctx, blobKey, ttl)
}
