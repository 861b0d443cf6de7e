package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/realia-labs/realia/internal/publisher"
	"github.com/realia-labs/realia/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingBlobs struct{}

func (failingBlobs) Put(context.Context, string, string, []byte) error {
	return errors.New("bucket unavailable")
}

func (failingBlobs) PresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("bucket unavailable")
}

var _ = Describe("publisher", func() {
	var (
		content *publisher.MemoryContentStore
		blobs   *publisher.MemoryBlobStore
		pub     *publisher.Publisher
		image   = []byte("\x89PNG fake image bytes")
	)

	BeforeEach(func() {
		content = publisher.NewMemoryContentStore()
		blobs = publisher.NewMemoryBlobStore("http://blobs.local")
		pub = publisher.New(content, blobs, "")
	})

	It("links the metadata image field to the image content id", func() {
		media, err := pub.Publish(context.TODO(), image, "cat.png", "image/png", model.Metadata{Name: "n", Description: "d"})
		Expect(err).To(BeNil())

		raw, err := content.Get(context.TODO(), media.MetadataCID)
		Expect(err).To(BeNil())

		var doc model.Metadata
		Expect(json.Unmarshal(raw, &doc)).To(Succeed())
		Expect(doc.Image).To(Equal("ipfs://" + media.ImageCID))
		Expect(doc.Name).To(Equal("n"))
		Expect(doc.Description).To(Equal("d"))
		Expect(media.TokenURI()).To(Equal("ipfs://" + media.MetadataCID))
	})

	It("writes the image to the blob store under a key derived from its content id", func() {
		media, err := pub.Publish(context.TODO(), image, "cat.jpeg", "image/jpeg", model.Metadata{Name: "n", Description: "d"})
		Expect(err).To(BeNil())
		Expect(media.BlobKey).To(Equal("token-images/" + media.ImageCID + ".jpeg"))

		stored, ok := blobs.Object(media.BlobKey)
		Expect(ok).To(BeTrue())
		Expect(stored).To(Equal(image))

		url, err := pub.ImageURL(context.TODO(), media.BlobKey, time.Hour)
		Expect(err).To(BeNil())
		Expect(url).To(Equal("http://blobs.local/" + media.BlobKey))
	})

	It("produces identical ids for identical bytes on a content-hash store", func() {
		m1, err := pub.Publish(context.TODO(), image, "a.png", "image/png", model.Metadata{Name: "n", Description: "d"})
		Expect(err).To(BeNil())
		m2, err := pub.Publish(context.TODO(), image, "b.png", "image/png", model.Metadata{Name: "n", Description: "d"})
		Expect(err).To(BeNil())
		Expect(m2.ImageCID).To(Equal(m1.ImageCID))
		Expect(m2.MetadataCID).To(Equal(m1.MetadataCID))
	})

	It("keeps the image in the content store when the blob write fails", func() {
		p := publisher.New(content, failingBlobs{}, "")
		_, err := p.Publish(context.TODO(), image, "cat.png", "image/png", model.Metadata{Name: "n", Description: "d"})
		Expect(err).To(MatchError(ContainSubstring("bucket unavailable")))

		imageCID, err := publisher.ComputeCID(image)
		Expect(err).To(BeNil())
		_, err = content.Get(context.TODO(), imageCID)
		Expect(err).To(BeNil())
	})

	It("derives blob keys from the mime subtype", func() {
		Expect(publisher.BlobKey("token-images", "bafy", "image/webp")).To(Equal("token-images/bafy.webp"))
		Expect(publisher.BlobKey("token-images", "bafy", "garbage")).To(Equal("token-images/bafy.bin"))
	})
})
