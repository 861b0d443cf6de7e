package pipeline

import "github.com/realia-labs/realia/internal/ledger"

type Kind string

const (
	KindMint   Kind = "mint"
	KindVerify Kind = "verify"
)

// OrderKind is the entitlement a request of this kind consumes.
func (k Kind) OrderKind() ledger.OrderKind {
	if k == KindVerify {
		return ledger.OrderVerify
	}
	return ledger.OrderMint
}

type Stage string

const (
	StageValidatingFile         Stage = "validating_file"
	StageValidatingData         Stage = "validating_data"
	StageCheckingDuplicates     Stage = "checking_duplicates"
	StageClassifyingAI          Stage = "classifying_ai"
	StageCheckingOrder          Stage = "checking_order"
	StagePublishingMedia        Stage = "publishing_media"
	StageMinting                Stage = "minting"
	StageRequestingVerification Stage = "requesting_verification"
	StageIndexingEmbedding      Stage = "indexing_embedding"
	StagePersisting             Stage = "persisting"
)

var stageMessages = map[Stage]string{
	StageValidatingFile:         "Validating image",
	StageValidatingData:         "Validating token data",
	StageCheckingDuplicates:     "Checking for similar images",
	StageClassifyingAI:          "Checking whether the image is AI generated",
	StageCheckingOrder:          "Checking order",
	StagePublishingMedia:        "Uploading image and metadata",
	StageMinting:                "Minting token",
	StageRequestingVerification: "Requesting verification",
	StageIndexingEmbedding:      "Indexing image",
	StagePersisting:             "Saving record",
}

func (s Stage) Message() string {
	return stageMessages[s]
}

// Stages returns the ordered stages a request of kind k walks through.
func Stages(k Kind) []Stage {
	if k == KindVerify {
		return []Stage{
			StageValidatingFile,
			StageCheckingOrder,
			StagePublishingMedia,
			StageRequestingVerification,
			StagePersisting,
		}
	}
	return []Stage{
		StageValidatingFile,
		StageValidatingData,
		StageCheckingDuplicates,
		StageClassifyingAI,
		StageCheckingOrder,
		StagePublishingMedia,
		StageMinting,
		StageIndexingEmbedding,
		StagePersisting,
	}
}
