package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/realia-labs/realia/internal/events"
	"github.com/realia-labs/realia/internal/ledger"
	"github.com/realia-labs/realia/internal/publisher"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/internal/store/model"
	"github.com/realia-labs/realia/internal/vectorindex"
	"github.com/realia-labs/realia/pkg/metrics"
)

type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

type Classifier interface {
	IsAIGenerated(ctx context.Context, image []byte, mimeType string) (bool, error)
}

type DuplicateFinder interface {
	FindDuplicate(ctx context.Context, vector []float32) (*vectorindex.Match, error)
}

type EntitlementGate interface {
	HasOrder(ctx context.Context, actor string, kind ledger.OrderKind) (bool, error)
}

type Minter interface {
	Mint(ctx context.Context, to, uri string) (*ledger.Outcome, error)
	RequestVerification(ctx context.Context, user, uri string) (*ledger.Outcome, error)
}

type MediaPublisher interface {
	Publish(ctx context.Context, image []byte, filename, mimeType string, metadata model.Metadata) (*publisher.PublishedMedia, error)
	ImageURL(ctx context.Context, blobKey string, ttl time.Duration) (string, error)
}

type IndexWriter interface {
	Upsert(ctx context.Context, point vectorindex.Point) error
}

// LifecycleProducer receives an event once a record is stored.
type LifecycleProducer interface {
	WriteJSON(ctx context.Context, kind string, payload any) error
}

// Reporter receives one call per stage entered.
type Reporter interface {
	Progress(stage, message string) error
}

type Collaborators struct {
	Embedder   Embedder
	Classifier Classifier
	Duplicates DuplicateFinder
	Gate       EntitlementGate
	Minter     Minter
	Publisher  MediaPublisher
	Index      IndexWriter
	Store      store.Store
}

// Result is the outcome of a successful run.
type Result struct {
	Kind         Kind
	Outcome      ledger.Outcome
	Media        publisher.PublishedMedia
	ImageURL     string
	Record       *model.AuthenticityRecord
	Verification *model.VerificationRecord
}

type Orchestrator struct {
	Collaborators
	producer      LifecycleProducer
	maxUploadSize int64
	presignTTL    time.Duration
	log           *zap.SugaredLogger
}

type Option func(o *Orchestrator)

func WithMaxUploadSize(size int64) Option {
	return func(o *Orchestrator) {
		o.maxUploadSize = size
	}
}

func WithPresignTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.presignTTL = ttl
	}
}

func WithLifecycleProducer(p LifecycleProducer) Option {
	return func(o *Orchestrator) {
		o.producer = p
	}
}

func NewOrchestrator(c Collaborators, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Collaborators: c,
		presignTTL:    24 * time.Hour,
		log:           zap.S().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run holds the state of one request as it walks the stages.
type run struct {
	*Orchestrator
	req      Request
	reporter Reporter
	stage    Stage
	started  time.Time
	vector   []float32
	media    *publisher.PublishedMedia
	outcome  *ledger.Outcome
	recordID uuid.UUID
}

// Run executes every stage of req in order and stops at the first failure, which is
// always a *StageError. Writes that follow a submitted transaction use a context
// detached from ctx so a disconnecting client cannot lose a minted token.
func (o *Orchestrator) Run(ctx context.Context, req Request, reporter Reporter) (*Result, error) {
	r := &run{Orchestrator: o, req: req, reporter: reporter, recordID: uuid.New()}

	var steps map[Stage]func(context.Context) *StageError
	if req.Kind == KindVerify {
		steps = map[Stage]func(context.Context) *StageError{
			StageValidatingFile:         r.validateFile,
			StageCheckingOrder:          r.checkOrder,
			StagePublishingMedia:        r.publish,
			StageRequestingVerification: r.requestVerification,
		}
	} else {
		steps = map[Stage]func(context.Context) *StageError{
			StageValidatingFile:     r.validateFile,
			StageValidatingData:     r.validateData,
			StageCheckingDuplicates: r.checkDuplicates,
			StageClassifyingAI:      r.classify,
			StageCheckingOrder:      r.checkOrder,
			StagePublishingMedia:    r.publish,
			StageMinting:            r.mint,
			StageIndexingEmbedding:  r.index,
		}
	}

	var result *Result
	for _, stage := range Stages(req.Kind) {
		r.enter(stage)

		var serr *StageError
		if stage == StagePersisting {
			result, serr = r.persist(context.WithoutCancel(ctx))
		} else {
			serr = steps[stage](ctx)
		}
		if serr != nil {
			r.fail(serr)
			return nil, serr
		}
		r.leave("ok")
	}

	metrics.IncreasePipelineRuns(string(req.Kind), "complete")
	r.log.Infow("pipeline complete", "kind", req.Kind, "actor", req.actor(), "id", r.outcome.ID, "tx", r.outcome.TxHash)
	return result, nil
}

func (r *run) enter(stage Stage) {
	r.stage = stage
	r.started = time.Now()
	if r.reporter == nil {
		return
	}
	if err := r.reporter.Progress(string(stage), stage.Message()); err != nil {
		// the client may be gone; keep going so a submitted transaction is still stored
		r.log.Debugw("progress not delivered", "stage", stage, "error", err)
	}
}

func (r *run) leave(outcome string) {
	metrics.ObserveStage(string(r.req.Kind), string(r.stage), outcome, float64(time.Since(r.started).Milliseconds()))
}

func (r *run) fail(serr *StageError) {
	r.leave(string(serr.Kind))
	metrics.IncreasePipelineRuns(string(r.req.Kind), string(serr.Kind))

	switch serr.Kind {
	case ErrorUpstream:
		r.log.Errorw("pipeline stage failed", "kind", r.req.Kind, "stage", serr.Stage, "actor", r.req.actor(), "error", serr.Err)
	case ErrorChainOutcomeMissing:
		metrics.IncreaseChainOutcomeMissing(string(r.req.Kind))
		r.log.Errorw("transaction mined without an id event, fees spent with no usable result", "kind", r.req.Kind, "stage", serr.Stage, "actor", r.req.actor(), "error", serr.Err)
	default:
		r.log.Infow("pipeline request rejected", "kind", r.req.Kind, "stage", serr.Stage, "actor", r.req.actor(), "reason", serr.Message)
	}
}

func (r *run) validateFile(_ context.Context) *StageError {
	return r.req.validateFile(r.maxUploadSize)
}

func (r *run) validateData(_ context.Context) *StageError {
	return r.req.validateData()
}

func (r *run) checkDuplicates(ctx context.Context) *StageError {
	vector, err := r.Embedder.Embed(ctx, r.req.Image)
	if err != nil {
		return NewUpstreamError(StageCheckingDuplicates, "Failed to compute image embedding", err)
	}
	r.vector = vector

	match, err := r.Duplicates.FindDuplicate(ctx, vector)
	if err != nil {
		return NewUpstreamError(StageCheckingDuplicates, "Failed to search similar images", err)
	}
	if match != nil {
		r.log.Infow("duplicate image", "actor", r.req.actor(), "match", match.ID, "score", match.Score)
		return NewDuplicateError(match)
	}
	return nil
}

func (r *run) classify(ctx context.Context) *StageError {
	isAI, err := r.Classifier.IsAIGenerated(ctx, r.req.Image, r.req.MimeType)
	if err != nil {
		return NewUpstreamError(StageClassifyingAI, "Failed to classify image", err)
	}
	if isAI {
		return NewAIGeneratedError()
	}
	return nil
}

func (r *run) checkOrder(ctx context.Context) *StageError {
	kind := r.req.Kind.OrderKind()
	ok, err := r.Gate.HasOrder(ctx, r.req.actor(), kind)
	if err != nil {
		return NewUpstreamError(StageCheckingOrder, "Failed to check order", err)
	}
	if !ok {
		return NewEntitlementError(kind)
	}
	return nil
}

func (r *run) publish(ctx context.Context) *StageError {
	media, err := r.Publisher.Publish(ctx, r.req.Image, r.req.Filename, r.req.MimeType, r.metadata())
	if err != nil {
		return NewUpstreamError(StagePublishingMedia, "Failed to upload media", err)
	}
	r.media = media
	return nil
}

func (r *run) metadata() model.Metadata {
	if r.req.Kind == KindVerify || r.req.Metadata == nil {
		return model.Metadata{
			Name:        "Verification request",
			Description: fmt.Sprintf("Submitted by %s", r.req.actor()),
		}
	}
	return model.Metadata{Name: r.req.Metadata.Name, Description: r.req.Metadata.Description}
}

func (r *run) mint(ctx context.Context) *StageError {
	if err := ctx.Err(); err != nil {
		return NewUpstreamError(StageMinting, "Request cancelled before minting", err)
	}
	outcome, err := r.Minter.Mint(context.WithoutCancel(ctx), r.req.actor(), r.media.TokenURI())
	return r.chainOutcome(StageMinting, "Failed to mint NFT", outcome, err)
}

func (r *run) requestVerification(ctx context.Context) *StageError {
	if err := ctx.Err(); err != nil {
		return NewUpstreamError(StageRequestingVerification, "Request cancelled before submission", err)
	}
	outcome, err := r.Minter.RequestVerification(context.WithoutCancel(ctx), r.req.actor(), r.media.TokenURI())
	return r.chainOutcome(StageRequestingVerification, "Failed to request verification", outcome, err)
}

func (r *run) chainOutcome(stage Stage, message string, outcome *ledger.Outcome, err error) *StageError {
	if err != nil {
		if errors.Is(err, ledger.ErrOutcomeMissing) {
			return NewChainOutcomeMissingError(stage, err)
		}
		return NewUpstreamError(stage, message, err)
	}
	if outcome == nil || outcome.ID == "" {
		return NewChainOutcomeMissingError(stage, ledger.ErrOutcomeMissing)
	}
	r.outcome = outcome
	return nil
}

func (r *run) index(ctx context.Context) *StageError {
	point := vectorindex.Point{
		ID:     uuid.New(),
		Vector: r.vector,
		Payload: map[string]string{
			vectorindex.PayloadTokenID:  r.outcome.ID,
			vectorindex.PayloadRecordID: r.recordID.String(),
			vectorindex.PayloadURI:      r.media.TokenURI(),
		},
	}
	if err := r.Index.Upsert(context.WithoutCancel(ctx), point); err != nil {
		// the token exists on chain; keep its record even though the index write failed
		if _, serr := r.persist(context.WithoutCancel(ctx)); serr != nil {
			r.log.Errorw("failed to store record after index failure", "token", r.outcome.ID, "error", serr.Err)
		}
		return NewUpstreamError(StageIndexingEmbedding, "Failed to index image", err)
	}
	return nil
}

func (r *run) persist(ctx context.Context) (*Result, *StageError) {
	result := &Result{Kind: r.req.Kind, Outcome: *r.outcome, Media: *r.media}

	err := store.InTransaction(ctx, r.Store, func(txCtx context.Context) error {
		return r.write(txCtx, result)
	})
	if err != nil {
		return nil, NewUpstreamError(StagePersisting, "Failed to save record", err)
	}

	if url, err := r.Publisher.ImageURL(ctx, r.media.BlobKey, r.presignTTL); err == nil {
		result.ImageURL = url
	} else {
		r.log.Warnw("failed to presign image url", "key", r.media.BlobKey, "error", err)
	}

	r.publishLifecycle(ctx, result)
	return result, nil
}

func (r *run) write(ctx context.Context, result *Result) error {
	if _, err := r.Store.User().GetOrCreate(ctx, r.req.actor()); err != nil {
		return err
	}

	image, err := r.Store.Image().Create(ctx, model.Image{
		ID:          uuid.New(),
		ImageCID:    r.media.ImageCID,
		MetadataCID: r.media.MetadataCID,
		BlobKey:     r.media.BlobKey,
		MimeType:    r.req.MimeType,
		Metadata:    model.MakeJSONField(r.media.Metadata),
	})
	if err != nil {
		return err
	}

	if r.req.Kind == KindVerify {
		v, err := r.Store.Verification().Create(ctx, model.VerificationRecord{
			ID:             r.recordID,
			VerificationID: r.outcome.ID,
			Requester:      r.req.actor(),
			TxHash:         r.outcome.TxHash,
			ImageID:        image.ID,
		})
		if err != nil {
			return err
		}
		v.Image = *image
		result.Verification = v
		return nil
	}

	rec, err := r.Store.Record().Create(ctx, model.AuthenticityRecord{
		ID:      r.recordID,
		TokenID: r.outcome.ID,
		Owner:   r.req.actor(),
		TxHash:  r.outcome.TxHash,
		ImageID: image.ID,
	})
	if err != nil {
		return err
	}
	rec.Image = *image
	result.Record = rec
	return nil
}

func (r *run) publishLifecycle(ctx context.Context, result *Result) {
	if r.producer == nil {
		return
	}

	var err error
	if result.Verification != nil {
		err = r.producer.WriteJSON(ctx, events.VerificationRequestedMessageKind, events.VerificationRequestedEvent{
			VerificationID: result.Verification.VerificationID,
			Requester:      result.Verification.Requester,
			TxHash:         result.Verification.TxHash,
			ImageCID:       result.Media.ImageCID,
			CreatedAt:      result.Verification.CreatedAt,
		})
	} else if result.Record != nil {
		err = r.producer.WriteJSON(ctx, events.MintedMessageKind, events.MintedEvent{
			TokenID:     result.Record.TokenID,
			Owner:       result.Record.Owner,
			TxHash:      result.Record.TxHash,
			ImageCID:    result.Media.ImageCID,
			MetadataCID: result.Media.MetadataCID,
			CreatedAt:   result.Record.CreatedAt,
		})
	}
	if err != nil {
		r.log.Warnw("failed to publish lifecycle event", "kind", r.req.Kind, "id", result.Outcome.ID, "error", err)
	}
}
