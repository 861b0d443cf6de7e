package pipeline

import (
	"fmt"
	"net/http"

	"github.com/realia-labs/realia/internal/ledger"
	"github.com/realia-labs/realia/internal/vectorindex"
)

type ErrorKind string

const (
	ErrorValidation          ErrorKind = "validation"
	ErrorDuplicate           ErrorKind = "duplicate"
	ErrorAIGenerated         ErrorKind = "ai_generated"
	ErrorEntitlement         ErrorKind = "entitlement"
	ErrorUpstream            ErrorKind = "upstream"
	ErrorChainOutcomeMissing ErrorKind = "chain_outcome_missing"
)

// StageError is the single failure a pipeline run ends with. Message is safe to show
// to the client, Err is the internal cause and is only logged.
type StageError struct {
	Kind    ErrorKind
	Stage   Stage
	Status  int
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewValidationError(stage Stage, format string, args ...any) *StageError {
	return &StageError{Kind: ErrorValidation, Stage: stage, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NewDuplicateError(match *vectorindex.Match) *StageError {
	msg := "A similar image has already been registered"
	if tokenID := match.Payload[vectorindex.PayloadTokenID]; tokenID != "" {
		msg = fmt.Sprintf("%s as token %s", msg, tokenID)
	}
	return &StageError{Kind: ErrorDuplicate, Stage: StageCheckingDuplicates, Status: http.StatusBadRequest, Message: msg}
}

func NewAIGeneratedError() *StageError {
	return &StageError{Kind: ErrorAIGenerated, Stage: StageClassifyingAI, Status: http.StatusBadRequest, Message: "Image is AI generated"}
}

func NewEntitlementError(kind ledger.OrderKind) *StageError {
	return &StageError{Kind: ErrorEntitlement, Stage: StageCheckingOrder, Status: http.StatusForbidden, Message: fmt.Sprintf("User does not have a %s order", kind)}
}

func NewUpstreamError(stage Stage, message string, err error) *StageError {
	return &StageError{Kind: ErrorUpstream, Stage: stage, Status: http.StatusInternalServerError, Message: message, Err: err}
}

func NewChainOutcomeMissingError(stage Stage, err error) *StageError {
	return &StageError{Kind: ErrorChainOutcomeMissing, Stage: stage, Status: http.StatusInternalServerError, Message: "Transaction succeeded but no id was emitted", Err: err}
}
