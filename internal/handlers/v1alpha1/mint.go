package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/events"
	"github.com/realia-labs/realia/internal/handlers/v1alpha1/mappers"
	"github.com/realia-labs/realia/internal/pipeline"
)

// (POST /api/v1/mint)
// The reply is always an event stream once the session is checked.
func (h *ServiceHandler) Mint(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	sink, err := events.NewSSESink(w)
	if err != nil {
		h.log.Errorw("response writer cannot stream", "error", err)
		renderInternalError(w, r)
		return
	}

	form, uploadErr := h.readUpload(w, r)

	sink.WriteHeaders()
	emitter := events.NewEmitter(sink)
	defer emitter.Close()

	if uploadErr != nil {
		h.log.Debugw("unreadable mint upload", "actor", user.WalletAddress, "error", uploadErr)
		_ = emitter.Progress(string(pipeline.StageValidatingFile), pipeline.StageValidatingFile.Message())
		_ = emitter.Fail(pipeline.ToAPIError(h.uploadError(uploadErr)))
		return
	}

	req := mappers.MintRequestFromForm(user.WalletAddress, form)
	if _, err := h.pipeline.Stream(r.Context(), req, emitter); err != nil {
		h.log.Debugw("mint stream ended with an error", "actor", user.WalletAddress, "error", err)
	}
}

// (POST /api/v1/verify)
func (h *ServiceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	form, err := h.readUpload(w, r)
	if err != nil {
		apiErr := pipeline.ToAPIError(h.uploadError(err))
		render.Status(r, apiErr.Status)
		render.JSON(w, r, apiErr)
		return
	}

	result, err := h.pipeline.Run(r.Context(), mappers.VerifyRequestFromForm(user.WalletAddress, form), nil)
	if err != nil {
		apiErr := pipeline.ToAPIError(err)
		render.Status(r, apiErr.Status)
		render.JSON(w, r, apiErr)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, pipeline.VerifyPayload(result))
}
