package v1alpha1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/handlers/v1alpha1/mappers"
	"github.com/realia-labs/realia/internal/service"
	"github.com/realia-labs/realia/internal/store/model"
)

func (h *ServiceHandler) imageURL(r *http.Request) mappers.ImageURLFunc {
	return func(image model.Image) string {
		return h.recordSrv.ImageURL(r.Context(), image)
	}
}

// (GET /api/v1/verifications/{id})
// Agent responses are read from the ledger on every call.
func (h *ServiceHandler) GetVerification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.verifySrv.GetVerification(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		default:
			h.log.Errorw("failed to get verification", "id", id, "error", err)
			renderInternalError(w, r)
		}
		return
	}

	responses, err := h.verifySrv.Responses(r.Context(), id)
	if err != nil {
		h.log.Errorw("failed to read agent responses", "id", id, "error", err)
		renderError(w, r, http.StatusBadGateway, "failed to read agent responses")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mappers.VerificationToApi(*record, responses, h.imageURL(r)))
}

// (GET /api/v1/verifications/{id}/responses)
// Unknown ids give an empty list; the ledger is the only source.
func (h *ServiceHandler) ListVerificationResponses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	responses, err := h.verifySrv.Responses(r.Context(), id)
	if err != nil {
		h.log.Errorw("failed to read agent responses", "id", id, "error", err)
		renderError(w, r, http.StatusBadGateway, "failed to read agent responses")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, api.AgentResponseList{VerificationID: id, Responses: mappers.ResponsesToApi(responses)})
}
