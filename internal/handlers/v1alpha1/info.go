package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/pkg/version"
)

// (GET /api/v1/info)
func (h *ServiceHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()

	render.JSON(w, r, api.Info{
		GitCommit:   versionInfo.GitCommit,
		VersionName: versionInfo.GitVersion,
	})
}

// (GET /health)
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, struct{}{})
}
