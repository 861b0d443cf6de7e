package v1alpha1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/handlers/v1alpha1/mappers"
	"github.com/realia-labs/realia/internal/service"
)

func pageFromQuery(r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	var err error
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			return 0, 0, false
		}
	}
	if s := q.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, false
		}
	}
	return limit, offset, true
}

func (h *ServiceHandler) listNfts(w http.ResponseWriter, r *http.Request, owner string) {
	limit, offset, ok := pageFromQuery(r)
	if !ok {
		renderError(w, r, http.StatusBadRequest, "limit and offset must be non-negative integers")
		return
	}

	records, total, err := h.recordSrv.ListNfts(r.Context(), service.NftFilter{Owner: owner, Limit: limit, Offset: offset})
	if err != nil {
		h.log.Errorw("failed to list nfts", "owner", owner, "error", err)
		renderInternalError(w, r)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mappers.NftListToApi(records, total, h.imageURL(r)))
}

// (GET /api/v1/nfts)
func (h *ServiceHandler) ListNfts(w http.ResponseWriter, r *http.Request) {
	h.listNfts(w, r, strings.ToLower(r.URL.Query().Get("owner")))
}

// (GET /api/v1/user/nfts)
func (h *ServiceHandler) ListUserNfts(w http.ResponseWriter, r *http.Request) {
	h.listNfts(w, r, auth.MustHaveUser(r.Context()).WalletAddress)
}

// (GET /api/v1/nfts/{tokenId})
func (h *ServiceHandler) GetNft(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenId")

	record, err := h.recordSrv.GetNft(r.Context(), tokenID)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		default:
			h.log.Errorw("failed to get nft", "token_id", tokenID, "error", err)
			renderInternalError(w, r)
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mappers.NftToApi(*record, h.imageURL(r)))
}
