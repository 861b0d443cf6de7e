package v1alpha1

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/handlers/v1alpha1/mappers"
	"github.com/realia-labs/realia/internal/pipeline"
	"github.com/realia-labs/realia/internal/service"
)

const (
	// room for the data part and the multipart framing on top of the image
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
)

type ServiceHandler struct {
	pipeline      *pipeline.Orchestrator
	authSrv       *service.AuthService
	recordSrv     *service.RecordService
	verifySrv     *service.VerificationService
	maxUploadSize int64
	secureCookie  bool
	log           *zap.SugaredLogger
}

type HandlerOption func(h *ServiceHandler)

func WithMaxUploadSize(size int64) HandlerOption {
	return func(h *ServiceHandler) {
		h.maxUploadSize = size
	}
}

func WithSecureCookie(secure bool) HandlerOption {
	return func(h *ServiceHandler) {
		h.secureCookie = secure
	}
}

func NewServiceHandler(
	orchestrator *pipeline.Orchestrator,
	authService *service.AuthService,
	recordService *service.RecordService,
	verificationService *service.VerificationService,
	opts ...HandlerOption,
) *ServiceHandler {
	h := &ServiceHandler{
		pipeline:      orchestrator,
		authSrv:       authService,
		recordSrv:     recordService,
		verifySrv:     verificationService,
		maxUploadSize: 32 << 20,
		secureCookie:  true,
		log:           zap.S().Named("handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, api.Error{Error: message, Status: status})
}

func renderInternalError(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, http.StatusInternalServerError, "Internal server error")
}

var errUploadTooLarge = errors.New("upload too large")

// readUpload reads the "image" file and the optional "data" field of a multipart body.
// A missing image is not an error here; the pipeline reports it at its first stage.
func (h *ServiceHandler) readUpload(w http.ResponseWriter, r *http.Request) (mappers.UploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	var form mappers.UploadForm
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, errUploadTooLarge
		}
		return form, err
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	form.Data = r.FormValue("data")

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return form, nil
		}
		return form, err
	}
	defer file.Close()

	form.Image, err = io.ReadAll(file)
	if err != nil {
		return form, err
	}
	form.Filename = header.Filename
	form.ContentType = header.Header.Get("Content-Type")
	return form, nil
}

func (h *ServiceHandler) uploadError(err error) *pipeline.StageError {
	if errors.Is(err, errUploadTooLarge) {
		return pipeline.NewValidationError(pipeline.StageValidatingFile, "Image exceeds the maximum size of %d bytes", h.maxUploadSize)
	}
	return pipeline.NewValidationError(pipeline.StageValidatingFile, "Invalid multipart body")
}

func sessionCookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
