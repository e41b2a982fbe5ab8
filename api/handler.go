package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/raushankrgupta/tailorme/apperrors"
	"github.com/raushankrgupta/tailorme/auth"
	"github.com/raushankrgupta/tailorme/measure"
	"github.com/raushankrgupta/tailorme/orders"
	"github.com/raushankrgupta/tailorme/records"
	"github.com/raushankrgupta/tailorme/session"
	"github.com/raushankrgupta/tailorme/utils"
)

const maxUploadSize = 10 << 20 // 10MB

// ImageSigner hands out temporary links to archived photos.
type ImageSigner interface {
	PresignURL(ctx context.Context, objectKey string) (string, error)
}

// Handler serves the HTTP API on top of the domain services.
type Handler struct {
	Auth      *auth.Service
	Records   *records.Service
	Orders    *orders.Service
	Estimator measure.Estimator
	// Images is nil when no bucket is configured.
	Images ImageSigner
	// Google is nil when Google sign-in is not configured.
	Google *oauth2.Config
}

func currentSession(r *http.Request) session.Session {
	s, _ := session.FromContext(r.Context())
	return s
}

// readImage pulls the multipart "image" field out of the request.
func readImage(r *http.Request) (measure.Image, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return measure.Image{}, apperrors.NewValidationError("Error parsing form data")
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return measure.Image{}, apperrors.NewValidationError("Image is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return measure.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return measure.Image{}, apperrors.NewValidationError("Image is empty")
	}
	return measure.Image{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

// estimate runs the configured estimator and hides failure details from the caller.
func (h *Handler) estimate(ctx context.Context, logger *strings.Builder, img measure.Image) (measure.Estimate, error) {
	if h.Estimator == nil {
		return measure.Estimate{}, apperrors.NewUpstreamError("Measurement estimation is not available")
	}
	est, err := h.Estimator.Estimate(ctx, img)
	if err != nil {
		utils.AddToLogMessage(logger, fmt.Sprintf("Estimation failed: %v", err))
		if errors.Is(err, measure.ErrEstimationFailed) {
			return measure.Estimate{}, apperrors.NewUpstreamError("Failed to process image. Please try again with a clearer photo.")
		}
		return measure.Estimate{}, err
	}
	return est, nil
}
