package measure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// PredictClient posts a photo as multipart field "image" to the prediction
// endpoint. Failures are not retried.
type PredictClient struct {
	URL        string
	HTTPClient *http.Client
}

func NewPredictClient(url string) *PredictClient {
	return &PredictClient{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *PredictClient) Estimate(ctx context.Context, img Image) (Estimate, error) {
	if c.URL == "" {
		return Estimate{}, fmt.Errorf("%w: MEASUREMENT_API_URL is not set", ErrEstimationFailed)
	}

	body, contentType, err := multipartImage(img)
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", ErrEstimationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, body)
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", ErrEstimationFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", ErrEstimationFailed, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: reading response: %v", ErrEstimationFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Measurement service returned non-2xx response. Status: %d, Body: %s", resp.StatusCode, string(respBytes))
		return Estimate{}, fmt.Errorf("%w: status %d", ErrEstimationFailed, resp.StatusCode)
	}

	return parseEstimate(respBytes)
}

func multipartImage(img Image) (*bytes.Buffer, string, error) {
	filename := img.Filename
	if filename == "" {
		filename = "photo.jpg"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
