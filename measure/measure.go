// Package measure turns a body photo into measurements through an external
// estimation service.
package measure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raushankrgupta/tailorme/models"
)

// ErrEstimationFailed is returned for every estimation failure. Callers show
// a generic message; the wrapped detail is only logged.
var ErrEstimationFailed = errors.New("failed to process image")

const unknownSize = "N/A"

// Image is one uploaded photo.
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Estimate holds estimated measurements in inches, formatted to two decimals.
type Estimate struct {
	ArmLength       string `json:"arm_length"`
	ShoulderWidth   string `json:"shoulder_width"`
	Chest           string `json:"chest"`
	Waist           string `json:"waist"`
	Hip             string `json:"hip"`
	Neck            string `json:"neck"`
	ShalwarLength   string `json:"shalwar_length"`
	QameezLength    string `json:"qameez_length"`
	RecommendedSize string `json:"recommended_size"`
}

// Estimator produces measurements from one image.
type Estimator interface {
	Estimate(ctx context.Context, img Image) (Estimate, error)
}

// ToRecord builds a tailor record for the given customer.
func (e Estimate) ToRecord(username, phone string, at time.Time) models.Record {
	return models.Record{
		Username:        username,
		PhoneNumber:     phone,
		ArmLength:       e.ArmLength,
		ShoulderWidth:   e.ShoulderWidth,
		Chest:           e.Chest,
		Waist:           e.Waist,
		Hip:             e.Hip,
		Neck:            e.Neck,
		ShalwarLength:   e.ShalwarLength,
		QameezLength:    e.QameezLength,
		RecommendedSize: e.RecommendedSize,
		Timestamp:       at,
	}
}

// ToSelfMeasurement maps the estimate onto an end user's measurement fields.
func (e Estimate) ToSelfMeasurement() models.SelfMeasurement {
	return models.SelfMeasurement{
		ArmLength:       e.ArmLength,
		Shoulders:       e.ShoulderWidth,
		Chest:           e.Chest,
		Waist:           e.Waist,
		Hip:             e.Hip,
		NeckSize:        e.Neck,
		ShalwarLength:   e.ShalwarLength,
		QameezLength:    e.QameezLength,
		RecommendedSize: e.RecommendedSize,
	}
}

// parseEstimate decodes the estimation service's JSON object, keyed by
// display labels such as "Arm Length". Values may be numbers or numeric strings.
func parseEstimate(body []byte) (Estimate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Estimate{}, fmt.Errorf("%w: malformed response: %v", ErrEstimationFailed, err)
	}

	var e Estimate
	fields := []struct {
		key string
		dst *string
	}{
		{"Arm Length", &e.ArmLength},
		{"Shoulder Width", &e.ShoulderWidth},
		{"Chest", &e.Chest},
		{"Waist", &e.Waist},
		{"Hip", &e.Hip},
		{"Neck", &e.Neck},
		{"Shalwar Length", &e.ShalwarLength},
		{"Qameez Length", &e.QameezLength},
	}
	for _, f := range fields {
		v, err := inches(raw[f.key])
		if err != nil {
			return Estimate{}, fmt.Errorf("%w: %s: %v", ErrEstimationFailed, f.key, err)
		}
		*f.dst = v
	}

	e.RecommendedSize = unknownSize
	if size := text(raw["Recommended Size"]); size != "" {
		e.RecommendedSize = size
	}
	return e, nil
}

func inches(v json.RawMessage) (string, error) {
	s := text(v)
	if s == "" {
		return "", errors.New("missing value")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("not a number: %q", s)
	}
	return strconv.FormatFloat(f, 'f', 2, 64), nil
}

// text returns a JSON string or number as plain text, empty for anything else.
func text(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || string(v) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}
