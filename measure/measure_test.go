package measure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushankrgupta/tailorme/models"
)

const sampleResponse = `{
	"Arm Length": 23.456,
	"Shoulder Width": "17.1",
	"Chest": 38,
	"Waist": 32.999,
	"Hip": 40.5,
	"Neck": 15,
	"Shalwar Length": 39.25,
	"Qameez Length": 41,
	"Recommended Size": "M"
}`

func TestParseEstimateFormatsTwoDecimals(t *testing.T) {
	e, err := parseEstimate([]byte(sampleResponse))
	require.NoError(t, err)

	assert.Equal(t, Estimate{
		ArmLength:       "23.46",
		ShoulderWidth:   "17.10",
		Chest:           "38.00",
		Waist:           "33.00",
		Hip:             "40.50",
		Neck:            "15.00",
		ShalwarLength:   "39.25",
		QameezLength:    "41.00",
		RecommendedSize: "M",
	}, e)
}

func TestParseEstimateDefaultsSize(t *testing.T) {
	body := `{"Arm Length":1,"Shoulder Width":1,"Chest":1,"Waist":1,"Hip":1,"Neck":1,"Shalwar Length":1,"Qameez Length":1}`

	e, err := parseEstimate([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "N/A", e.RecommendedSize)
}

func TestParseEstimateRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"malformed json": `{"Arm Length":`,
		"missing key":    `{"Arm Length":1}`,
		"not a number":   `{"Arm Length":"long","Shoulder Width":1,"Chest":1,"Waist":1,"Hip":1,"Neck":1,"Shalwar Length":1,"Qameez Length":1}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseEstimate([]byte(body))
			assert.ErrorIs(t, err, ErrEstimationFailed)
		})
	}
}

func TestPredictClientSendsImageField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "pixels", string(data))
		assert.Equal(t, "photo.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	e, err := NewPredictClient(srv.URL).Estimate(context.Background(), Image{Data: []byte("pixels")})
	require.NoError(t, err)
	assert.Equal(t, "23.46", e.ArmLength)
	assert.Equal(t, "M", e.RecommendedSize)
}

func TestPredictClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"model crashed"}`)
	}))
	defer srv.Close()

	_, err := NewPredictClient(srv.URL).Estimate(context.Background(), Image{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrEstimationFailed)
}

func TestPredictClientWithoutURL(t *testing.T) {
	_, err := NewPredictClient("").Estimate(context.Background(), Image{})
	assert.ErrorIs(t, err, ErrEstimationFailed)
}

func TestEstimateConversions(t *testing.T) {
	e, err := parseEstimate([]byte(sampleResponse))
	require.NoError(t, err)
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	r := e.ToRecord("Ali", "0300-1234567", at)
	assert.Equal(t, "Ali", r.Username)
	assert.Equal(t, "0300-1234567", r.PhoneNumber)
	assert.Equal(t, "17.10", r.ShoulderWidth)
	assert.Equal(t, at, r.Timestamp)

	assert.Equal(t, models.SelfMeasurement{
		ArmLength:       "23.46",
		Shoulders:       "17.10",
		Chest:           "38.00",
		Waist:           "33.00",
		Hip:             "40.50",
		NeckSize:        "15.00",
		ShalwarLength:   "39.25",
		QameezLength:    "41.00",
		RecommendedSize: "M",
	}, e.ToSelfMeasurement())
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}
