package records

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushankrgupta/tailorme/apperrors"
	"github.com/raushankrgupta/tailorme/listing"
	"github.com/raushankrgupta/tailorme/measure"
	"github.com/raushankrgupta/tailorme/models"
	"github.com/raushankrgupta/tailorme/store"
)

type fakePhotos struct {
	keys    []string
	deleted []string
	err     error
}

func (f *fakePhotos) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	io.Copy(io.Discard, body)
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakePhotos) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

// racingStore stores a record with the same phone number just before each
// AddRecord, like a second device winning the race.
type racingStore struct {
	*store.Memory
}

func (s racingStore) AddRecord(ctx context.Context, uid string, r models.Record) error {
	if err := s.Memory.AddRecord(ctx, uid, models.Record{Username: "Other device", PhoneNumber: r.PhoneNumber}); err != nil {
		return err
	}
	return s.Memory.AddRecord(ctx, uid, r)
}

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, photos PhotoStore) (*Service, *store.Memory, string) {
	t.Helper()
	mem := store.NewMemory()
	tailor := &models.User{Name: "Tailor", Email: "t@example.com", Role: models.RoleTailor}
	require.NoError(t, mem.CreateUser(context.Background(), tailor))
	svc := NewService(mem, photos)
	svc.now = func() time.Time { return fixedNow }
	return svc, mem, tailor.UID()
}

func storedRecords(t *testing.T, mem *store.Memory, uid string) []models.Record {
	t.Helper()
	u, err := mem.GetUserByID(context.Background(), uid)
	require.NoError(t, err)
	return u.Records
}

func TestCreateRecord(t *testing.T) {
	svc, mem, uid := setup(t, nil)

	r, err := svc.Create(context.Background(), uid, Input{Username: "  Ali ", PhoneNumber: " 0300-0000000 ", Chest: "40"})
	require.NoError(t, err)

	assert.Equal(t, "Ali", r.Username)
	assert.Equal(t, "0300-0000000", r.PhoneNumber)
	assert.Equal(t, fixedNow, r.Timestamp)
	assert.Equal(t, []models.Record{r}, storedRecords(t, mem, uid))
}

func TestCreateRejectsDuplicatePhoneWithoutWriting(t *testing.T) {
	svc, mem, uid := setup(t, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, uid, Input{Username: "Ali", PhoneNumber: "0300-0000000"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, uid, Input{Username: "Bilal", PhoneNumber: "0300-0000000"})

	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperrors.StatusCode(err))
	records := storedRecords(t, mem, uid)
	require.Len(t, records, 1)
	assert.Equal(t, "Ali", records[0].Username)
}

func TestCreateRequiresUsernameAndPhone(t *testing.T) {
	svc, mem, uid := setup(t, nil)

	for _, in := range []Input{{PhoneNumber: "1"}, {Username: "Ali"}, {Username: "  ", PhoneNumber: "  "}} {
		_, err := svc.Create(context.Background(), uid, in)
		assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))
	}
	assert.Empty(t, storedRecords(t, mem, uid))
}

func TestUpdateKeepsTimestampAndAllowsPhoneChange(t *testing.T) {
	svc, mem, uid := setup(t, nil)
	ctx := context.Background()
	created, err := svc.Create(ctx, uid, Input{Username: "Ali", PhoneNumber: "1", Chest: "40"})
	require.NoError(t, err)

	svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	updated, err := svc.Update(ctx, uid, "1", Input{Username: "Ali Raza", PhoneNumber: "2", Chest: "42"})
	require.NoError(t, err)

	assert.Equal(t, created.Timestamp, updated.Timestamp)
	records := storedRecords(t, mem, uid)
	require.Len(t, records, 1)
	assert.Equal(t, "2", records[0].PhoneNumber)
	assert.Equal(t, "42", records[0].Chest)
}

func TestUpdateConflictsAndMissing(t *testing.T) {
	svc, _, uid := setup(t, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, uid, Input{Username: "Ali", PhoneNumber: "1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uid, Input{Username: "Sana", PhoneNumber: "2"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, uid, "1", Input{Username: "Ali", PhoneNumber: "2"})
	assert.Equal(t, http.StatusConflict, apperrors.StatusCode(err))

	_, err = svc.Update(ctx, uid, "9", Input{Username: "X", PhoneNumber: "9"})
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func TestDeleteRecord(t *testing.T) {
	svc, mem, uid := setup(t, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, uid, Input{Username: "Ali", PhoneNumber: "1"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, uid, "1"))
	assert.Empty(t, storedRecords(t, mem, uid))
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(svc.Delete(ctx, uid, "1")))
}

func TestListGetAndCustomers(t *testing.T) {
	svc, _, uid := setup(t, nil)
	ctx := context.Background()
	for _, in := range []Input{{Username: "Ali", PhoneNumber: "0300-1"}, {Username: "Sana", PhoneNumber: "0333-2"}} {
		_, err := svc.Create(ctx, uid, in)
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, uid, listing.RecordFilter{Query: "sana"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "0333-2", list[0].PhoneNumber)

	r, err := svc.Get(ctx, uid, "0300-1")
	require.NoError(t, err)
	assert.Equal(t, "Ali", r.Username)

	customers, err := svc.Customers(ctx, uid, "")
	require.NoError(t, err)
	assert.Len(t, customers, 2)

	_, err = svc.List(ctx, "000000000000000000000000", listing.RecordFilter{})
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func sampleEstimate() measure.Estimate {
	return measure.Estimate{ArmLength: "23.46", ShoulderWidth: "17.10", Chest: "38.00", RecommendedSize: "M"}
}

func TestCreateFromEstimateArchivesPhoto(t *testing.T) {
	photos := &fakePhotos{}
	svc, mem, uid := setup(t, photos)

	r, err := svc.CreateFromEstimate(context.Background(), uid, "Ali", "0300-1", sampleEstimate(),
		&measure.Image{Data: []byte("jpeg"), ContentType: "image/jpeg"})
	require.NoError(t, err)

	require.Len(t, photos.keys, 1)
	assert.Equal(t, photos.keys[0], r.ImageKey)
	assert.Equal(t, "17.10", r.ShoulderWidth)
	assert.Equal(t, []models.Record{r}, storedRecords(t, mem, uid))
}

func TestCreateFromEstimateSurvivesArchiveFailure(t *testing.T) {
	svc, mem, uid := setup(t, &fakePhotos{err: errors.New("s3 down")})

	r, err := svc.CreateFromEstimate(context.Background(), uid, "Ali", "0300-1", sampleEstimate(), &measure.Image{Data: []byte("x")})
	require.NoError(t, err)
	assert.Empty(t, r.ImageKey)
	assert.Len(t, storedRecords(t, mem, uid), 1)
}

func TestCreateFromEstimateDuplicateSkipsUpload(t *testing.T) {
	photos := &fakePhotos{}
	svc, _, uid := setup(t, photos)
	ctx := context.Background()
	_, err := svc.Create(ctx, uid, Input{Username: "Ali", PhoneNumber: "0300-1"})
	require.NoError(t, err)

	_, err = svc.CreateFromEstimate(ctx, uid, "Other", "0300-1", sampleEstimate(), &measure.Image{Data: []byte("x")})

	assert.Equal(t, http.StatusConflict, apperrors.StatusCode(err))
	assert.Empty(t, photos.keys)
}

func TestCreateFromEstimateRemovesPhotoWhenWriteFails(t *testing.T) {
	mem := store.NewMemory()
	tailor := &models.User{Name: "Tailor", Email: "t@example.com", Role: models.RoleTailor}
	require.NoError(t, mem.CreateUser(context.Background(), tailor))
	photos := &fakePhotos{}
	svc := NewService(racingStore{mem}, photos)

	_, err := svc.CreateFromEstimate(context.Background(), tailor.UID(), "Ali", "0300-1", sampleEstimate(),
		&measure.Image{Data: []byte("jpeg"), ContentType: "image/jpeg"})

	assert.Equal(t, http.StatusConflict, apperrors.StatusCode(err))
	require.Len(t, photos.keys, 1)
	assert.Equal(t, photos.keys, photos.deleted)
}

func TestShareText(t *testing.T) {
	text := ShareText(models.Record{Username: "Ali", PhoneNumber: "0300-1", Chest: "38.00", RecommendedSize: "M"})

	assert.True(t, strings.HasPrefix(text, "Measurements:\n"))
	assert.Contains(t, text, "Username: Ali\n")
	assert.Contains(t, text, "Chest: 38.00 Inches\n")
	assert.Contains(t, text, "Recommended Size: M\n")
}
