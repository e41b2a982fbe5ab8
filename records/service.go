// Package records manages a tailor's customer measurement records. A record
// is identified by its phone number, which is unique per tailor.
package records

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/raushankrgupta/tailorme/apperrors"
	"github.com/raushankrgupta/tailorme/listing"
	"github.com/raushankrgupta/tailorme/measure"
	"github.com/raushankrgupta/tailorme/models"
	"github.com/raushankrgupta/tailorme/store"
	"github.com/raushankrgupta/tailorme/utils"
)

// PhotoStore archives measurement photos.
type PhotoStore interface {
	Upload(ctx context.Context, objectKey string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, objectKey string) error
}

// Input is a record as submitted by the tailor.
type Input struct {
	Username        string `json:"username"`
	PhoneNumber     string `json:"phone_number"`
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

func (in Input) record() models.Record {
	r := models.Record{
		Username:        in.Username,
		PhoneNumber:     in.PhoneNumber,
		ArmLength:       strings.TrimSpace(in.ArmLength),
		ShoulderWidth:   strings.TrimSpace(in.ShoulderWidth),
		Chest:           strings.TrimSpace(in.Chest),
		Waist:           strings.TrimSpace(in.Waist),
		Hip:             strings.TrimSpace(in.Hip),
		Neck:            strings.TrimSpace(in.Neck),
		ShalwarLength:   strings.TrimSpace(in.ShalwarLength),
		QameezLength:    strings.TrimSpace(in.QameezLength),
		RecommendedSize: strings.TrimSpace(in.RecommendedSize),
	}
	r.Normalize()
	return r
}

type Service struct {
	users  store.UserStore
	photos PhotoStore
	now    func() time.Time
}

// NewService builds the record service. photos may be nil, in which case
// estimation photos are not archived.
func NewService(users store.UserStore, photos PhotoStore) *Service {
	return &Service{users: users, photos: photos, now: time.Now}
}

func validate(r models.Record) error {
	if r.Username == "" {
		return apperrors.NewValidationError("Please enter a username")
	}
	if r.PhoneNumber == "" {
		return apperrors.NewValidationError("Please enter a phone number")
	}
	return nil
}

func mapStoreError(err error, action string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFoundError("Record not found")
	case errors.Is(err, store.ErrDuplicatePhone):
		return apperrors.NewConflictError("A record with this phone number already exists")
	}
	return fmt.Errorf("failed to %s record: %w", action, err)
}

// Create adds a new record. Nothing is written when validation fails or the
// phone number is already used.
func (s *Service) Create(ctx context.Context, tailorID string, in Input) (models.Record, error) {
	r := in.record()
	if err := validate(r); err != nil {
		return models.Record{}, err
	}
	r.Timestamp = s.now().UTC()

	if err := s.users.AddRecord(ctx, tailorID, r); err != nil {
		return models.Record{}, mapStoreError(err, "create")
	}
	return r, nil
}

// Update replaces the measurements of the record identified by phone. The
// creation time and archived photo are kept.
func (s *Service) Update(ctx context.Context, tailorID, phone string, in Input) (models.Record, error) {
	r := in.record()
	if err := validate(r); err != nil {
		return models.Record{}, err
	}

	existing, err := s.Get(ctx, tailorID, phone)
	if err != nil {
		return models.Record{}, err
	}
	r.Timestamp = existing.Timestamp
	r.ImageKey = existing.ImageKey

	if err := s.users.ReplaceRecord(ctx, tailorID, existing.PhoneNumber, r); err != nil {
		return models.Record{}, mapStoreError(err, "update")
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, tailorID, phone string) error {
	if err := s.users.RemoveRecord(ctx, tailorID, strings.TrimSpace(phone)); err != nil {
		return mapStoreError(err, "delete")
	}
	return nil
}

func (s *Service) all(ctx context.Context, tailorID string) ([]models.Record, error) {
	user, err := s.users.GetUserByID(ctx, tailorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return user.Records, nil
}

// List returns the tailor's records matching filter, in stored order.
func (s *Service) List(ctx context.Context, tailorID string, filter listing.RecordFilter) ([]models.Record, error) {
	records, err := s.all(ctx, tailorID)
	if err != nil {
		return nil, err
	}
	return listing.FilterRecords(records, filter), nil
}

func (s *Service) Get(ctx context.Context, tailorID, phone string) (models.Record, error) {
	records, err := s.all(ctx, tailorID)
	if err != nil {
		return models.Record{}, err
	}
	phone = strings.TrimSpace(phone)
	for _, r := range records {
		if r.PhoneNumber == phone {
			return r, nil
		}
	}
	return models.Record{}, apperrors.NewNotFoundError("Record not found")
}

// Customers lists the distinct customers an order can be created for.
func (s *Service) Customers(ctx context.Context, tailorID, query string) ([]listing.Customer, error) {
	records, err := s.all(ctx, tailorID)
	if err != nil {
		return nil, err
	}
	return listing.Customers(records, query), nil
}

// CreateFromEstimate stores estimated measurements as a new record and
// archives the photo they came from. A failed archive does not block the record.
func (s *Service) CreateFromEstimate(ctx context.Context, tailorID, username, phone string, est measure.Estimate, photo *measure.Image) (models.Record, error) {
	r := est.ToRecord(username, phone, s.now().UTC())
	r.Normalize()
	if err := validate(r); err != nil {
		return models.Record{}, err
	}

	records, err := s.all(ctx, tailorID)
	if err != nil {
		return models.Record{}, err
	}
	for _, existing := range records {
		if existing.PhoneNumber == r.PhoneNumber {
			return models.Record{}, mapStoreError(store.ErrDuplicatePhone, "create")
		}
	}

	if s.photos != nil && photo != nil && len(photo.Data) > 0 {
		key := utils.MeasurementPhotoKey(tailorID, photo.ContentType)
		if _, err := s.photos.Upload(ctx, key, bytes.NewReader(photo.Data), photo.ContentType); err != nil {
			log.Printf("Failed to archive measurement photo for %s: %v", tailorID, err)
		} else {
			r.ImageKey = key
		}
	}

	if err := s.users.AddRecord(ctx, tailorID, r); err != nil {
		s.discardPhoto(ctx, r.ImageKey)
		return models.Record{}, mapStoreError(err, "create")
	}
	return r, nil
}

// discardPhoto removes an archived photo whose record was never stored.
func (s *Service) discardPhoto(ctx context.Context, key string) {
	if s.photos == nil || key == "" {
		return
	}
	if err := s.photos.Delete(ctx, key); err != nil {
		log.Printf("Failed to remove orphaned photo %s: %v", key, err)
	}
}

// ShareText renders a record as the plain-text summary sent to customers.
func ShareText(r models.Record) string {
	var b strings.Builder
	b.WriteString("Measurements:\n")
	b.WriteString("---------------------------------------------\n")
	fmt.Fprintf(&b, "Username: %s\n", r.Username)
	fmt.Fprintf(&b, "Phone Number: %s\n", r.PhoneNumber)
	fmt.Fprintf(&b, "Arm: %s Inches\n", r.ArmLength)
	fmt.Fprintf(&b, "Shoulder: %s Inches\n", r.ShoulderWidth)
	fmt.Fprintf(&b, "Chest: %s Inches\n", r.Chest)
	fmt.Fprintf(&b, "Waist: %s Inches\n", r.Waist)
	fmt.Fprintf(&b, "Hip: %s Inches\n", r.Hip)
	fmt.Fprintf(&b, "Neck: %s Inches\n", r.Neck)
	fmt.Fprintf(&b, "Shalwar Length: %s Inches\n", r.ShalwarLength)
	fmt.Fprintf(&b, "Qameez Length: %s Inches\n", r.QameezLength)
	fmt.Fprintf(&b, "Recommended Size: %s\n", r.RecommendedSize)
	b.WriteString("---------------------------------------------")
	return b.String()
}

// Watch subscribes to the tailor's user document, which holds the records.
func (s *Service) Watch(ctx context.Context, tailorID string) (*store.Subscription[*models.User], error) {
	sub, err := s.users.WatchUser(ctx, tailorID)
	if err != nil {
		return nil, mapStoreError(err, "watch")
	}
	return sub, nil
}
