// Package store is the persistence boundary: user documents with their
// embedded records, the orders collection, and live subscriptions on both.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/raushankrgupta/tailorme/models"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrDuplicatePhone = errors.New("phone number already exists")
	ErrDuplicateEmail = errors.New("email already registered")
)

// OrderQuery selects the orders of one tailor, optionally narrowed to one
// customer phone number.
type OrderQuery struct {
	TailorID      string
	CustomerPhone string
}

// OrderSnapshot is the state of one watched order. Deleted is set once the
// order no longer exists.
type OrderSnapshot struct {
	Order   *models.Order
	Deleted bool
}

// UserStore persists user documents, including the tailor's record list
// and the end user's self-measurement.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, uid string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, uid string, update models.ProfileUpdate) (*models.User, error)
	// SetPassword stores a new password hash and clears any pending reset code.
	SetPassword(ctx context.Context, uid, hash string) error
	// SetOTP stores a reset code valid until expiresAt and resets the failed
	// attempt count. An empty otp clears the pending code.
	SetOTP(ctx context.Context, uid, otp string, expiresAt time.Time) error
	// RecordOTPFailure counts a wrong reset code and returns the new total.
	RecordOTPFailure(ctx context.Context, uid string) (int, error)
	SetMeasurements(ctx context.Context, uid string, m models.SelfMeasurement) error

	// AddRecord appends a record unless its phone number is already used.
	AddRecord(ctx context.Context, uid string, record models.Record) error
	// ReplaceRecord overwrites the record identified by phone. The new
	// phone number must not belong to another record.
	ReplaceRecord(ctx context.Context, uid, phone string, record models.Record) error
	RemoveRecord(ctx context.Context, uid, phone string) error

	WatchUser(ctx context.Context, uid string) (*Subscription[*models.User], error)
}

// OrderStore persists orders. Mutations are scoped to the owning tailor:
// an order of another tailor is reported as ErrNotFound.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, error)
	UpdateOrder(ctx context.Context, tailorID, id string, update models.OrderUpdate) (*models.Order, error)
	SetOrderStatus(ctx context.Context, tailorID, id, status string) (*models.Order, error)
	DeleteOrder(ctx context.Context, tailorID, id string) error

	WatchOrders(ctx context.Context, q OrderQuery) (*Subscription[[]models.Order], error)
	WatchOrder(ctx context.Context, id string) (*Subscription[OrderSnapshot], error)
}

// Store is the complete persistence boundary.
type Store interface {
	UserStore
	OrderStore
}

func findRecord(records []models.Record, phone string) int {
	for i := range records {
		if records[i].PhoneNumber == phone {
			return i
		}
	}
	return -1
}
