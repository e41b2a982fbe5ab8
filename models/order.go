package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. Orders start In-Progress and toggle between the two.
const (
	StatusInProgress = "In-Progress"
	StatusCompleted  = "Completed"
)

const dateLayout = "2006-01-02"

// Order is a tailor-created job for one customer. UserID holds the
// customer's phone number, matching Record.PhoneNumber.
type Order struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	FabricType   string             `bson:"fabric_type" json:"fabric_type"`
	Style        string             `bson:"style" json:"style"`
	Price        Price              `bson:"price" json:"price"`
	OrderStatus  string             `bson:"order_status" json:"order_status"`
	OrderDate    time.Time          `bson:"order_date" json:"order_date"`
	DeliveryDate time.Time          `bson:"delivery_date" json:"delivery_date"`
	UserID       string             `bson:"user_id" json:"user_id"`
	Name         string             `bson:"name" json:"name"`
	TailorID     string             `bson:"tailor_id" json:"tailor_id"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsValidStatus reports whether status is a known order status.
func IsValidStatus(status string) bool {
	return status == StatusInProgress || status == StatusCompleted
}

// NextStatus returns the status a toggle moves to.
func NextStatus(current string) string {
	if current == StatusInProgress {
		return StatusCompleted
	}
	return StatusInProgress
}

// OrderUpdate lists the fields the general edit path may change. Status is
// absent on purpose: it only changes through the status operations.
type OrderUpdate struct {
	Title        string
	Description  string
	FabricType   string
	Style        string
	Price        Price
	OrderDate    time.Time
	DeliveryDate time.Time
}

// ParseDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp and
// returns midnight UTC of that day. An empty string yields the zero time.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders a date the way requests accept it.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
