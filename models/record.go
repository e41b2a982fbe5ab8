package models

import (
	"strings"
	"time"
)

// Record is a tailor's measurement entry for one customer. It lives inside the
// tailor's user document; PhoneNumber identifies it within that list.
type Record struct {
	Username        string    `bson:"username" json:"username"`
	PhoneNumber     string    `bson:"phone_number" json:"phone_number"`
	ArmLength       string    `bson:"arm_length" json:"arm_length"`
	ShoulderWidth   string    `bson:"shoulder_width" json:"shoulder_width"`
	Chest           string    `bson:"chest" json:"chest"`
	Waist           string    `bson:"waist" json:"waist"`
	Hip             string    `bson:"hip" json:"hip"`
	Neck            string    `bson:"neck" json:"neck"`
	ShalwarLength   string    `bson:"shalwar_length" json:"shalwar_length"`
	QameezLength    string    `bson:"qameez_length" json:"qameez_length"`
	RecommendedSize string    `bson:"recommended_size" json:"recommended_size"`
	ImageKey        string    `bson:"image_key,omitempty" json:"image_key,omitempty"`
	Timestamp       time.Time `bson:"timestamp" json:"timestamp"`
}

// Normalize trims the identifying fields.
func (r *Record) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}
