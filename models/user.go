package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user account can hold. The role is chosen at sign-up and never changes.
const (
	RoleUser   = "user"
	RoleTailor = "tailor"
)

// User represents a registered account. Tailors own a list of customer
// records; users keep a single self-measurement.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	Role         string             `bson:"role" json:"role"`
	Password     string             `bson:"password" json:"-"` // Password is not returned in JSON
	OTP          string             `bson:"otp,omitempty" json:"-"`
	OTPExpiresAt time.Time          `bson:"otp_expires_at,omitempty" json:"-"`
	OTPAttempts  int                `bson:"otp_attempts,omitempty" json:"-"`
	Records      []Record           `bson:"records,omitempty" json:"records,omitempty"`
	Measurements *SelfMeasurement   `bson:"measurements,omitempty" json:"measurements,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// UID returns the account id as used in tokens and order documents.
func (u *User) UID() string {
	return u.ID.Hex()
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleTailor
}

// ProfileUpdate holds the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
}

// SelfMeasurement is an end user's own body data, overwritten on every save.
type SelfMeasurement struct {
	ArmLength       string `bson:"arm_length" json:"arm_length"`
	Shoulders       string `bson:"shoulders" json:"shoulders"`
	Chest           string `bson:"chest" json:"chest"`
	Waist           string `bson:"waist" json:"waist"`
	Hip             string `bson:"hip" json:"hip"`
	NeckSize        string `bson:"neck_size" json:"neck_size"`
	ShalwarLength   string `bson:"shalwar_length" json:"shalwar_length"`
	QameezLength    string `bson:"qameez_length" json:"qameez_length"`
	RecommendedSize string `bson:"recommended_size" json:"recommended_size"`
}
