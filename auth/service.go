// Package auth handles accounts: sign-up, sign-in, sign-out, password reset
// and profile changes for both tailors and end users.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/raushankrgupta/tailorme/apperrors"
	"github.com/raushankrgupta/tailorme/models"
	"github.com/raushankrgupta/tailorme/session"
	"github.com/raushankrgupta/tailorme/store"
	"github.com/raushankrgupta/tailorme/utils"
)

const (
	minPasswordLength = 6

	otpTTL         = 10 * time.Minute
	maxOTPAttempts = 5
)

// Mailer delivers transactional email.
type Mailer interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, textContent, htmlContent string) error
}

// SignupInput is the registration form.
type SignupInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Result is returned by every successful sign-in path.
type Result struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// GoogleProfile is the part of Google's userinfo response used for sign-in.
type GoogleProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Service struct {
	users   store.UserStore
	tokens  *utils.TokenIssuer
	revoker utils.TokenRevoker
	mailer  Mailer
	now     func() time.Time
}

func NewService(users store.UserStore, tokens *utils.TokenIssuer, revoker utils.TokenRevoker, mailer Mailer) *Service {
	return &Service{users: users, tokens: tokens, revoker: revoker, mailer: mailer, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func checkNewPassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	return nil
}

// generateOTP returns a random 6 digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *Service) issue(user *models.User) (*Result, error) {
	token, _, err := s.tokens.GenerateToken(user.UID(), user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Result{Token: token, User: user}, nil
}

func (s *Service) loadUser(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// Signup registers an account and signs it in. The role is fixed from here on.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Result, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("Name, Username, Email and Password are required")
	}
	if !validEmail(in.Email) {
		return nil, apperrors.NewValidationError("Invalid email address")
	}
	if err := checkNewPassword(in.Password); err != nil {
		return nil, err
	}
	if !models.IsValidRole(in.Role) {
		return nil, apperrors.NewValidationError("Role must be user or tailor")
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &models.User{
		Name:      in.Name,
		Username:  in.Username,
		Email:     in.Email,
		Role:      in.Role,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperrors.NewConflictError("User with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendWelcome(ctx, user)
	return s.issue(user)
}

func (s *Service) sendWelcome(ctx context.Context, user *models.User) {
	if s.mailer == nil {
		return
	}
	err := s.mailer.SendEmail(ctx, user.Name, user.Email, "Welcome to TailorMe",
		fmt.Sprintf("Hi %s, your TailorMe account is ready.", user.Name),
		fmt.Sprintf("<h1>Hi %s,</h1><p>Your TailorMe account is ready.</p>", user.Name))
	if err != nil {
		log.Printf("Failed to send welcome email to %s: %v", user.Email, err)
	}
}

// Login checks the credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("Email and Password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewUnauthorizedError("Invalid email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}
	return s.issue(user)
}

// Authenticate validates a bearer token and returns the session it carries.
func (s *Service) Authenticate(ctx context.Context, token string) (session.Session, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return session.Session{}, apperrors.NewUnauthorizedError("Invalid or expired token")
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to check token: %w", err)
	}
	if revoked {
		return session.Session{}, apperrors.NewUnauthorizedError("Token has been revoked")
	}

	sess := session.Session{
		UID:     claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Logout revokes the session's token until it would have expired.
func (s *Service) Logout(ctx context.Context, sess session.Session) error {
	if sess.TokenID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ForgotPassword stores a reset code on the account and emails it.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("Email is required")
	}
	if s.mailer == nil {
		return apperrors.NewInternalError("Email is not configured")
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	if err := s.users.SetOTP(ctx, user.UID(), otp, s.now().Add(otpTTL)); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	err = s.mailer.SendEmail(ctx, user.Name, user.Email, "Reset Password OTP",
		fmt.Sprintf("Your OTP for password reset is: %s", otp),
		fmt.Sprintf("<h1>Your OTP for password reset is: <strong>%s</strong></h1>", otp))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// ResetPassword sets a new password when otp matches the emailed code.
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	email = normalizeEmail(email)
	if email == "" || otp == "" || newPassword == "" {
		return apperrors.NewValidationError("Email, OTP and New Password are required")
	}
	if err := checkNewPassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.checkOTP(ctx, user, otp); err != nil {
		return err
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, user.UID(), hashed); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// checkOTP accepts otp only while the emailed code is unexpired. The code is
// discarded after maxOTPAttempts wrong guesses.
func (s *Service) checkOTP(ctx context.Context, user *models.User, otp string) error {
	if user.OTP == "" {
		return apperrors.NewUnauthorizedError("Invalid OTP")
	}
	if s.now().After(user.OTPExpiresAt) {
		if err := s.users.SetOTP(ctx, user.UID(), "", time.Time{}); err != nil {
			log.Printf("Failed to clear expired otp for %s: %v", user.UID(), err)
		}
		return apperrors.NewUnauthorizedError("OTP has expired. Please request a new one")
	}
	if subtle.ConstantTimeCompare([]byte(user.OTP), []byte(otp)) == 1 {
		return nil
	}

	attempts, err := s.users.RecordOTPFailure(ctx, user.UID())
	if err != nil {
		return fmt.Errorf("failed to record otp attempt: %w", err)
	}
	if attempts >= maxOTPAttempts {
		if err := s.users.SetOTP(ctx, user.UID(), "", time.Time{}); err != nil {
			return fmt.Errorf("failed to clear otp: %w", err)
		}
		return apperrors.NewUnauthorizedError("Too many invalid attempts. Please request a new OTP")
	}
	return apperrors.NewUnauthorizedError("Invalid OTP")
}

// ChangePassword requires the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, uid, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperrors.NewValidationError("Current and new password are required")
	}
	if err := checkNewPassword(newPassword); err != nil {
		return err
	}
	user, err := s.loadUser(ctx, uid)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)) != nil {
		return apperrors.NewUnauthorizedError("Current password is incorrect")
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, uid, hashed); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, uid string) (*models.User, error) {
	return s.loadUser(ctx, uid)
}

// UpdateProfile edits name and username. Blank values are rejected.
func (s *Service) UpdateProfile(ctx context.Context, uid string, update models.ProfileUpdate) (*models.User, error) {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("Name cannot be empty")
		}
		update.Name = &name
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, apperrors.NewValidationError("Username cannot be empty")
		}
		update.Username = &username
	}
	if update.Name == nil && update.Username == nil {
		return nil, apperrors.NewValidationError("Nothing to update")
	}

	user, err := s.users.UpdateProfile(ctx, uid, update)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// SaveMeasurements overwrites an end user's self-measurement.
func (s *Service) SaveMeasurements(ctx context.Context, uid string, m models.SelfMeasurement) (*models.User, error) {
	user, err := s.loadUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleUser {
		return nil, apperrors.NewForbiddenError("Only customers keep personal measurements")
	}
	if err := s.users.SetMeasurements(ctx, uid, m); err != nil {
		return nil, fmt.Errorf("failed to save measurements: %w", err)
	}
	user.Measurements = &m
	return user, nil
}

// ShareMeasurements renders the customer's own measurements as shareable text.
func (s *Service) ShareMeasurements(ctx context.Context, uid string) (string, error) {
	user, err := s.loadUser(ctx, uid)
	if err != nil {
		return "", err
	}
	if user.Role != models.RoleUser {
		return "", apperrors.NewForbiddenError("Only customers keep personal measurements")
	}
	return MeasurementShareText(user.Username, user.Measurements), nil
}

// MeasurementShareText formats a self-measurement like a tailor's record
// summary. Missing values, or a nil m, read N/A.
func MeasurementShareText(username string, m *models.SelfMeasurement) string {
	if m == nil {
		m = &models.SelfMeasurement{}
	}
	orNA := func(v string) string {
		if strings.TrimSpace(v) == "" {
			return "N/A"
		}
		return v
	}

	var b strings.Builder
	b.WriteString("Measurements:\n")
	b.WriteString("---------------------------------------------\n")
	fmt.Fprintf(&b, "Username: %s\n", username)
	fmt.Fprintf(&b, "Arm: %s Inches\n", orNA(m.ArmLength))
	fmt.Fprintf(&b, "Shoulder: %s Inches\n", orNA(m.Shoulders))
	fmt.Fprintf(&b, "Chest: %s Inches\n", orNA(m.Chest))
	fmt.Fprintf(&b, "Waist: %s Inches\n", orNA(m.Waist))
	fmt.Fprintf(&b, "Hip: %s Inches\n", orNA(m.Hip))
	fmt.Fprintf(&b, "Neck: %s Inches\n", orNA(m.NeckSize))
	fmt.Fprintf(&b, "Shalwar Length: %s Inches\n", orNA(m.ShalwarLength))
	fmt.Fprintf(&b, "Qameez Length: %s Inches\n", orNA(m.QameezLength))
	fmt.Fprintf(&b, "Recommended Size: %s\n", orNA(m.RecommendedSize))
	b.WriteString("---------------------------------------------")
	return b.String()
}

// GoogleSignIn signs in the account with the Google email, creating a
// customer account on first use.
func (s *Service) GoogleSignIn(ctx context.Context, profile GoogleProfile) (*Result, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, apperrors.NewUnauthorizedError("Google account has no email")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	// Google accounts sign in without a password; store an unguessable one.
	hashed, err := hashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	now := s.now()
	user = &models.User{
		Name:      name,
		Username:  strings.Split(email, "@")[0],
		Email:     email,
		Role:      models.RoleUser,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperrors.NewConflictError("User with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.sendWelcome(ctx, user)
	return s.issue(user)
}

// WatchProfile subscribes to the signed-in user's document.
func (s *Service) WatchProfile(ctx context.Context, uid string) (*store.Subscription[*models.User], error) {
	return s.users.WatchUser(ctx, uid)
}
