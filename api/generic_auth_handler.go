package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/raushankrgupta/tailorme/auth"
	"github.com/raushankrgupta/tailorme/utils"
)

// LoginRequest represents the payload for user login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the payload for forgot password
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the payload for resetting password
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordRequest represents the payload for changing a known password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SignupHandler handles user registration
func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Signup API]")

	var req auth.SignupInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	res, err := h.Auth.Signup(r.Context(), req)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("User created with ID: %s, role: %s", res.User.UID(), res.User.Role))
	utils.RespondJSON(w, http.StatusCreated, res)
}

// LoginHandler handles user login
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Login API]")

	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	res, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("User %s logged in successfully", res.User.UID()))
	utils.RespondJSON(w, http.StatusOK, res)
}

// LogoutHandler revokes the caller's token
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Logout API]")

	sess := currentSession(r)
	if err := h.Auth.Logout(r.Context(), sess); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("User %s logged out", sess.UID))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// ForgotPasswordHandler handles forgot password request
func (h *Handler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Forgot Password API]")

	var req ForgotPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	if err := h.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, "Reset OTP sent")
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to your email"})
}

// ResetPasswordHandler handles password reset
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Reset Password API]")

	var req ResetPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, "Password reset successfully")
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

// ChangePasswordHandler sets a new password after checking the current one
func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Change Password API]")

	var req ChangePasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	sess := currentSession(r)
	if err := h.Auth.ChangePassword(r.Context(), sess.UID, req.CurrentPassword, req.NewPassword); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Password changed for %s", sess.UID))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
