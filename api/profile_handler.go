package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/raushankrgupta/tailorme/models"
	"github.com/raushankrgupta/tailorme/utils"
)

// GetProfileHandler returns the signed-in account
func (h *Handler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Get Profile API]")

	user, err := h.Auth.Profile(r.Context(), currentSession(r).UID)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

// UpdateProfileHandler edits name and username
func (h *Handler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Update Profile API]")

	var req models.ProfileUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	user, err := h.Auth.UpdateProfile(r.Context(), currentSession(r).UID, req)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Profile updated for %s", user.UID()))
	utils.RespondJSON(w, http.StatusOK, user)
}

// ProfileStreamHandler pushes the account document whenever it changes
func (h *Handler) ProfileStreamHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Profile Stream API]")

	sub, err := h.Auth.WatchProfile(r.Context(), currentSession(r).UID)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	serveStream(w, r, &logMessageBuilder, sub, func(user *models.User) (string, interface{}, bool) {
		return "profile", user, false
	})
}

// SaveMeasurementsHandler overwrites the customer's own measurements
func (h *Handler) SaveMeasurementsHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Save Measurements API]")

	var req models.SelfMeasurement
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	user, err := h.Auth.SaveMeasurements(r.Context(), currentSession(r).UID, req)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Measurements saved for %s", user.UID()))
	utils.RespondJSON(w, http.StatusOK, user)
}

// ShareMeasurementsHandler renders the customer's measurements as shareable plain text
func (h *Handler) ShareMeasurementsHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Share Measurements API]")

	text, err := h.Auth.ShareMeasurements(r.Context(), currentSession(r).UID)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, text)
}

// EstimateSelfHandler estimates the customer's measurements from a photo.
// With save=true the result replaces the stored measurements.
func (h *Handler) EstimateSelfHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Estimate Measurements API]")

	img, err := readImage(r)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Received image %q (%d bytes)", img.Filename, len(img.Data)))

	est, err := h.estimate(r.Context(), &logMessageBuilder, img)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	measurements := est.ToSelfMeasurement()

	if r.FormValue("save") != "true" {
		utils.RespondJSON(w, http.StatusOK, measurements)
		return
	}

	user, err := h.Auth.SaveMeasurements(r.Context(), currentSession(r).UID, measurements)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, "Estimated measurements saved")
	utils.RespondJSON(w, http.StatusOK, user)
}
