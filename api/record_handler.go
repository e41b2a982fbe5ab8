package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/raushankrgupta/tailorme/listing"
	"github.com/raushankrgupta/tailorme/measure"
	"github.com/raushankrgupta/tailorme/models"
	"github.com/raushankrgupta/tailorme/records"
	"github.com/raushankrgupta/tailorme/utils"
)

// RecordResponse is a record with a temporary link to its archived photo.
type RecordResponse struct {
	models.Record
	ImageURL string `json:"image_url,omitempty"`
}

// EstimateResponse is returned when a photo is estimated without storing a record.
type EstimateResponse struct {
	Measurements measure.Estimate `json:"measurements"`
}

func (h *Handler) recordResponse(r *http.Request, logger *strings.Builder, rec models.Record) RecordResponse {
	res := RecordResponse{Record: rec}
	if h.Images == nil || rec.ImageKey == "" {
		return res
	}
	url, err := h.Images.PresignURL(r.Context(), rec.ImageKey)
	if err != nil {
		utils.AddToLogMessage(logger, fmt.Sprintf("Failed to presign %s: %v", rec.ImageKey, err))
		return res
	}
	res.ImageURL = url
	return res
}

// ListRecordsHandler lists the tailor's records, optionally searched with ?q=
func (h *Handler) ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[List Records API]")

	list, err := h.Records.List(r.Context(), currentSession(r).UID, listing.RecordFilter{Query: r.URL.Query().Get("q")})
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Found %d records", len(list)))
	utils.RespondJSON(w, http.StatusOK, list)
}

// CreateRecordHandler stores a manually entered record
func (h *Handler) CreateRecordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Create Record API]")

	var req records.Input
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	rec, err := h.Records.Create(r.Context(), currentSession(r).UID, req)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Record created for %s", rec.PhoneNumber))
	utils.RespondJSON(w, http.StatusCreated, rec)
}

// GetRecordHandler returns one record by phone number
func (h *Handler) GetRecordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Get Record API]")

	rec, err := h.Records.Get(r.Context(), currentSession(r).UID, mux.Vars(r)["phone"])
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.recordResponse(r, &logMessageBuilder, rec))
}

// UpdateRecordHandler replaces a record's fields
func (h *Handler) UpdateRecordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Update Record API]")

	var req records.Input
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	phone := mux.Vars(r)["phone"]
	rec, err := h.Records.Update(r.Context(), currentSession(r).UID, phone, req)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Record %s updated", phone))
	utils.RespondJSON(w, http.StatusOK, rec)
}

// DeleteRecordHandler removes a record
func (h *Handler) DeleteRecordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Delete Record API]")

	phone := mux.Vars(r)["phone"]
	if err := h.Records.Delete(r.Context(), currentSession(r).UID, phone); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Record %s deleted", phone))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Record deleted successfully"})
}

// ShareRecordHandler renders the record as shareable plain text
func (h *Handler) ShareRecordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Share Record API]")

	rec, err := h.Records.Get(r.Context(), currentSession(r).UID, mux.Vars(r)["phone"])
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, records.ShareText(rec))
}

// CustomerOrdersHandler lists the orders placed for one record's phone number
func (h *Handler) CustomerOrdersHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Customer Orders API]")

	list, err := h.Orders.ListForCustomer(r.Context(), currentSession(r).UID, mux.Vars(r)["phone"])
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

// CustomersHandler lists distinct customers for the order form
func (h *Handler) CustomersHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Customers API]")

	customers, err := h.Records.Customers(r.Context(), currentSession(r).UID, r.URL.Query().Get("q"))
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, customers)
}

// EstimateRecordHandler estimates measurements from a photo. When username
// and phone_number are sent along, the result is stored as a new record.
func (h *Handler) EstimateRecordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Estimate Record API]")

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

	username := r.FormValue("username")
	phone := r.FormValue("phone_number")
	if username == "" && phone == "" {
		utils.RespondJSON(w, http.StatusOK, EstimateResponse{Measurements: est})
		return
	}

	rec, err := h.Records.CreateFromEstimate(r.Context(), currentSession(r).UID, username, phone, est, &img)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Record created from photo for %s", rec.PhoneNumber))
	utils.RespondJSON(w, http.StatusCreated, h.recordResponse(r, &logMessageBuilder, rec))
}

// RecordsStreamHandler pushes the filtered record list whenever it changes
func (h *Handler) RecordsStreamHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Records Stream API]")

	filter := listing.RecordFilter{Query: r.URL.Query().Get("q")}
	sub, err := h.Records.Watch(r.Context(), currentSession(r).UID)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	serveStream(w, r, &logMessageBuilder, sub, func(user *models.User) (string, interface{}, bool) {
		return "records", listing.FilterRecords(user.Records, filter), false
	})
}
