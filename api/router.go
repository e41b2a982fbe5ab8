package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/raushankrgupta/tailorme/models"
)

// NewRouter sets up all the routes for the application. CORS wraps the whole
// router so preflight requests are answered for every path.
func NewRouter(h *Handler) http.Handler {
	router := mux.NewRouter()

	// Public routes
	router.HandleFunc("/auth/signup", h.SignupHandler).Methods("POST")
	router.HandleFunc("/auth/login", h.LoginHandler).Methods("POST")
	router.HandleFunc("/auth/forgot-password", h.ForgotPasswordHandler).Methods("POST")
	router.HandleFunc("/auth/reset-password", h.ResetPasswordHandler).Methods("POST")
	router.HandleFunc("/auth/google/login", h.GoogleLoginHandler).Methods("GET")
	router.HandleFunc("/auth/google/callback", h.GoogleCallbackHandler).Methods("GET")

	// Any signed-in account
	protected := router.PathPrefix("/").Subrouter()
	protected.Use(h.AuthMiddleware)
	protected.HandleFunc("/auth/logout", h.LogoutHandler).Methods("POST")
	protected.HandleFunc("/auth/change-password", h.ChangePasswordHandler).Methods("POST")
	protected.HandleFunc("/profile", h.GetProfileHandler).Methods("GET")
	protected.HandleFunc("/profile", h.UpdateProfileHandler).Methods("PUT")
	protected.HandleFunc("/profile/stream", h.ProfileStreamHandler).Methods("GET")

	// Customers managing their own measurements
	me := router.PathPrefix("/me").Subrouter()
	me.Use(h.AuthMiddleware)
	me.Use(RequireRole(models.RoleUser))
	me.HandleFunc("/measurements", h.SaveMeasurementsHandler).Methods("PUT")
	me.HandleFunc("/measurements/estimate", h.EstimateSelfHandler).Methods("POST")
	me.HandleFunc("/measurements/share", h.ShareMeasurementsHandler).Methods("GET")

	// Tailor routes
	tailor := router.NewRoute().Subrouter()
	tailor.Use(h.AuthMiddleware)
	tailor.Use(RequireRole(models.RoleTailor))

	tailor.HandleFunc("/records", h.ListRecordsHandler).Methods("GET")
	tailor.HandleFunc("/records", h.CreateRecordHandler).Methods("POST")
	tailor.HandleFunc("/records/stream", h.RecordsStreamHandler).Methods("GET")
	tailor.HandleFunc("/records/estimate", h.EstimateRecordHandler).Methods("POST")
	tailor.HandleFunc("/records/{phone}", h.GetRecordHandler).Methods("GET")
	tailor.HandleFunc("/records/{phone}", h.UpdateRecordHandler).Methods("PUT")
	tailor.HandleFunc("/records/{phone}", h.DeleteRecordHandler).Methods("DELETE")
	tailor.HandleFunc("/records/{phone}/share", h.ShareRecordHandler).Methods("GET")
	tailor.HandleFunc("/records/{phone}/orders", h.CustomerOrdersHandler).Methods("GET")
	tailor.HandleFunc("/customers", h.CustomersHandler).Methods("GET")

	tailor.HandleFunc("/orders", h.ListOrdersHandler).Methods("GET")
	tailor.HandleFunc("/orders", h.CreateOrderHandler).Methods("POST")
	tailor.HandleFunc("/orders/stream", h.OrdersStreamHandler).Methods("GET")
	tailor.HandleFunc("/orders/{id}", h.GetOrderHandler).Methods("GET")
	tailor.HandleFunc("/orders/{id}", h.UpdateOrderHandler).Methods("PUT")
	tailor.HandleFunc("/orders/{id}", h.DeleteOrderHandler).Methods("DELETE")
	tailor.HandleFunc("/orders/{id}/toggle-status", h.ToggleOrderStatusHandler).Methods("POST")
	tailor.HandleFunc("/orders/{id}/status", h.SetOrderStatusHandler).Methods("PUT")
	tailor.HandleFunc("/orders/{id}/stream", h.OrderStreamHandler).Methods("GET")

	tailor.HandleFunc("/stats", h.StatsHandler).Methods("GET")
	tailor.HandleFunc("/stats/stream", h.StatsStreamHandler).Methods("GET")

	return CORSMiddleware(router)
}
