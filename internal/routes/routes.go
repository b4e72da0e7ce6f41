package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stanstork/nestpay-api/internal/authz"
	"github.com/stanstork/nestpay-api/internal/handlers"
	"github.com/stanstork/nestpay-api/internal/middleware"
	"github.com/stanstork/nestpay-api/internal/models"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Occupancy     *handlers.OccupancyHandler
	Payment       *handlers.PaymentHandler
	Property      *handlers.PropertyHandler
	Notification  *handlers.NotificationHandler
	JoinRateLimit *middleware.KeyedLimiter
}

// NewRouter sets up the API routes
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.JWTMiddleware)

	// Any authenticated user
	api.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/me/profile", h.Auth.UpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/properties", h.Property.ListActive).Methods(http.MethodGet)
	api.HandleFunc("/properties/{propertyID}", h.Property.Get).Methods(http.MethodGet)
	api.HandleFunc("/properties/{propertyID}/units", h.Property.ListAvailableUnits).Methods(http.MethodGet)
	api.HandleFunc("/properties/{propertyID}/reviews", h.Property.ListReviews).Methods(http.MethodGet)
	api.HandleFunc("/notifications", h.Notification.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", h.Notification.MarkRead).Methods(http.MethodPost)

	// Tenant endpoints
	tenant := authz.RequireRole(models.RoleTenant)
	joinRequest := http.Handler(http.HandlerFunc(h.Occupancy.SubmitJoinRequest))
	if h.JoinRateLimit != nil {
		joinRequest = middleware.RateLimit(h.JoinRateLimit)(joinRequest)
	}
	api.Handle("/join-requests", tenant(joinRequest)).Methods(http.MethodPost)
	api.Handle("/properties/{propertyID}/review", tenant(http.HandlerFunc(h.Property.UpsertReview))).Methods(http.MethodPut)
	api.Handle("/me/occupancies", tenant(http.HandlerFunc(h.Occupancy.ListMine))).Methods(http.MethodGet)
	api.Handle("/occupancies/{occupancyID}/leave", tenant(http.HandlerFunc(h.Occupancy.Leave))).Methods(http.MethodPost)
	api.Handle("/payments", tenant(http.HandlerFunc(h.Payment.Record))).Methods(http.MethodPost)
	api.Handle("/me/payments", tenant(http.HandlerFunc(h.Payment.ListMine))).Methods(http.MethodGet)

	// Landlord endpoints
	landlord := api.PathPrefix("/landlord").Subrouter()
	landlord.Use(authz.RequireRole(models.RoleLandlord))
	landlord.HandleFunc("/properties", h.Property.ListMine).Methods(http.MethodGet)
	landlord.HandleFunc("/properties", h.Property.Create).Methods(http.MethodPost)
	landlord.HandleFunc("/properties/{propertyID}", h.Property.SetActive).Methods(http.MethodPatch)
	landlord.HandleFunc("/properties/{propertyID}/units", h.Property.ListUnits).Methods(http.MethodGet)
	landlord.HandleFunc("/properties/{propertyID}/units", h.Property.CreateUnit).Methods(http.MethodPost)
	landlord.HandleFunc("/units/{unitID}", h.Property.DeleteUnit).Methods(http.MethodDelete)
	landlord.HandleFunc("/units/{unitID}/vacate", h.Occupancy.VacateUnit).Methods(http.MethodPost)
	landlord.HandleFunc("/join-requests", h.Occupancy.ListJoinRequests).Methods(http.MethodGet)
	landlord.HandleFunc("/join-requests/{occupancyID}/approve", h.Occupancy.Approve).Methods(http.MethodPost)
	landlord.HandleFunc("/join-requests/{occupancyID}/reject", h.Occupancy.Reject).Methods(http.MethodPost)
	landlord.HandleFunc("/payments", h.Payment.ListForLandlord).Methods(http.MethodGet)
	landlord.HandleFunc("/payments/{paymentID}/confirm", h.Payment.Confirm).Methods(http.MethodPost)
	landlord.HandleFunc("/payments/{paymentID}/fail", h.Payment.Fail).Methods(http.MethodPost)
	landlord.HandleFunc("/tenants", h.Occupancy.TenantRoster).Methods(http.MethodGet)

	return router
}
