package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/middleware"
)

// Handlers bundles every HTTP handler the API mounts
type Handlers struct {
	Health    *HealthHandler
	Bookings  *BookingHandler
	Schedules *ScheduleHandler
	Fleet     *FleetHandler
	Users     *UserHandler
	Payments  *PaymentHandler
	Audit     *AuditHandler
	Analytics *AnalyticsHandler
}

// SetupRoutes mounts /health and the authenticated /api/v1 tree on router.
// auth must populate the user context read by middleware.RequireAction.
func SetupRoutes(router *gin.Engine, h Handlers, auth gin.HandlerFunc) {
	router.GET("/health", h.Health.Health)

	v1 := router.Group("/api/v1")
	v1.Use(auth)

	bookings := v1.Group("/bookings")
	{
		bookings.POST("", middleware.RequireAction(authz.CreateBooking), h.Bookings.CreateBooking)
		bookings.GET("/me", middleware.RequireAction(authz.ViewOwnBookings), h.Bookings.ListMyBookings)
		bookings.GET("", middleware.RequireAction(authz.ListBookings), h.Bookings.ListBookings)
		bookings.GET("/ticket/:ticketNumber", middleware.RequireAction(authz.ViewTicket), h.Bookings.GetTicket)
		bookings.GET("/:id", middleware.RequireAction(authz.ViewBooking), h.Bookings.GetBooking)
		bookings.POST("/admin", middleware.RequireAction(authz.CreateBookingForUser), h.Bookings.CreateBookingForUser)

		// Ownership is checked by the cancellation service once the booking is loaded
		bookings.DELETE("/:id/cancel", h.Bookings.CancelBooking)
		bookings.PATCH("/:id/status", middleware.RequireAction(authz.UpdateBookingStatus), h.Bookings.UpdateBookingStatus)
		bookings.DELETE("/:id/cancel-admin", middleware.RequireAction(authz.AdminCancelBooking), h.Bookings.AdminCancelBooking)
		bookings.DELETE("/:id/seat/:seatNumber", middleware.RequireAction(authz.RemoveSeat), h.Bookings.RemoveSeat)
		bookings.POST("/reset-seats/:scheduleId", middleware.RequireAction(authz.ResetSeats), h.Bookings.ResetSeats)
		bookings.POST("/cleanup-orphaned", middleware.RequireAction(authz.CleanupOrphans), h.Bookings.CleanupOrphaned)
	}

	schedules := v1.Group("/schedules")
	{
		schedules.POST("", middleware.RequireAction(authz.ManageFleet), h.Schedules.CreateSchedule)
		schedules.GET("/:id", middleware.RequireAction(authz.ViewSchedule), h.Schedules.GetSchedule)
		schedules.GET("/:id/seats", middleware.RequireAction(authz.ViewSchedule), h.Schedules.ListSeats)
		schedules.POST("/:id/regenerate-seats", middleware.RequireAction(authz.RegenerateSeats), h.Schedules.RegenerateSeats)
	}

	fleet := v1.Group("")
	fleet.Use(middleware.RequireAction(authz.ManageFleet))
	{
		fleet.POST("/routes", h.Fleet.CreateRoute)
		fleet.PUT("/routes/:id", h.Fleet.UpdateRoute)
		fleet.DELETE("/routes/:id", h.Fleet.DeleteRoute)
		fleet.POST("/buses", h.Fleet.CreateBus)
		fleet.PUT("/buses/:id", h.Fleet.UpdateBus)
		fleet.DELETE("/buses/:id", h.Fleet.DeleteBus)
	}

	users := v1.Group("/users")
	{
		users.POST("", middleware.RequireAction(authz.ManageUsers), h.Users.CreateUser)
		users.PUT("/:id", middleware.RequireAction(authz.ManageUsers), h.Users.UpdateUser)
		users.DELETE("/:id", middleware.RequireAction(authz.DeleteUser), h.Users.DeleteUser)
	}

	v1.PATCH("/payments/ticket/:ticketNumber", middleware.RequireAction(authz.UpdatePayment), h.Payments.UpdatePayment)
	v1.GET("/audit-logs", middleware.RequireAction(authz.ViewAuditLogs), h.Audit.ListAuditLogs)

	analytics := v1.Group("/analytics")
	analytics.Use(middleware.RequireAction(authz.ViewAnalytics))
	{
		analytics.GET("/revenue", h.Analytics.Revenue)
		analytics.GET("/seat-utilization", h.Analytics.SeatUtilization)
		analytics.GET("/cancellations", h.Analytics.Cancellations)
		analytics.GET("/holds", h.Analytics.Holds)
	}
}
