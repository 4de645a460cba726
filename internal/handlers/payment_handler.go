package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/services"
)

// PaymentHandler receives payment outcomes for tickets
type PaymentHandler struct {
	payments *services.PaymentService
	logger   *logrus.Logger
}

func NewPaymentHandler(payments *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// UpdatePayment - PATCH /payments/ticket/:ticketNumber
func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.UpdatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Status = models.PaymentStatus(strings.ToUpper(string(req.Status)))

	payment, err := h.payments.UpdatePaymentStatus(c.Request.Context(), actor, strings.ToUpper(c.Param("ticketNumber")), req)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, payment)
}
