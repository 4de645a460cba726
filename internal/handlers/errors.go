package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/middleware"
	"github.com/smarttransit/booking-engine/internal/models"
)

// RespondError writes the JSON error for err. Unknown errors are logged and
// answered with a generic 500 so internals never leak to clients.
func RespondError(c *gin.Context, err error, logger *logrus.Logger) {
	var (
		validation models.ValidationError
		notFound   models.NotFoundError
		conflict   models.ConflictError
		forbidden  models.ForbiddenError
	)

	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": "validation_error", "message": validation.Error()}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": notFound.Error()})
	case errors.As(err, &conflict):
		body := gin.H{"error": "conflict", "message": conflict.Error()}
		if conflict.Seat != "" {
			body["seat"] = conflict.Seat
		}
		c.JSON(http.StatusConflict, body)
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": forbidden.Error()})
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}
}

// currentActor returns the authenticated caller or answers 401
func currentActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "User not authenticated"})
		return models.Actor{}, false
	}
	return actor, true
}

// bindJSON decodes the body into req or answers 400
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return false
	}
	return true
}

// uuidParam parses a path parameter or answers 400
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery parses an optional query parameter
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, models.ValidationError{Field: name, Msg: "must be a UUID"}
	}
	return &id, nil
}

// pageQuery reads page and limit; bad values fall back to the defaults
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return models.NormalizePage(page, limit)
}
