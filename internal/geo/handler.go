package geo

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/middleware"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Finder is what the handler needs from the geo service
type Finder interface {
	FindNearbyUserAlerts(ctx context.Context, lat, lng, radiusKm float64) (*NearbyResult, error)
}

// NearbyQuery is the query string of GET /alerts/nearby
type NearbyQuery struct {
	Lat      *float64 `form:"lat" validate:"required,gte=-90,lte=90"`
	Lng      *float64 `form:"lng" validate:"required,gte=-180,lte=180"`
	RadiusKm float64  `form:"radius_km" validate:"gte=0"`
}

// UpdateLocationRequest is the body of PUT /users/:user_id/location
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// Handler serves geo queries and location reports
type Handler struct {
	finder    Finder
	locations LocationStore
}

// NewHandler creates a geo handler
func NewHandler(finder Finder, locations LocationStore) *Handler {
	return &Handler{finder: finder, locations: locations}
}

// FindNearby resolves the user behind the alert nearest to a point
func (h *Handler) FindNearby(c *gin.Context) {
	var q NearbyQuery
	if !middleware.ValidateAndBindQuery(c, &q) {
		return
	}

	result, err := h.finder.FindNearbyUserAlerts(c.Request.Context(), *q.Lat, *q.Lng, q.RadiusKm)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			common.AppErrorResponse(c, common.NewNotFoundError("no alerts near this location", err).WithDetails(nf))
			return
		}
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to search alerts")
		return
	}

	common.SuccessResponse(c, result)
}

// UpdateLocation records a user's device location
func (h *Handler) UpdateLocation(c *gin.Context) {
	userID := c.Param("user_id")
	if !validation.IsValidUserID(userID) {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var req UpdateLocationRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	if err := h.locations.UpdateLastKnown(c.Request.Context(), userID, *req.Latitude, *req.Longitude); err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to update location", zap.String("user_id", userID), zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update location")
		return
	}

	common.SuccessResponse(c, gin.H{"user_id": userID, "latitude": *req.Latitude, "longitude": *req.Longitude})
}

// RegisterRoutes registers geo routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/alerts/nearby", h.FindNearby)
	rg.PUT("/users/:user_id/location", h.UpdateLocation)
}
