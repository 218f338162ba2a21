package v1

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/photoscale/photoscale/internal/geodesy"
	"github.com/photoscale/photoscale/internal/groundref"
)

// GroundReferenceRequest is the body of POST /ground-reference/validate.
// Either both coordinates or a precomputed distance is required.
type GroundReferenceRequest struct {
	Photo          *geodesy.Coordinate `json:"photo"`
	Ground         *geodesy.Coordinate `json:"ground"`
	DistanceMeters *float64            `json:"distance_meters"`
}

// GroundReferenceResponse reports the decision and its thresholds.
type GroundReferenceResponse struct {
	groundref.Validation
	Usable              bool    `json:"usable"`
	AutoThresholdMeters float64 `json:"auto_threshold_meters"`
	SkipThresholdMeters float64 `json:"skip_threshold_meters"`
}

// ValidateGroundReference handles POST /api/v1/ground-reference/validate.
func (c *Controller) ValidateGroundReference(ctx echo.Context) error {
	var req GroundReferenceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	var v groundref.Validation
	switch {
	case req.Photo != nil && req.Ground != nil:
		if !req.Photo.Valid() || !req.Ground.Valid() {
			return c.HandleError(ctx, nil, "coordinates out of range", http.StatusBadRequest)
		}
		v = groundref.ValidateCoordinates(*req.Photo, *req.Ground)
	case req.DistanceMeters != nil:
		if math.IsInf(*req.DistanceMeters, 0) {
			return c.HandleError(ctx, nil, "distance must be finite", http.StatusBadRequest)
		}
		v = groundref.ValidateGroundReference(*req.DistanceMeters)
	default:
		return c.HandleError(ctx, nil, "photo and ground coordinates or distance_meters are required", http.StatusBadRequest)
	}

	return ctx.JSON(http.StatusOK, GroundReferenceResponse{
		Validation:          v,
		Usable:              v.Usable(),
		AutoThresholdMeters: groundref.AutoThresholdMeters,
		SkipThresholdMeters: groundref.SkipThresholdMeters,
	})
}
