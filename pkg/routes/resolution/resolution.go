// Package resolution exposes the duplicate resolution API.
package resolution

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/briar/pkg/context"
	"github.com/Ramsey-B/briar/pkg/events"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/resolver"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

var validate = validator.New()

// Register registers the resolution routes
func Register(g *echo.Group) {
	g.GET("/candidates", FindCandidates)
	g.POST("/merges", Merge)
	g.POST("/merges/auto", AutoResolve)
	g.POST("/merges/:id/undo", Undo)
	g.GET("/entities/:uri/merges", MergeHistory)
}

// FindCandidates returns scored duplicate candidate pairs
func FindCandidates(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "resolution_handler.FindCandidates")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	minScore, _ := strconv.ParseFloat(c.QueryParam("min_score"), 64)
	includeResolved, _ := strconv.ParseBool(c.QueryParam("include_resolved"))

	req := models.FindCandidatesRequest{
		EntityType:      c.QueryParam("entity_type"),
		Limit:           limit,
		MinScore:        minScore,
		IncludeResolved: includeResolved,
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*resolver.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolution service unavailable")
	}

	list, err := svc.FindCandidates(ctx, resolver.FindRequest{
		EntityType:      req.EntityType,
		Limit:           req.Limit,
		MinScore:        req.MinScore,
		IncludeResolved: req.IncludeResolved,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, list)
}

// Merge merges one entity into another
func Merge(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "resolution_handler.Merge")
	defer span.End()

	var req models.MergeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid merge request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*resolver.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolution service unavailable")
	}

	opts := models.MergeOptions{
		Strategy:   models.MergeStrategy(req.Strategy),
		KeepSource: req.KeepSource,
		UserID:     ctxmiddleware.GetUserID(ctx),
	}

	outcome, err := svc.Merge(ctx, req.SourceURI, req.TargetURI, opts)
	if err != nil {
		return err
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitEntityMerged(ctx, outcome, opts.Strategy, opts.UserID)
	}

	return c.JSON(http.StatusOK, outcome)
}

// AutoResolve merges high-confidence candidates in bulk
func AutoResolve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "resolution_handler.AutoResolve")
	defer span.End()

	var req models.AutoResolveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid auto-resolve request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*resolver.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolution service unavailable")
	}

	result, err := svc.AutoResolve(ctx, models.AutoResolveOptions{
		EntityType: req.EntityType,
		MinScore:   req.MinScore,
		MaxMerges:  req.MaxMerges,
		DryRun:     req.DryRun,
		UserID:     ctxmiddleware.GetUserID(ctx),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Undo restores the source entity of a past merge
func Undo(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "resolution_handler.Undo")
	defer span.End()

	mergeID := c.Param("id")
	if mergeID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "merge id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*resolver.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolution service unavailable")
	}

	userID := ctxmiddleware.GetUserID(ctx)
	restored, err := svc.Undo(ctx, mergeID, userID)
	if err != nil {
		return err
	}

	if record, recordErr := svc.GetMergeRecord(ctx, mergeID); recordErr == nil && record != nil {
		if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
			_ = emitter.EmitMergeUndone(ctx, record, userID)
		}
	}

	return c.JSON(http.StatusOK, restored)
}

// MergeHistory lists the merge records touching an entity
func MergeHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "resolution_handler.MergeHistory")
	defer span.End()

	uri := c.Param("uri")
	if uri == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "entity uri is required")
	}

	ctx, svc, err := ectoinject.GetContext[*resolver.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolution service unavailable")
	}

	records, err := svc.GetMergeHistory(ctx, uri)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, records)
}
