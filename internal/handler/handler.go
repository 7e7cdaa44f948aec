// Package handler exposes the services over HTTP with gin.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fellowship/internal/apperr"
	"fellowship/internal/attendance"
	"fellowship/internal/audit"
	"fellowship/internal/events"
	"fellowship/internal/members"
	"fellowship/internal/reports"
	"fellowship/internal/transport"
)

// AttendanceLister lists who attended an event.
type AttendanceLister interface {
	EventAttendance(ctx context.Context, eventID string) (*attendance.EventAttendance, error)
}

// AuditLister lists admission decisions for an event.
type AuditLister interface {
	ListForEvent(ctx context.Context, eventID string, limit int) ([]audit.Entry, error)
}

// Deps are the services the handlers call.
type Deps struct {
	Members    *members.Service
	Events     *events.Service
	Admission  *attendance.Service
	Attendance AttendanceLister
	Transport  *transport.Service
	Reports    *reports.Engine
	Audit      AuditLister
	Logger     *slog.Logger
}

// Handler serves the JSON API.
type Handler struct {
	Deps
}

// New constructs a Handler.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{Deps: d}
}

// Register mounts all routes under /api. Routes for kiosks are public; the
// rest run behind the manager middlewares.
func (h *Handler) Register(r gin.IRouter, manager ...gin.HandlerFunc) {
	api := r.Group("/api")

	api.POST("/members", h.registerMember)
	api.GET("/members/credential/:credential", h.memberByCredential)
	api.GET("/members/phone/:phone", h.memberByPhone)
	api.GET("/events/active", h.activeEvent)
	api.POST("/attendance/check-in", h.checkIn)
	api.POST("/attendance/guest-check-in", h.guestCheckIn)
	api.POST("/transport/book", h.bookTransport)

	m := api.Group("", manager...)
	m.GET("/members/number/:number", h.memberByNumber)
	m.POST("/events", h.createEvent)
	m.GET("/events", h.listEvents)
	m.GET("/events/:id", h.getEvent)
	m.PUT("/events/:id", h.updateEvent)
	m.DELETE("/events/:id", h.deleteEvent)
	m.PATCH("/events/:id/toggle-active", h.toggleActive)
	m.PATCH("/events/:id/toggle-guest-checkin", h.toggleGuestCheckin)

	m.GET("/attendance/event/:id", h.eventAttendance)
	m.GET("/attendance/event/:id/audit", h.eventAudit)
	m.GET("/transport/event/:id", h.transportList)

	m.GET("/reports/dashboard", h.dashboard)
	m.GET("/reports/custom", h.customReport)
	m.GET("/reports/:id", h.eventReport)
	m.GET("/reports/:id/compare", h.comparativeReport)
}

// fail renders err as {"error": code, "message": text}. Internal errors are
// logged where they are created, not here.
func (h *Handler) fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	c.AbortWithStatusJSON(statusOf(code), gin.H{"error": code, "message": apperr.MessageOf(err)})
}

// internal logs a storage failure raised in the handler itself and renders it.
func (h *Handler) internal(c *gin.Context, err error, op string) {
	h.Logger.ErrorContext(c.Request.Context(), op+" failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err)
	h.fail(c, apperr.Wrap(err, apperr.CodeInternal, op))
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		h.fail(c, err)
		return
	}
	h.fail(c, apperr.Validation("invalid request body: "+err.Error()))
}

func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodePreconditionFailed:
		return http.StatusForbidden
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
