package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fellowship/internal/apperr"
	"fellowship/internal/attendance"
	"fellowship/internal/events"
	"fellowship/internal/members"
	"fellowship/internal/reports"
	"fellowship/internal/transport"
)

func (h *Handler) registerMember(c *gin.Context) {
	var in members.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	m, err := h.Members.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) memberByCredential(c *gin.Context) {
	m, err := h.Members.GetByCredential(c.Request.Context(), c.Param("credential"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) memberByPhone(c *gin.Context) {
	m, err := h.Members.GetByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) memberByNumber(c *gin.Context) {
	m, err := h.Members.GetByFellowshipNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) activeEvent(c *gin.Context) {
	e, err := h.Events.Active(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) createEvent(c *gin.Context) {
	var in events.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	e, err := h.Events.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) listEvents(c *gin.Context) {
	var f events.Filter
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			h.fail(c, apperr.Validation("active must be true or false"))
			return
		}
		f.Active = &active
	}
	f.Type = c.Query("type")
	f.Upcoming = c.Query("upcoming") == "true"

	list, err := h.Events.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

func (h *Handler) getEvent(c *gin.Context) {
	e, err := h.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) updateEvent(c *gin.Context) {
	var in events.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	e, err := h.Events.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) deleteEvent(c *gin.Context) {
	if err := h.Events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) toggleActive(c *gin.Context) {
	e, err := h.Events.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) toggleGuestCheckin(c *gin.Context) {
	e, err := h.Events.ToggleGuestCheckin(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) checkIn(c *gin.Context) {
	var in attendance.CheckInInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.Admission.CheckIn(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) guestCheckIn(c *gin.Context) {
	var in attendance.GuestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.Admission.GuestCheckIn(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) eventAttendance(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.Events.Find(ctx, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	list, err := h.Attendance.EventAttendance(ctx, c.Param("id"))
	if err != nil {
		h.internal(c, err, "list attendance")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) eventAudit(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.fail(c, apperr.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	ctx := c.Request.Context()
	if _, err := h.Events.Find(ctx, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	entries, err := h.Audit.ListForEvent(ctx, c.Param("id"), limit)
	if err != nil {
		h.internal(c, err, "list audit entries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) bookTransport(c *gin.Context) {
	var in transport.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	b, err := h.Transport.Book(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Transport booked successfully", "booking": b})
}

func (h *Handler) transportList(c *gin.Context) {
	list, err := h.Transport.ListForEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list, "total": len(list)})
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.Reports.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) customReport(c *gin.Context) {
	var q reports.CustomQuery
	for _, p := range []struct {
		param string
		dst   *events.Date
	}{{"start_date", &q.From}, {"end_date", &q.To}} {
		v := c.Query(p.param)
		if v == "" {
			continue
		}
		d, err := events.ParseDate(v)
		if err != nil {
			h.fail(c, apperr.Validation(p.param+": "+err.Error()))
			return
		}
		*p.dst = d
	}
	q.Type = c.Query("type")

	r, err := h.Reports.Custom(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) eventReport(c *gin.Context) {
	r, err := h.Reports.EventReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) comparativeReport(c *gin.Context) {
	r, err := h.Reports.Comparative(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
