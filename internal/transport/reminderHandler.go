package transport

import (
	"net/http"

	"github.com/ds124wfegd/calendar-reminders/internal/service"

	"github.com/gin-gonic/gin"
)

type ReminderHandler struct {
	reminderService service.ReminderService
	eventService    service.EventService
}

func NewReminderHandler(reminderService service.ReminderService, eventService service.EventService) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
		eventService:    eventService,
	}
}

// RunCron runs one sweep and one cleanup. Partial failures are reported in the
// body with success=false; the reminders that failed stay pending.
func (h *ReminderHandler) RunCron(c *gin.Context) {
	result := h.reminderService.RunCron(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

func (h *ReminderHandler) Status(c *gin.Context) {
	result, err := h.reminderService.LastRun(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "no reminder run yet"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Upcoming: GET /api/v1/reminders/upcoming/:user_id
func (h *ReminderHandler) Upcoming(c *gin.Context) {
	upcoming, err := h.eventService.GetUpcomingReminders(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, upcoming)
}
