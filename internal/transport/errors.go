package transport

import (
	"errors"
	"net/http"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrEventNotFound),
		errors.Is(err, entity.ErrUserNotFound),
		errors.Is(err, entity.ErrSubscriptionNotFound),
		errors.Is(err, entity.ErrNoSubscriptions):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidTimeRange),
		errors.Is(err, entity.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrChannelNotApplicable),
		errors.Is(err, entity.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	c.Error(err)
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
