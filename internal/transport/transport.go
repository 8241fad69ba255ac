package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/transport/middleware"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports the state of one dependency.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	RequestTimeout time.Duration
	CronSecret     string
	HealthChecks   map[string]HealthCheck
}

func InitRoutes(
	eventHandler *EventHandler,
	reminderHandler *ReminderHandler,
	notificationHandler *NotificationHandler,
	cfg RouterConfig,
) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	// Periodic entry point for external schedulers
	router.GET("/api/cron", middleware.CronAuth(cfg.CronSecret), reminderHandler.RunCron)

	notifications := router.Group("/api/notifications")
	{
		notifications.GET("/vapid-key", notificationHandler.VAPIDKey)
		notifications.POST("/subscribe", notificationHandler.Subscribe)
		notifications.POST("/unsubscribe", notificationHandler.Unsubscribe)
		notifications.POST("/send", notificationHandler.Send)
		notifications.POST("/telegram", notificationHandler.LinkTelegram)
	}

	api := router.Group("/api/v1")
	{
		events := api.Group("/events")
		{
			events.POST("", eventHandler.CreateEvent)
			events.GET("", eventHandler.ListEvents)
			events.GET("/:id", eventHandler.GetEvent)
			events.PUT("/:id", eventHandler.UpdateEvent)
			events.DELETE("/:id", eventHandler.DeleteEvent)
		}

		reminders := api.Group("/reminders")
		{
			reminders.GET("/status", reminderHandler.Status)
			reminders.GET("/upcoming/:user_id", reminderHandler.Upcoming)
		}
	}

	router.GET("/health", healthHandler(cfg.HealthChecks))

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":     state,
			"components": components,
			"timestamp":  time.Now().UTC(),
		})
	}
}
