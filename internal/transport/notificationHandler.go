package transport

import (
	"net/http"

	"github.com/ds124wfegd/calendar-reminders/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	subscriptionService service.SubscriptionService
	vapidPublicKey      string
}

func NewNotificationHandler(subscriptionService service.SubscriptionService, vapidPublicKey string) *NotificationHandler {
	return &NotificationHandler{
		subscriptionService: subscriptionService,
		vapidPublicKey:      vapidPublicKey,
	}
}

func (h *NotificationHandler) Subscribe(c *gin.Context) {
	var req service.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing subscription or userId"})
		return
	}

	sub, err := h.subscriptionService.Subscribe(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": sub.ID})
}

func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	var req service.UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing endpoint or userId"})
		return
	}

	if err := h.subscriptionService.Unsubscribe(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) Send(c *gin.Context) {
	var req service.SendPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields"})
		return
	}

	result, err := h.subscriptionService.SendPush(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sent":    result.Sent,
		"failed":  result.Failed,
		"total":   result.Total,
	})
}

func (h *NotificationHandler) LinkTelegram(c *gin.Context) {
	var req service.LinkTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing telegramId or userId"})
		return
	}

	if err := h.subscriptionService.LinkTelegram(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// VAPIDKey lets the browser build its push subscription.
func (h *NotificationHandler) VAPIDKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.vapidPublicKey})
}
