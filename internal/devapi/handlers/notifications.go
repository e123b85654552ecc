package handlers

import "github.com/gin-gonic/gin"

func (h *Handler) listNotifications(c *gin.Context) {
	ok(c, h.store.ListNotifications())
}

func (h *Handler) markRead(c *gin.Context) {
	if err := h.store.MarkNotificationRead(c.Param("id")); err != nil {
		h.storeError(c, err, "notification")
		return
	}
	ok(c, nil)
}

func (h *Handler) deleteNotification(c *gin.Context) {
	if err := h.store.DeleteNotification(c.Param("id")); err != nil {
		h.storeError(c, err, "notification")
		return
	}
	ok(c, nil)
}
