package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/auth"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/idempotency"
	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requireAuth accepts requests carrying a valid access_token cookie.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(common.AccessTokenCookieName)
		if err != nil || token == "" {
			fail(c, http.StatusUnauthorized, "missing token", nil)
			return
		}

		userID, err := auth.GetUserIDFromToken(token, h.secret)
		if err != nil {
			fail(c, http.StatusUnauthorized, err.Error(), nil)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotent replays the stored response for a repeated Idempotency-Key.
// Requests without the header run normally. Keys are scoped to the user.
func (h *Handler) idempotent() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.IdempotencyKeyHeader)
		if header == "" {
			c.Next()
			return
		}
		key := c.GetString(userIDKey) + ":" + header

		rec, created := h.idempotency.Begin(key)
		if !created {
			switch rec.Status {
			case idempotency.StatusDone:
				c.Header("Idempotent-Replayed", "true")
				c.Data(rec.ResponseStatus, "application/json; charset=utf-8", rec.ResponseBody)
				c.Abort()
			default:
				c.AbortWithStatusJSON(http.StatusAccepted, envelope{Success: true})
			}
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w

		defer func() {
			if r := recover(); r != nil {
				h.idempotency.MarkFailed(key, "panic")
				panic(r)
			}
		}()

		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError || status == http.StatusUnauthorized || status == http.StatusForbidden {
			h.idempotency.MarkFailed(key, http.StatusText(status))
			return
		}
		h.idempotency.MarkDone(key, w.body.Bytes(), status)
	}
}
