// Package handlers is the gin REST surface of the development API.
package handlers

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/devapi/config"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/idempotency"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/store"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/dmitrijs2005/fieldcrm/internal/validation"
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// Handler groups dependencies for the API routes.
type Handler struct {
	store       *store.Store
	idempotency *idempotency.Store
	validate    *validatorv10.Validate
	logger      logging.Logger
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func New(cfg *config.Config, st *store.Store, idem *idempotency.Store, l logging.Logger) *Handler {
	return &Handler{
		store:       st,
		idempotency: idem,
		validate:    validation.New(),
		logger:      l.With("module", "http_api"),
		secret:      []byte(cfg.SecretKey),
		accessTTL:   cfg.AccessTokenValidityDuration,
		refreshTTL:  cfg.RefreshTokenValidityDuration,
	}
}

// Router registers every route under basePath.
func (h *Handler) Router(basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog())
	r.MaxMultipartMemory = maxPhotoBytes

	api := r.Group(basePath)

	health := func(c *gin.Context) { c.Status(http.StatusOK) }
	api.GET("/health", health)
	api.HEAD("/health", health)

	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)
	api.POST("/auth/logout", h.logout)

	authed := api.Group("", h.requireAuth())
	authed.GET("/auth/profile", h.profile)
	authed.GET("/orders", h.listOrders)
	authed.GET("/orders/:id", h.getOrder)
	authed.GET("/notifications", h.listNotifications)

	mutations := authed.Group("", h.idempotent())
	mutations.PATCH("/orders/:id", h.updateOrder)
	mutations.POST("/orders/:id/status", h.changeStatus)
	mutations.POST("/orders/:id/comments", h.addComment)
	mutations.POST("/orders/:id/photos", h.uploadPhoto)
	mutations.POST("/notifications/:id/read", h.markRead)
	mutations.DELETE("/notifications/:id", h.deleteNotification)

	return r
}
