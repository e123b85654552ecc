package handlers

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/auth"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/store"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Login    string `json:"login" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userDTO struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func toUserDTO(u store.User) userDTO {
	return userDTO{ID: u.ID, Login: u.Login, Name: u.Name, Role: u.Role}
}

type loginResponse struct {
	User         userDTO `json:"user"`
	RefreshToken string  `json:"refreshToken"`
}

type refreshResponse struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) setSessionCookies(c *gin.Context, access, refresh string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.AccessTokenCookieName, access, int(h.accessTTL.Seconds()), "/", "", false, true)
	c.SetCookie(common.RefreshTokenCookieName, refresh, int(h.refreshTTL.Seconds()), "/", "", false, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetCookie(common.AccessTokenCookieName, "", -1, "/", "", false, true)
	c.SetCookie(common.RefreshTokenCookieName, "", -1, "/", "", false, true)
}

func (h *Handler) issue(c *gin.Context, userID, refresh string) bool {
	access, err := auth.GenerateToken(userID, h.secret, h.accessTTL)
	if err != nil {
		h.logger.Error(c.Request.Context(), "sign token", "error", err)
		fail(c, http.StatusInternalServerError, common.ErrorInternal.Error(), nil)
		return false
	}
	h.setSessionCookies(c, access, refresh)
	return true
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	u, err := h.store.Authenticate(req.Login, req.Password)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid login or password", nil)
		return
	}

	refresh, err := h.store.CreateRefreshToken(u.ID, h.refreshTTL)
	if err != nil {
		h.logger.Error(c.Request.Context(), "refresh token", "error", err)
		fail(c, http.StatusInternalServerError, common.ErrorInternal.Error(), nil)
		return
	}
	if !h.issue(c, u.ID, refresh) {
		return
	}

	h.logger.Info(c.Request.Context(), "login", "user", u.Login)
	ok(c, loginResponse{User: toUserDTO(u), RefreshToken: refresh})
}

// refreshToken prefers the body and falls back to the cookie.
func refreshToken(c *gin.Context) string {
	var req refreshRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	token, _ := c.Cookie(common.RefreshTokenCookieName)
	return token
}

func (h *Handler) refresh(c *gin.Context) {
	token := refreshToken(c)
	if token == "" {
		fail(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}

	userID, next, err := h.store.RotateRefreshToken(token, h.refreshTTL)
	if err != nil {
		msg := "invalid refresh token"
		if errors.Is(err, common.ErrRefreshTokenExpired) {
			msg = err.Error()
		}
		h.clearSessionCookies(c)
		fail(c, http.StatusUnauthorized, msg, nil)
		return
	}
	if !h.issue(c, userID, next) {
		return
	}

	ok(c, refreshResponse{RefreshToken: next})
}

func (h *Handler) logout(c *gin.Context) {
	if token := refreshToken(c); token != "" {
		h.store.DeleteRefreshToken(token)
	}
	h.clearSessionCookies(c)
	ok(c, nil)
}

func (h *Handler) profile(c *gin.Context) {
	u, err := h.store.UserByID(c.GetString(userIDKey))
	if err != nil {
		// the token outlived its account
		fail(c, http.StatusUnauthorized, "unknown user", nil)
		return
	}
	ok(c, toUserDTO(u))
}
