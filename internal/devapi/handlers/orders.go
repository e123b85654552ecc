package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/gin-gonic/gin"
)

const maxPhotoBytes = 10 << 20

type statusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=new assigned in_progress waiting_parts done cancelled"`
}

type commentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type updateRequest struct {
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

type photoForm struct {
	PhotoID string `json:"photo_id" validate:"required,max=64"`
}

func (h *Handler) listOrders(c *gin.Context) {
	ok(c, h.store.ListOrders())
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.store.GetOrder(c.Param("id"))
	if err != nil {
		h.storeError(c, err, "order")
		return
	}
	ok(c, o)
}

func (h *Handler) updateOrder(c *gin.Context) {
	var req updateRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	o, err := h.store.UpdateOrder(c.Param("id"), req.Fields)
	if err != nil {
		h.storeError(c, err, "order")
		return
	}
	ok(c, o)
}

func (h *Handler) changeStatus(c *gin.Context) {
	var req statusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	o, err := h.store.SetStatus(c.Param("id"), req.Status)
	if err != nil {
		h.storeError(c, err, "order")
		return
	}
	ok(c, o)
}

func (h *Handler) addComment(c *gin.Context) {
	var req commentRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	author := "unknown"
	if u, err := h.store.UserByID(c.GetString(userIDKey)); err == nil {
		author = u.Name
	}

	cm, err := h.store.AddComment(c.Param("id"), author, req.Text)
	if err != nil {
		h.storeError(c, err, "order")
		return
	}
	ok(c, cm)
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes)
	if err := c.Request.ParseMultipartForm(maxPhotoBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, "photo too large", nil)
			return
		}
		fail(c, http.StatusBadRequest, "invalid_request_body", nil)
		return
	}

	form := photoForm{PhotoID: c.Request.FormValue("photo_id")}
	if !h.check(c, form) {
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"photo": "is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_request_body", nil)
		return
	}
	defer f.Close()
	n, err := io.Copy(io.Discard, f)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_request_body", nil)
		return
	}

	if err := h.store.AddPhoto(c.Param("id"), form.PhotoID, fh.Filename, int(n)); err != nil {
		h.storeError(c, err, "order")
		return
	}
	ok(c, gin.H{"photo_id": form.PhotoID})
}
