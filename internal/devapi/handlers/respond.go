package handlers

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/store"
	"github.com/dmitrijs2005/fieldcrm/internal/validation"
	"github.com/gin-gonic/gin"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string, fields map[string]string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg, Fields: fields})
}

// bindAndValidate binds the JSON body into out and validates it. On failure
// the response is already written and false is returned.
func (h *Handler) bindAndValidate(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request_body", nil)
		return false
	}
	return h.check(c, out)
}

func (h *Handler) check(c *gin.Context, v any) bool {
	if err := h.validate.Struct(v); err != nil {
		fail(c, http.StatusUnprocessableEntity, "validation_failed", validation.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) storeError(c *gin.Context, err error, what string) {
	var fe *store.FieldError
	switch {
	case errors.As(err, &fe):
		fail(c, http.StatusUnprocessableEntity, "validation_failed", fe.Fields)
	case errors.Is(err, common.ErrorNotFound):
		fail(c, http.StatusNotFound, what+" not found", nil)
	default:
		h.logger.Error(c.Request.Context(), "store failure", "error", err)
		fail(c, http.StatusInternalServerError, common.ErrorInternal.Error(), nil)
	}
}
