package httpapi

import (
	"net/http"
	"time"

	"suki-be/internal/apperror"
	"suki-be/internal/email"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type sendEmailRequest struct {
	CustomerID   uuid.UUID  `json:"customer_id"`
	TemplateID   uuid.UUID  `json:"template_id"`
	ScheduledFor *time.Time `json:"scheduled_for"`
}

var errEmailTarget = apperror.Validation("customer_id and template_id are required")

func (h *handler) listTemplates(c *gin.Context) {
	res, err := h.Email.ListTemplates(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *handler) createTemplate(c *gin.Context) {
	var in email.TemplateInput
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	res, err := h.Email.CreateTemplate(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handler) updateTemplate(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var in email.TemplateUpdate
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	res, err := h.Email.UpdateTemplate(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) deleteTemplate(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Email.DeleteTemplate(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) sendEmail(c *gin.Context) {
	var req sendEmailRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.CustomerID == uuid.Nil || req.TemplateID == uuid.Nil {
		fail(c, errEmailTarget)
		return
	}

	res, err := h.Email.SendTemplateEmail(c.Request.Context(), req.CustomerID, req.TemplateID, req.ScheduledFor)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusOK
	if res.Status == email.StatusScheduled {
		status = http.StatusAccepted
	}
	c.JSON(status, res)
}

func (h *handler) listEmails(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		fail(c, err)
		return
	}

	var customerID *uuid.UUID
	if v := c.Query("customer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			fail(c, errInvalidID)
			return
		}
		customerID = &id
	}

	res, err := h.Email.ListLogs(c.Request.Context(), customerID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if res == nil {
		res = []*email.Log{}
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *handler) emailRateLimit(c *gin.Context) {
	count, err := queryInt(c, "count", 1)
	if err != nil {
		fail(c, err)
		return
	}

	res, err := h.Email.CheckRateLimit(c.Request.Context(), count)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) flushEmails(c *gin.Context) {
	sum, err := h.Email.FlushDue(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
