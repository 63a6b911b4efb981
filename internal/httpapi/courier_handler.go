package httpapi

import (
	"net/http"

	"suki-be/internal/courier"

	"github.com/gin-gonic/gin"
)

func (h *handler) listCouriers(c *gin.Context) {
	res, err := h.Couriers.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *handler) createCourier(c *gin.Context) {
	var in courier.CreateInput
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	res, err := h.Couriers.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handler) updateCourier(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var in courier.UpdateInput
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	res, err := h.Couriers.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) deleteCourier(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Couriers.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
