package httpapi

import (
	"net/http"

	"suki-be/internal/address"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *handler) respondAddresses(c *gin.Context, customerID uuid.UUID) {
	res, err := h.Addresses.List(c.Request.Context(), customerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *handler) doAddAddress(c *gin.Context, customerID uuid.UUID) {
	var in address.AddressInput
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	a, err := h.Addresses.Add(c.Request.Context(), customerID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *handler) doUpdateAddress(c *gin.Context, customerID uuid.UUID) {
	addressID, err := paramID(c, "addressId")
	if err != nil {
		fail(c, err)
		return
	}

	var in address.UpdateInput
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	a, err := h.Addresses.Update(c.Request.Context(), customerID, addressID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handler) doDeleteAddress(c *gin.Context, customerID uuid.UUID) {
	addressID, err := paramID(c, "addressId")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Addresses.Delete(c.Request.Context(), customerID, addressID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) doSetDefault(c *gin.Context, customerID uuid.UUID) {
	addressID, err := paramID(c, "addressId")
	if err != nil {
		fail(c, err)
		return
	}

	a, err := h.Addresses.SetDefault(c.Request.Context(), customerID, addressID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// withCustomerID runs fn with the :id path parameter.
func withCustomerID(fn func(*gin.Context, uuid.UUID)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		fn(c, id)
	}
}

func (h *handler) listAddresses(c *gin.Context) { withCustomerID(h.respondAddresses)(c) }
func (h *handler) addAddress(c *gin.Context)    { withCustomerID(h.doAddAddress)(c) }
func (h *handler) updateAddress(c *gin.Context) { withCustomerID(h.doUpdateAddress)(c) }
func (h *handler) deleteAddress(c *gin.Context) { withCustomerID(h.doDeleteAddress)(c) }
func (h *handler) setDefault(c *gin.Context)    { withCustomerID(h.doSetDefault)(c) }
