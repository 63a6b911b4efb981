package httpapi

import (
	"net/http"

	"suki-be/internal/address"
	"suki-be/internal/auth"
	"suki-be/internal/customer"

	"github.com/gin-gonic/gin"
)

type registerResponse struct {
	Customer  *customer.Customer `json:"customer"`
	Addresses []*address.Address `json:"addresses"`
}

// currentCustomer loads the customer profile of the session's subject.
func (h *handler) currentCustomer(c *gin.Context) (*customer.Customer, bool) {
	p, _ := auth.FromContext(c.Request.Context())
	cust, err := h.Customers.GetByAuthUser(c.Request.Context(), p.Subject)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return cust, true
}

func (h *handler) register(c *gin.Context) {
	var in customer.RegisterInput
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	p, _ := auth.FromContext(c.Request.Context())
	in.AuthUserID = p.Subject
	if in.Email == "" {
		in.Email = p.Email
	}

	cust, addrs, err := h.Customers.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, registerResponse{Customer: cust, Addresses: addrs})
}

func (h *handler) getMe(c *gin.Context) {
	cust, ok := h.currentCustomer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *handler) updateMe(c *gin.Context) {
	cust, ok := h.currentCustomer(c)
	if !ok {
		return
	}

	var in customer.UpdateProfileInput
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	updated, err := h.Customers.UpdateProfile(c.Request.Context(), cust.ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handler) deleteMe(c *gin.Context) {
	cust, ok := h.currentCustomer(c)
	if !ok {
		return
	}
	if err := h.Customers.Delete(c.Request.Context(), cust.ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listActiveCouriers(c *gin.Context) {
	res, err := h.Couriers.List(c.Request.Context(), true)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *handler) listMyAddresses(c *gin.Context) {
	cust, ok := h.currentCustomer(c)
	if !ok {
		return
	}
	h.respondAddresses(c, cust.ID)
}

func (h *handler) addMyAddress(c *gin.Context) {
	cust, ok := h.currentCustomer(c)
	if !ok {
		return
	}
	h.doAddAddress(c, cust.ID)
}

func (h *handler) updateMyAddress(c *gin.Context) {
	cust, ok := h.currentCustomer(c)
	if !ok {
		return
	}
	h.doUpdateAddress(c, cust.ID)
}

func (h *handler) deleteMyAddress(c *gin.Context) {
	cust, ok := h.currentCustomer(c)
	if !ok {
		return
	}
	h.doDeleteAddress(c, cust.ID)
}

func (h *handler) setMyDefault(c *gin.Context) {
	cust, ok := h.currentCustomer(c)
	if !ok {
		return
	}
	h.doSetDefault(c, cust.ID)
}
