package httpapi

import (
	"net/http"
	"strings"

	"suki-be/internal/customer"
	"suki-be/internal/ledger"
	"suki-be/internal/ledgersync"

	"github.com/gin-gonic/gin"
)

type customerPage struct {
	Items []*customer.Customer `json:"items"`
	Total int                  `json:"total"`
}

func (h *handler) listCustomers(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		fail(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		fail(c, err)
		return
	}

	items, total, err := h.Customers.List(c.Request.Context(), customer.ListFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		SyncStatus: ledgersync.Status(c.Query("sync_status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []*customer.Customer{}
	}
	c.JSON(http.StatusOK, customerPage{Items: items, Total: total})
}

func (h *handler) getCustomer(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	cust, err := h.Customers.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *handler) updateCustomer(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var in customer.AdminUpdateInput
	if err := bind(c, &in); err != nil {
		fail(c, err)
		return
	}

	cust, err := h.Customers.AdminUpdate(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *handler) deleteCustomer(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Customers.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type triggerSyncRequest struct {
	Action ledgersync.Action `json:"action"`
}

type linkRequest struct {
	ContactID string `json:"contact_id"`
}

func (h *handler) triggerSync(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req triggerSyncRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.Action == "" {
		req.Action = ledgersync.ActionMatch
	}

	out, err := h.Sync.TriggerSync(c.Request.Context(), id, req.Action)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) syncProfile(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	out, err := h.Sync.SyncProfile(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) respondState(c *gin.Context, st ledgersync.State, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sync": ledgersync.Encode(st, nil)})
}

func (h *handler) resetSync(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	st, err := h.Sync.ResetSyncStatus(c.Request.Context(), id)
	h.respondState(c, st, err)
}

func (h *handler) linkContact(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req linkRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	st, err := h.Sync.LinkContact(c.Request.Context(), id, req.ContactID)
	h.respondState(c, st, err)
}

func (h *handler) unlinkContact(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	st, err := h.Sync.UnlinkContact(c.Request.Context(), id)
	h.respondState(c, st, err)
}

func (h *handler) listInvoices(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		fail(c, err)
		return
	}

	res, err := h.Sync.ListInvoices(c.Request.Context(), id, ledger.InvoiceFilter{Status: c.Query("status")}, max(page, 1))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) processQueue(c *gin.Context) {
	sum, err := h.Sync.ProcessQueue(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
