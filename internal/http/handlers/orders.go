package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tabletrack.dev/app/internal/http/middleware"
	"tabletrack.dev/app/internal/http/validation"
	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/shared/apperr"
)

type OrdersHandler struct {
	Svc  *orders.Service
	Repo *orders.Repo
}

func NewOrdersHandler(svc *orders.Service, repo *orders.Repo) *OrdersHandler {
	return &OrdersHandler{Svc: svc, Repo: repo}
}

type orderLineInput struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type createOrderInput struct {
	Lines           []orderLineInput `json:"lines" binding:"required,min=1,dive"`
	DeliveryAddress string           `json:"delivery_address" binding:"required,min=5,max=512"`
	ContactNumber   string           `json:"contact_number" binding:"required,min=5,max=32"`
}

// POST /orders
func (h *OrdersHandler) Create(c *gin.Context) {
	var in createOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fields := validation.FromBindError(err, &in)
		middleware.Fail(c, apperr.InvalidErr("Invalid order request.", fields))
		return
	}

	lines := make([]orders.CreateLine, len(in.Lines))
	for i, ln := range in.Lines {
		lines[i] = orders.CreateLine{ItemID: ln.ItemID, Quantity: ln.Quantity}
	}

	o, items, err := h.Svc.Create(c.Request.Context(), orders.CreateInput{
		CustomerID:      middleware.CurrentUserID(c),
		Lines:           lines,
		DeliveryAddress: in.DeliveryAddress,
		ContactNumber:   in.ContactNumber,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, orderJSON(o, items))
}

// GET /orders/:id
func (h *OrdersHandler) Get(c *gin.Context) {
	id := c.Param("id")

	o, items, err := h.Repo.GetWithItems(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if !middleware.IsAdmin(c) && o.CustomerID != middleware.CurrentUserID(c) {
		// don't reveal the order's existence to other customers
		middleware.Fail(c, apperr.NotFoundErr("Order not found."))
		return
	}

	c.JSON(http.StatusOK, orderJSON(o, items))
}

// GET /orders
func (h *OrdersHandler) ListMine(c *gin.Context) {
	res, err := h.Repo.ListByCustomer(c.Request.Context(), orders.ListByCustomerParams{
		CustomerID: middleware.CurrentUserID(c),
		Page:       parseInt(c.Query("page"), 1),
		PageSize:   parseInt(c.Query("page_size"), 20),
		Status:     c.Query("status"),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	out := make([]gin.H, len(res.Items))
	for i, o := range res.Items {
		out[i] = orderSummaryJSON(o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "total": res.Total})
}

type cancelInput struct {
	Note string `json:"note" binding:"omitempty,max=255"`
}

// POST /orders/:id/cancel
func (h *OrdersHandler) Cancel(c *gin.Context) {
	var in cancelInput
	_ = c.ShouldBindJSON(&in) // body is optional

	err := h.Svc.Cancel(c.Request.Context(), orders.CancelInput{
		OrderID: c.Param("id"),
		ActorID: middleware.CurrentUserID(c),
		IsAdmin: middleware.IsAdmin(c),
		Note:    in.Note,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "status": orders.StatusCancelled})
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
