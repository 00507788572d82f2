package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tabletrack.dev/app/internal/http/middleware"
	"tabletrack.dev/app/internal/http/validation"
	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/shared/apperr"
)

type AdminOrdersHandler struct {
	Svc  *orders.AdminService
	Repo *orders.Repo
}

func NewAdminOrdersHandler(svc *orders.AdminService, repo *orders.Repo) *AdminOrdersHandler {
	return &AdminOrdersHandler{Svc: svc, Repo: repo}
}

// GET /admin/orders
func (h *AdminOrdersHandler) List(c *gin.Context) {
	res, err := h.Repo.AdminList(c.Request.Context(), orders.AdminListParams{
		Status:   c.Query("status"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 30),
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

// GET /admin/orders/:id/events — the status audit trail.
func (h *AdminOrdersHandler) Events(c *gin.Context) {
	evs, err := h.Repo.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	out := make([]gin.H, len(evs))
	for i, ev := range evs {
		e := gin.H{
			"from_status": ev.FromStatus,
			"to_status":   ev.ToStatus,
			"actor_id":    ev.ActorID,
			"created_at":  ev.CreatedAt.Format(time.RFC3339),
		}
		if ev.Note != nil {
			e["note"] = *ev.Note
		}
		out[i] = e
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

type updateStatusInput struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"omitempty,max=255"`
}

// PUT /admin/orders/:id/status
func (h *AdminOrdersHandler) UpdateStatus(c *gin.Context) {
	var in updateStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fields := validation.FromBindError(err, &in)
		middleware.Fail(c, apperr.InvalidErr("Invalid status request.", fields))
		return
	}

	err := h.Svc.Transition(c.Request.Context(), orders.TransitionInput{
		OrderID:     c.Param("id"),
		ActorUserID: middleware.CurrentUserID(c),
		NewStatus:   in.Status,
		Note:        in.Note,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "status": in.Status})
}
