package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tabletrack.dev/app/internal/http/handlers"
	"tabletrack.dev/app/internal/http/middleware"
	"tabletrack.dev/app/internal/metrics"
	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/modules/payments"
	"tabletrack.dev/app/internal/notify"
)

type Deps struct {
	Logger     *slog.Logger
	OrderSvc   *orders.Service
	OrderRepo  *orders.Repo
	AdminSvc   *orders.AdminService
	IntentSvc  *payments.IntentService
	Reconciler *payments.Reconciler
	Hub        *notify.Hub
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(metrics.Middleware())
	// ErrorHandler must wrap Recovery so a recovered panic still renders
	r.Use(middleware.ErrorHandler(d.Logger))
	r.Use(middleware.Recovery(d.Logger))

	ordersH := handlers.NewOrdersHandler(d.OrderSvc, d.OrderRepo)
	paymentsH := handlers.NewPaymentsHandler(d.IntentSvc, d.Reconciler)
	webhookH := handlers.NewWebhookHandler(d.Logger, d.Reconciler)
	adminH := handlers.NewAdminOrdersHandler(d.AdminSvc, d.OrderRepo)
	wsH := handlers.NewWSHandler(d.Hub, d.Logger)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// webhook is public: signature verification is the only auth
	r.POST("/payments/webhook", webhookH.Handle)

	authed := r.Group("/", middleware.RequireAuth())
	{
		authed.POST("/orders", ordersH.Create)
		authed.GET("/orders", ordersH.ListMine)
		authed.GET("/orders/:id", ordersH.Get)
		authed.POST("/orders/:id/cancel", ordersH.Cancel)

		authed.POST("/payments/create", paymentsH.CreateIntent)
		authed.POST("/payments/verify", paymentsH.Verify)

		authed.GET("/ws/customer", wsH.Customer)
		authed.GET("/ws/orders/:id", wsH.Order)
	}

	admin := r.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/orders", adminH.List)
		admin.GET("/orders/:id/events", adminH.Events)
		admin.PUT("/orders/:id/status", adminH.UpdateStatus)
		admin.GET("/ws", wsH.Admin)
	}

	return r
}
