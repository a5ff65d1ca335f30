package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/middleware"
	"github.com/noah-isme/campus-billing-api/internal/models"
)

// Handlers groups every API handler mounted under the versioned prefix.
type Handlers struct {
	Plans      *PlanHandler
	Payments   *PaymentHandler
	Benefits   *BenefitHandler
	Students   *StudentHandler
	Statistics *StatisticsHandler
	Documents  *DocumentHandler
}

// RegisterRoutes mounts the billing API on group. Every route requires a valid token;
// administrators pass every role check.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, auth gin.HandlerFunc, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bursar := middleware.RequireRoles(models.RoleBursar)
	cashier := middleware.RequireRoles(models.RoleCashier, models.RoleBursar)
	reader := middleware.RequireRoles(models.RoleBursar, models.RoleCashier, models.RoleAuditor)
	auditor := middleware.RequireRoles(models.RoleBursar, models.RoleAuditor)

	// Download tokens are signed, so the link works without a bearer header.
	group.GET("/documents/download", h.Documents.Download)

	secured := group.Group("")
	secured.Use(auth)

	plans := secured.Group("/plans")
	plans.POST("", bursar, middleware.Audit(logger, "plan.create"), h.Plans.Create)
	plans.GET("", reader, h.Plans.List)
	plans.GET("/:id", reader, h.Plans.Get)
	plans.PATCH("/:id/restructure", bursar, middleware.Audit(logger, "plan.restructure"), h.Plans.Restructure)
	plans.POST("/:id/cancel", bursar, middleware.Audit(logger, "plan.cancel"), h.Plans.Cancel)

	payments := secured.Group("/payments")
	payments.POST("", cashier, middleware.Audit(logger, "payment.submit"), h.Payments.Submit)
	payments.GET("", reader, h.Payments.List)

	benefits := secured.Group("/benefits")
	benefits.POST("/quote", reader, h.Benefits.Quote)
	benefits.GET("/promo-codes/:code", reader, h.Benefits.PromoCode)

	students := secured.Group("/students/:studentId/events/:eventId")
	students.GET("/summary", reader, h.Students.Summary)
	students.GET("/eligibility", reader, h.Students.Eligibility)
	students.POST("/status/recompute", bursar, middleware.Audit(logger, "status.recompute"), h.Students.RecomputeStatus)
	students.GET("/statement", reader, h.Students.Statement)

	secured.POST("/installments/overdue/sweep", bursar, middleware.Audit(logger, "installments.sweep"), h.Statistics.Sweep)

	events := secured.Group("/events/:eventId")
	events.GET("/statistics", auditor, h.Statistics.EventStatistics)
	events.GET("/statistics/export", auditor, h.Statistics.Export)
	events.GET("/overdue-students", reader, h.Statistics.OverdueStudents)
}
