package router

import (
	"time"

	"coop-ledger/internal/app/handlers"
	"coop-ledger/internal/app/middleware"
	"coop-ledger/internal/service/interfaces"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
)

// Dependencies are the services behind the HTTP surface. Idempotency may be
// nil when Redis is disabled.
type Dependencies struct {
	Members        handlers.MemberService
	Payments       handlers.PaymentService
	Reports        handlers.ReportService
	Loans          handlers.LoanService
	Snapshot       handlers.SnapshotStatus
	Idempotency    interfaces.RedisStoreInterface
	IdempotencyTTL time.Duration
}

func SetupRouter(serviceName string, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.NewMetricMiddleware(otel.Meter(serviceName)))
	r.Use(middleware.TraceID())
	r.Use(middleware.RequestLogger())

	healthCheckHandler := handlers.NewHealthCheckHandler(deps.Snapshot)
	membersHandler := handlers.NewMembersHandler(deps.Members)
	paymentsHandler := handlers.NewPaymentsHandler(deps.Payments, deps.Idempotency, deps.IdempotencyTTL)
	reportsHandler := handlers.NewReportsHandler(deps.Reports)
	loansHandler := handlers.NewLoansHandler(deps.Loans)

	api := r.Group("/api/v1")
	api.GET("/health", healthCheckHandler.HealthCheck)

	members := api.Group("/members")
	members.GET("", membersHandler.List)
	members.POST("", membersHandler.Register)
	members.POST("/bulk-delete", membersHandler.BulkDelete)
	members.GET("/:id", membersHandler.Get)
	members.PATCH("/:id", membersHandler.Update)
	members.DELETE("/:id", membersHandler.Delete)
	members.GET("/:id/transactions", membersHandler.Transactions)
	members.GET("/:id/loans", membersHandler.Loans)

	api.POST("/payments", paymentsHandler.Process)
	api.POST("/ledger/recover", paymentsHandler.Recover)

	reports := api.Group("/reports")
	reports.GET("/summary", reportsHandler.Summary)
	reports.GET("/members.csv", reportsHandler.MembersCSV)
	reports.GET("/transactions.csv", reportsHandler.TransactionsCSV)
	reports.POST("/export", reportsHandler.Export)

	loans := api.Group("/loans")
	loans.POST("", loansHandler.Apply)
	loans.GET("", loansHandler.List)
	loans.GET("/:id", loansHandler.Get)
	loans.POST("/:id/payments", loansHandler.RecordPayment)
	loans.PATCH("/:id/status", loansHandler.UpdateStatus)

	return r
}
