package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/retailops/ledger/docs"
	"github.com/retailops/ledger/internal/infrastructure/auth"
	"github.com/retailops/ledger/internal/interfaces/http/handler"
	"github.com/retailops/ledger/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers served by the ledger API
type Handlers struct {
	System   *handler.SystemHandler
	Receipts *handler.ReceiptHandler
	Balances *handler.BalanceHandler
}

// RegisterLedgerAPI mounts /health on the engine and the versioned API
// behind apiMiddleware. The caller has already installed the global
// middleware stack on engine.
func RegisterLedgerAPI(engine *gin.Engine, h Handlers, apiMiddleware ...gin.HandlerFunc) *Router {
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine).Use(apiMiddleware...)

	system := NewDomainGroup("")
	system.GET("/ping", h.System.Ping)
	system.GET("/system/info", h.System.GetSystemInfo)

	receipts := NewDomainGroup("/receipts")
	receipts.POST("", middleware.RequirePermission(auth.PermissionReceiptCreate), h.Receipts.Create)
	receipts.GET("", h.Receipts.List)
	receipts.GET("/:id", h.Receipts.GetByID)
	receipts.GET("/:id/audit", h.Receipts.Audit)

	decisions := receipts.Group("/:id").
		Use(middleware.RequirePermission(auth.PermissionReceiptApprove))
	decisions.POST("/approve", h.Receipts.Approve)
	decisions.POST("/reject", h.Receipts.Reject)

	ledger := NewDomainGroup("/ledger").
		Use(middleware.RequirePermission(auth.PermissionLedgerRead))
	ledger.GET("/balances", h.Balances.AsOf)

	r.Register(system).Register(receipts).Register(ledger)
	r.Setup()
	return r
}

// RegisterSwagger serves the generated API documentation under /swagger,
// guarded by protection
func RegisterSwagger(engine *gin.Engine, protection gin.HandlerFunc) {
	engine.GET("/swagger/*any", protection, ginSwagger.WrapHandler(swaggerFiles.Handler))
}
