package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/auth"
	"mecsa/internal/domain/catalogs/color"
	"mecsa/internal/domain/catalogs/fabric"
	"mecsa/internal/domain/catalogs/fiber"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/catalogs/unit"
	"mecsa/internal/domain/catalogs/yarn"
	"mecsa/internal/domain/documents/dyeing_service_dispatch"
	"mecsa/internal/domain/documents/service_order"
	"mecsa/internal/domain/documents/weaving_service_entry"
	"mecsa/internal/domain/documents/yarn_purchase_entry"
	"mecsa/internal/domain/documents/yarn_weaving_dispatch"
	"mecsa/internal/domain/params"
	"mecsa/internal/infrastructure/http/v1/handlers"
	"mecsa/internal/infrastructure/http/v1/middleware"
)

// RouterConfig holds everything the HTTP layer needs, wired in main.
type RouterConfig struct {
	AppPool    *pgxpool.Pool
	PromecPool *pgxpool.Pool

	AuthService  *auth.Service
	JWTService   *auth.JWTService
	AuditService *audit.Service

	Colors    *color.Service
	Fibers    *fiber.Service
	Units     *unit.Service
	Suppliers *supplier.CatalogService
	Params    *params.Service
	Yarns     *yarn.Service
	Fabrics   *fabric.Service

	PurchaseEntries   *yarn_purchase_entry.Service
	WeavingDispatches *yarn_weaving_dispatch.Service
	WeavingEntries    *weaving_service_entry.Service
	DyeingDispatches  *dyeing_service_dispatch.Service
	Orders            *service_order.Service

	AllowedOrigins []string
	SecureCookies  bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.AppPool, cfg.PromecPool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	registerSecurityRoutes(router, cfg)
	registerOperationsRoutes(router, cfg)

	return router
}

// registerSecurityRoutes wires /security/v1: auth flow, user administration
// and the audit log read side.
func registerSecurityRoutes(router *gin.Engine, cfg RouterConfig) {
	base := handlers.NewBaseHandler()
	d := routeDeps{auth: cfg.AuthService, audit: cfg.AuditService}

	sec := router.Group("/security/v1")

	// Auth endpoints stay outside the JWT guard: login has no token yet and
	// refresh/logout authenticate with the refresh cookie.
	authHandler := handlers.NewAuthHandler(base, cfg.AuthService, cfg.SecureCookies)
	authGroup := sec.Group("/auth")
	{
		authGroup.POST("/send-token", authHandler.SendToken)
		authGroup.POST("/login", d.record("auth.login"), authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protected := sec.Group("")
	protected.Use(middleware.Auth(cfg.JWTService))

	userHandler := handlers.NewUserHandler(base, cfg.AuthService)
	users := protected.Group("/users")
	{
		users.GET("", d.guard(AccessUsers, OpRead), userHandler.List)
		users.GET("/:id", d.guard(AccessUsers, OpRead), userHandler.Get)
		users.POST("", d.guard(AccessUsers, OpCreate), d.record("users.create"), userHandler.Create)
		users.PATCH("/:id", d.guard(AccessUsers, OpUpdate), d.record("users.update"), userHandler.Update)
		users.PUT("/:id/password", d.guard(AccessUsers, OpUpdate), d.record("users.reset-password"), userHandler.ResetPassword)
	}
	protected.GET("/roles", d.guard(AccessUsers, OpRead), userHandler.ListRoles)
	protected.GET("/accesses", d.guard(AccessUsers, OpRead), userHandler.ListAccesses)
	protected.GET("/operations", d.guard(AccessUsers, OpRead), userHandler.ListOperations)

	auditHandler := handlers.NewAuditHandler(base, cfg.AuditService)
	auditGroup := protected.Group("/audit")
	{
		auditGroup.GET("/actions", d.guard(AccessAuditLogs, OpRead), auditHandler.ListActions)
		auditGroup.GET("/actions/:action_id/data", d.guard(AccessAuditLogs, OpRead), auditHandler.ListData)
	}
}

// registerOperationsRoutes wires /operations/v1: catalogs, movement
// documents and service orders, all behind the JWT guard.
func registerOperationsRoutes(router *gin.Engine, cfg RouterConfig) {
	base := handlers.NewBaseHandler()
	d := routeDeps{auth: cfg.AuthService, audit: cfg.AuditService}

	ops := router.Group("/operations/v1")
	ops.Use(middleware.Auth(cfg.JWTService))

	// --- CATALOGS ---
	RegisterCatalogRoutes(ops.Group("/yarns"), handlers.NewYarnHandler(base, cfg.Yarns), d, AccessYarns, "yarns")
	RegisterCatalogRoutes(ops.Group("/fabrics"), handlers.NewFabricHandler(base, cfg.Fabrics), d, AccessFabrics, "fabrics")
	RegisterCatalogRoutes(ops.Group("/fibers"), handlers.NewFiberHandler(base, cfg.Fibers), d, AccessFibers, "fibers")
	RegisterCatalogRoutes(ops.Group("/color-mecsa"), handlers.NewColorHandler(base, cfg.Colors), d, AccessColors, "color-mecsa")

	supplierHandler := handlers.NewSupplierHandler(base, cfg.Suppliers)
	suppliers := ops.Group("/suppliers")
	{
		suppliers.GET("/:service_code", d.guard(AccessSuppliers, OpRead), supplierHandler.ListByService)
		suppliers.GET("/:service_code/:code", d.guard(AccessSuppliers, OpRead), supplierHandler.Get)
	}

	unitHandler := handlers.NewUnitHandler(base, cfg.Units)
	units := ops.Group("/units")
	{
		units.GET("", d.guard(AccessUnits, OpRead), unitHandler.List)
		units.GET("/:code", d.guard(AccessUnits, OpRead), unitHandler.Get)
	}

	paramsHandler := handlers.NewParamsHandler(base, cfg.Params)
	parameters := ops.Group("/parameters")
	{
		parameters.GET("/categories/:category_id", d.guard(AccessParameters, OpRead), paramsHandler.ListByCategory)
		parameters.GET("/:id", d.guard(AccessParameters, OpRead), paramsHandler.Get)
	}

	// --- MOVEMENT DOCUMENTS ---
	RegisterMovementRoutes(ops.Group("/yarn-purchase-entry"),
		handlers.NewPurchaseEntryHandler(base, cfg.PurchaseEntries), d, AccessPurchaseEntries, "yarn-purchase-entry")
	RegisterMovementRoutes(ops.Group("/yarn-weaving-dispatch"),
		handlers.NewWeavingDispatchHandler(base, cfg.WeavingDispatches), d, AccessWeavingDispatch, "yarn-weaving-dispatch")
	RegisterMovementRoutes(ops.Group("/weaving-service-entry"),
		handlers.NewWeavingEntryHandler(base, cfg.WeavingEntries), d, AccessWeavingEntries, "weaving-service-entry")
	RegisterMovementRoutes(ops.Group("/dyeing-service-dispatch"),
		handlers.NewDyeingDispatchHandler(base, cfg.DyeingDispatches), d, AccessDyeingDispatches, "dyeing-service-dispatch")

	// --- SERVICE ORDERS ---
	orderHandler := handlers.NewServiceOrderHandler(base, cfg.Orders)
	orders := ops.Group("/service-order")
	{
		orders.GET("", d.guard(AccessServiceOrders, OpRead), orderHandler.List)
		orders.GET("/:id", d.guard(AccessServiceOrders, OpRead), orderHandler.Get)
		orders.POST("", d.guard(AccessServiceOrders, OpCreate), d.record("service-order.create"), orderHandler.Create)
		orders.PATCH("/:id", d.guard(AccessServiceOrders, OpUpdate), d.record("service-order.update"), orderHandler.Update)
		orders.PUT("/:id/anulate", d.guard(AccessServiceOrders, OpAnnul), d.record("service-order.anulate"), orderHandler.Annul)
	}
}
