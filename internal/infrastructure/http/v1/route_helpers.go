// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/auth"
	"mecsa/internal/infrastructure/http/v1/middleware"
)

// Operation ids of the grant table. A role grants an operation within an
// access; the guard takes the (access, operation) pair.
const (
	OpRead   = 101
	OpCreate = 102
	OpUpdate = 103
	OpAnnul  = 104
)

// Access ids of the grant table, one per protected module.
const (
	AccessUsers            = 1
	AccessYarns            = 2
	AccessFabrics          = 3
	AccessFibers           = 4
	AccessColors           = 5
	AccessSuppliers        = 6
	AccessUnits            = 7
	AccessParameters       = 8
	AccessPurchaseEntries  = 9
	AccessWeavingDispatch  = 10
	AccessWeavingEntries   = 11
	AccessDyeingDispatches = 12
	AccessServiceOrders    = 13
	AccessAuditLogs        = 14
)

// routeDeps bundles the middleware dependencies every route line needs.
type routeDeps struct {
	auth  *auth.Service
	audit *audit.Service
}

func (d routeDeps) guard(accessID, operationID int) gin.HandlerFunc {
	return middleware.RequireAccess(d.auth, accessID, operationID)
}

func (d routeDeps) record(endpoint string) gin.HandlerFunc {
	return middleware.Audit(d.audit, endpoint)
}

// CatalogRouteHandler defines the interface for catalog handlers.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
}

// MovementRouteHandler defines the interface for movement document handlers.
type MovementRouteHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Annul(c *gin.Context)
	IsUpdatable(c *gin.Context)
}

// RegisterCatalogRoutes registers the standard routes of a catalog whose
// items are addressed by an :id path parameter.
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, d routeDeps, accessID int, endpoint string) {
	group.GET("", d.guard(accessID, OpRead), handler.List)
	group.GET("/:id", d.guard(accessID, OpRead), handler.Get)
	group.POST("", d.guard(accessID, OpCreate), d.record(endpoint+".create"), handler.Create)
	group.PATCH("/:id", d.guard(accessID, OpUpdate), d.record(endpoint+".update"), handler.Update)
}

// RegisterMovementRoutes registers the standard routes of a movement
// document: list, read, create, patch, anulate and is-updatable.
func RegisterMovementRoutes(group *gin.RouterGroup, handler MovementRouteHandler, d routeDeps, accessID int, endpoint string) {
	group.GET("", d.guard(accessID, OpRead), handler.List)
	group.GET("/:number", d.guard(accessID, OpRead), handler.Get)
	group.GET("/:number/is-updatable", d.guard(accessID, OpRead), handler.IsUpdatable)
	group.POST("", d.guard(accessID, OpCreate), d.record(endpoint+".create"), handler.Create)
	group.PATCH("/:number", d.guard(accessID, OpUpdate), d.record(endpoint+".update"), handler.Update)
	group.PUT("/:number/anulate", d.guard(accessID, OpAnnul), d.record(endpoint+".anulate"), handler.Annul)
}
