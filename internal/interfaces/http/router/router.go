// Package router lays out the ledger API under /api/<version>.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/interfaces/http/handler"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered on Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup collects the routes of one resource
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Handlers are the ledger API handlers. Settings may be nil when the
// settings store is unavailable.
type Handlers struct {
	Products  *handler.ProductHandler
	Customers *handler.CustomerHandler
	Queues    *handler.QueueHandler
	Dashboard *handler.DashboardHandler
	Settings  *handler.SettingsHandler
	System    *handler.SystemHandler
}

// LedgerGroups builds one DomainGroup per resource. writeGuard runs before
// every POST that creates data, typically the idempotency middleware; it
// may be nil.
func LedgerGroups(h Handlers, writeGuard gin.HandlerFunc) []RouteRegistrar {
	guarded := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if writeGuard == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{writeGuard, fn}
	}

	products := NewDomainGroup("products", "/products").
		GET("", h.Products.List).
		POST("", guarded(h.Products.Create)...).
		POST("/batch", guarded(h.Products.CreateBatch)...).
		PUT("/batch", h.Products.UpsertBatch).
		POST("/batch-delete", h.Products.DeleteBatch).
		GET("/:id", h.Products.Get).
		PUT("/:id", h.Products.Update).
		DELETE("/:id", h.Products.Delete)

	customers := NewDomainGroup("customers", "/customers").
		GET("", h.Customers.List).
		POST("", guarded(h.Customers.Create)...).
		POST("/batch", guarded(h.Customers.CreateBatch)...).
		PUT("/batch", h.Customers.UpsertBatch).
		POST("/batch-delete", h.Customers.DeleteBatch).
		GET("/balance-info", h.Customers.BalanceInfo).
		GET("/debt-info", h.Customers.DebtInfo).
		GET("/:id", h.Customers.Get).
		PUT("/:id", h.Customers.Update).
		DELETE("/:id", h.Customers.Delete).
		GET("/:id/debt", h.Customers.Debt).
		GET("/:id/queue-ids", h.Customers.QueueIDs).
		POST("/:id/deposit", guarded(h.Customers.Deposit)...).
		POST("/:id/withdraw", guarded(h.Customers.Withdraw)...)

	queues := NewDomainGroup("queues", "/queues").
		GET("", h.Queues.List).
		GET("/export.csv", h.Queues.Export).
		POST("", guarded(h.Queues.Create)...).
		POST("/batch-delete", h.Queues.DeleteBatch).
		GET("/:id", h.Queues.Get).
		PUT("/:id", h.Queues.Update).
		DELETE("/:id", h.Queues.Delete).
		GET("/:id/product-orders", h.Queues.ProductOrders)

	dashboard := NewDomainGroup("dashboard", "/dashboard").
		GET("", h.Dashboard.Get)

	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	groups := []RouteRegistrar{products, customers, queues, dashboard, system}
	if h.Settings != nil {
		groups = append(groups, NewDomainGroup("settings", "/settings").
			GET("", h.Settings.Get).
			PUT("/language", h.Settings.SetLanguage).
			GET("/backups", h.Settings.ListBackups).
			POST("/backups", h.Settings.RunBackup))
	}
	return groups
}
