package httpserver

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/freshness"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/service/catalog"
	"koko-storefront/internal/service/dashboard"
)

// CatalogService is the catalog surface the handlers need.
type CatalogService interface {
	Policy() freshness.Policy
	GetItem(ctx context.Context, id string) (domain.CatalogItem, error)
	ListItems(ctx context.Context, filter catalog.ListFilter) ([]domain.CatalogItem, error)
	Categories(ctx context.Context) ([]string, error)
	CreateItem(ctx context.Context, in identity.Input) (domain.CatalogItem, error)
	UpdateItem(ctx context.Context, id string, in identity.Input) (domain.CatalogItem, error)
	DeleteItem(ctx context.Context, id string) error
}

type DashboardService interface {
	Stats(ctx context.Context) (domain.DashboardStats, error)
	Orders(ctx context.Context, filter dashboard.OrderFilter) ([]domain.Order, error)
	Customers(ctx context.Context) ([]domain.Customer, error)
}

// Deps groups the services behind the routes.
type Deps struct {
	Catalog          CatalogService
	Dashboard        DashboardService
	CORSAllowOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if deps.Catalog == nil {
		return nil, errors.New("httpserver: catalog service required")
	}
	if deps.Dashboard == nil {
		return nil, errors.New("httpserver: dashboard service required")
	}

	corsCfg := corsConfig(deps.CORSAllowOrigins)
	if err := corsCfg.Validate(); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{catalog: deps.Catalog, dashboard: deps.Dashboard, logger: logger}

	api := router.Group("/api")
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.GET("/categories", h.listCategories)

	admin := router.Group("/admin")
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.PATCH("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.GET("/dashboard", h.getDashboard)
	admin.GET("/orders", h.listOrders)
	admin.GET("/customers", h.listCustomers)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Cache-Control"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

type handlers struct {
	catalog   CatalogService
	dashboard DashboardService
	logger    *log.Logger
}
