package main

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"canteen/internal/config"
	"canteen/internal/events"
	"canteen/internal/handlers"
	"canteen/internal/logger"
	"canteen/internal/middleware"
	"canteen/internal/models"
	"canteen/internal/service"
	"canteen/internal/store"
)

type routerDeps struct {
	store     *store.Store
	redis     *redis.Client
	publisher events.Publisher
	env       config.Config
}

func newRouter(d routerDeps) *gin.Engine {
	env := d.env
	st := d.store

	settings := service.NewSettings(st.Settings)
	orders := service.NewOrders(st, settings, d.publisher)
	roles := service.NewRoles(st.Roles)
	reports := service.NewReports(st, settings)

	var cacheClient *redis.Client
	if env.Cache.Enabled {
		cacheClient = d.redis
	}
	invalidate := handlers.Invalidator(func(ctx context.Context, groups ...string) {
		for _, g := range groups {
			if err := middleware.InvalidateCache(ctx, cacheClient, g); err != nil {
				logger.For("cache").WithError(err).Warnf("invalidate %s failed", g)
			}
		}
	})
	images := handlers.ImageStore{Root: env.UploadDir}
	authCfg := handlers.AuthConfig{Secret: env.JWTSecret, AccessTTL: env.AccessTokenTTL, RefreshTTL: env.RefreshTokenTTL}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())
	r.Static("/uploads", filepath.Join(env.UploadDir, "uploads"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := middleware.AuthGuard(env.JWTSecret)
	admins := middleware.AuthGuard(env.JWTSecret, models.UserTypeSuperAdmin, models.UserTypeTheaterAdmin)
	superAdmin := middleware.AuthGuard(env.JWTSecret, models.UserTypeSuperAdmin)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", middleware.RateLimit(env.RateLimit, d.redis, "login"), handlers.Login(st, authCfg))
		auth.POST("/refresh", handlers.Refresh(st, authCfg))
		auth.POST("/logout", handlers.Logout(st))
		auth.GET("/me", authed, handlers.Me(st))
		auth.POST("/users", admins, handlers.CreateStaffUser(st, roles))
	}

	ord := api.Group("/orders")
	{
		ord.POST("/theater",
			middleware.RateLimit(env.RateLimit, d.redis, "orders"),
			middleware.OptionalAuth(env.JWTSecret),
			handlers.PlaceOrder(st, orders, invalidate),
		)
		ord.GET("/my-orders", authed, handlers.MyOrders(orders))
		ord.GET("/theater/:theaterId", authed, handlers.TheaterOrders(orders))
		ord.PUT("/:orderId/status", authed, handlers.UpdateOrderStatus(orders, invalidate))
	}

	menu := api.Group("/menu/:theaterId", middleware.ResponseCache(cacheClient, "menu", env.Cache.TTL))
	{
		menu.GET("/categories", handlers.MenuCategories(st))
		menu.GET("/products", handlers.MenuProducts(st))
		menu.GET("/offers", handlers.MenuOffers(st))
	}

	qr := api.Group("/qrcodenames")
	{
		qr.GET("", middleware.OptionalAuth(env.JWTSecret), handlers.ListQRNames(st))
		qr.POST("", authed, handlers.CreateQRName(st))
		qr.PUT("/:id", authed, handlers.UpdateQRName(st))
		qr.DELETE("/:id", authed, handlers.DeleteQRName(st))
		qr.PUT("/:id/restore", authed, handlers.RestoreQRName(st))
	}
	api.GET("/qrcodes/:theaterId/:qrNameId", handlers.QRCodeImage(st, settings, env.FrontendURL))

	categories := api.Group("/theater-categories/:theaterId", authed)
	{
		categories.GET("", handlers.ListCategories(st))
		categories.POST("", handlers.CreateCategory(st, invalidate))
		categories.PUT("/:id", handlers.UpdateCategory(st, invalidate))
		categories.DELETE("/:id", handlers.DeleteCategory(st, invalidate))
		categories.PUT("/:id/restore", handlers.RestoreCategory(st, invalidate))
	}

	productTypes := api.Group("/theater-product-types/:theaterId", authed)
	{
		productTypes.GET("", handlers.ListProductTypes(st))
		productTypes.POST("", handlers.CreateProductType(st))
		productTypes.PUT("/:id", handlers.UpdateProductType(st))
		productTypes.DELETE("/:id", handlers.DeleteProductType(st))
		productTypes.PUT("/:id/restore", handlers.RestoreProductType(st))
	}

	products := api.Group("/theater-products/:theaterId", authed)
	{
		products.GET("", handlers.ListProducts(st))
		products.POST("", handlers.CreateProduct(st, images, invalidate))
		products.PUT("/:productId", handlers.UpdateProduct(st, images, invalidate))
		products.DELETE("/:productId", handlers.DeleteProduct(st, invalidate))
		products.PUT("/:productId/restore", handlers.RestoreProduct(st, invalidate))
		products.PUT("/:productId/stock", handlers.SetProductStock(st, invalidate))
	}

	stock := api.Group("/theater-stock/:theaterId", authed)
	{
		stock.GET("", handlers.ListStockEntries(st))
		stock.POST("", handlers.CreateStockEntry(st))
		stock.PUT("/:entryId", handlers.UpdateStockEntry(st))
		stock.DELETE("/:entryId", handlers.DeleteStockEntry(st))
	}

	api.GET("/pages", authed, handlers.Pages())
	rolesGroup := api.Group("/roles/:theaterId", authed)
	{
		rolesGroup.GET("", handlers.ListRoles(roles))
		rolesGroup.POST("", admins, handlers.CreateRole(roles))
		rolesGroup.POST("/default", admins, handlers.EnsureDefaultRole(roles))
		rolesGroup.PUT("/:roleId", admins, handlers.UpdateRole(roles))
		rolesGroup.DELETE("/:roleId", admins, handlers.DeleteRole(roles))
		rolesGroup.PUT("/:roleId/restore", admins, handlers.RestoreRole(st))
	}

	rep := api.Group("/reports", authed, middleware.ResponseCache(cacheClient, "reports", env.Cache.TTL))
	{
		rep.GET("/full-report/:theaterId", handlers.FullReport(reports))
		rep.GET("/my-sales/:theaterId", handlers.MySalesReport(reports))
	}

	set := api.Group("/settings")
	{
		set.GET("/general", middleware.ResponseCache(cacheClient, "settings", env.Cache.TTL), handlers.GetGeneralSettings(settings))
		set.POST("/general", superAdmin, handlers.UpdateGeneralSettings(settings, invalidate))
		set.GET("/image/logo", handlers.LogoProxy(settings, nil))
	}

	return r
}
