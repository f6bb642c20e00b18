package router

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/interfaces/http/handler"
)

// Handlers are the storefront API handlers
type Handlers struct {
	System   *handler.SystemHandler
	Cart     *handler.CartHandler
	Stream   *handler.CartStreamHandler
	Checkout *handler.CheckoutHandler
	Address  *handler.AddressHandler
	Order    *handler.OrderHandler
	Wishlist *handler.WishlistHandler
	Session  *handler.SessionHandler
	// Debug is nil unless diagnostics are enabled
	Debug *handler.DebugHandler
}

// Middleware is applied per domain group
type Middleware struct {
	// Shopper runs on every group that needs a session
	Shopper []gin.HandlerFunc
	// Request runs on every group except the cart stream
	Request []gin.HandlerFunc
}

// Storefront returns the storefront domain groups
func Storefront(h Handlers, mw Middleware) []*DomainGroup {
	shopper := func(name, prefix string) *DomainGroup {
		return NewDomainGroup(name, prefix).Use(mw.Shopper...)
	}

	system := NewDomainGroup("system", "/system").Use(mw.Request...)
	system.GET("/info", h.System.GetSystemInfo)

	cartGroup := shopper("cart", "/cart")
	cartGroup.GET("/stream", h.Stream.Stream)
	requests := cartGroup.Group("cart requests", "").Use(mw.Request...)
	requests.GET("", h.Cart.Get).
		DELETE("", h.Cart.Clear).
		GET("/count", h.Cart.Count).
		POST("/items", h.Cart.AddItem).
		PUT("/items/:productId", h.Cart.SetQuantity).
		DELETE("/items/:productId", h.Cart.RemoveItem)

	checkoutGroup := shopper("checkout", "/checkout").Use(mw.Request...)
	checkoutGroup.GET("", h.Checkout.Get).
		POST("/begin", h.Checkout.Begin).
		PUT("/address", h.Checkout.SelectAddress).
		PUT("/payment", h.Checkout.SelectPayment).
		POST("/submit", h.Checkout.Submit).
		POST("/retry", h.Checkout.Retry).
		POST("/recover", h.Checkout.Recover)

	addresses := shopper("addresses", "/addresses").Use(mw.Request...)
	addresses.GET("", h.Address.List).
		POST("", h.Address.Create).
		PUT("/:id", h.Address.Update).
		DELETE("/:id", h.Address.Delete).
		PUT("/:id/default", h.Address.SetDefault)

	orders := shopper("orders", "/orders").Use(mw.Request...)
	orders.GET("", h.Order.List).
		GET("/:id", h.Order.Get)

	wishlist := shopper("wishlist", "/wishlist").Use(mw.Request...)
	wishlist.GET("", h.Wishlist.List).
		POST("", h.Wishlist.Add).
		DELETE("/:productId", h.Wishlist.Remove)

	sessionGroup := shopper("session", "/session").Use(mw.Request...)
	sessionGroup.DELETE("", h.Session.Logout)

	groups := []*DomainGroup{system, cartGroup, checkoutGroup, addresses, orders, wishlist, sessionGroup}

	if h.Debug != nil {
		debug := shopper("debug", "/debug").Use(mw.Request...)
		debug.GET("/cart", h.Debug.Cart).
			GET("/orders", h.Debug.Orders)
		groups = append(groups, debug)
	}

	return groups
}
