package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/handler"
)

// RegisterMarketplace registers listing and purchase endpoints.  Browsing
// active listings is public; selling and buying require a session, and
// purchases go through the strict rate limit.
func RegisterMarketplace(e *echo.Echo, m *handler.MarketplaceHandler, l limits) {
	pub := e.Group("/v1/marketplace")
	pub.GET("/listings", m.ListListings, l.cache)
	pub.GET("/listings/:id", m.GetListing)

	g := e.Group("/v1/marketplace", l.auth)
	g.POST("/listings", m.CreateListing)
	g.POST("/listings/:id/toggle", m.ToggleListing)
	g.POST("/listings/:id/purchase", m.Purchase, l.strict)

	my := e.Group("/v1/my", l.auth)
	my.GET("/listings", m.MyListings)
	my.GET("/purchases", m.MyPurchases)
	my.GET("/licenses", m.MyLicenses)
}
