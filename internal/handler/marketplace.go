package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/marketplace"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/payment"
	"github.com/iliyamo/templatehub/internal/repository"
)

// MarketplaceHandler serves listings and purchases.  The purchase flow
// itself lives in marketplace.Service.
type MarketplaceHandler struct {
	Templates *repository.TemplateRepo
	Listings  *repository.ListingRepo
	Purchases *repository.PurchaseRepo
	Service   *marketplace.Service
}

func NewMarketplaceHandler(t *repository.TemplateRepo, l *repository.ListingRepo, p *repository.PurchaseRepo, s *marketplace.Service) *MarketplaceHandler {
	if t == nil || l == nil || p == nil || s == nil {
		panic("nil dependency passed to NewMarketplaceHandler")
	}
	return &MarketplaceHandler{Templates: t, Listings: l, Purchases: p, Service: s}
}

type listingReq struct {
	TemplateID  uint64 `json:"template_id" validate:"required"`
	PriceCents  uint32 `json:"price_cents" validate:"max=100000000"`
	LicenseType string `json:"license_type" validate:"required,oneof=personal commercial extended"`
}

// CreateListing handles POST /v1/marketplace/listings.  Only the submitter
// of an approved template may sell it.
func (h *MarketplaceHandler) CreateListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req listingReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	t, err := h.Templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return notFound(c, "Template not found or you don't have permission")
		}
		return serverError("could not load template", err)
	}
	if t.SubmitterID != uid {
		return notFound(c, "Template not found or you don't have permission")
	}
	if t.Status != model.TemplateStatusApproved {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only approved templates can be listed"})
	}
	l := &model.Listing{TemplateID: t.ID, SellerID: uid, PriceCents: req.PriceCents, LicenseType: req.LicenseType}
	if err := h.Listings.Create(ctx, l); err != nil {
		return serverError("could not create listing", err)
	}
	return c.JSON(http.StatusCreated, l)
}

// ListListings handles GET /v1/marketplace/listings: active listings of
// approved templates.
func (h *MarketplaceHandler) ListListings(c echo.Context) error {
	items, err := h.Listings.ListActive(c.Request().Context(), queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		return serverError("could not list listings", err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetListing handles GET /v1/marketplace/listings/:id.
func (h *MarketplaceHandler) GetListing(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	l, err := h.Listings.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return notFound(c, "Listing not found")
		}
		return serverError("could not load listing", err)
	}
	return c.JSON(http.StatusOK, l)
}

// MyListings handles GET /v1/my/listings.
func (h *MarketplaceHandler) MyListings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Listings.ListBySeller(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not list listings", err)
	}
	return c.JSON(http.StatusOK, items)
}

// ToggleListing handles POST /v1/marketplace/listings/:id/toggle.
func (h *MarketplaceHandler) ToggleListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	active, err := h.Listings.Toggle(c.Request().Context(), id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrListingNotFound):
			return notFound(c, "Listing not found")
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not own this listing"})
		}
		return serverError("could not toggle listing", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": active})
}

// Purchase handles POST /v1/marketplace/listings/:id/purchase.
func (h *MarketplaceHandler) Purchase(c echo.Context) error {
	uid, _ := getUserID(c) // zero is reported by the service as unauthenticated
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	res, err := h.Service.Purchase(c.Request().Context(), uid, id)
	if err != nil {
		switch {
		case errors.Is(err, marketplace.ErrUnauthenticated):
			return unauthorized(c)
		case errors.Is(err, repository.ErrListingNotFound):
			return notFound(c, "Listing not found")
		case errors.Is(err, repository.ErrAlreadyOwned):
			return c.JSON(http.StatusConflict, echo.Map{"error": "You already own this template"})
		case errors.Is(err, marketplace.ErrListingInactive):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Listing is not active"})
		case errors.Is(err, payment.ErrDisabled):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payments are not available"})
		}
		return serverError("purchase failed", err)
	}
	return c.JSON(http.StatusCreated, res)
}

// MyPurchases handles GET /v1/my/purchases.
func (h *MarketplaceHandler) MyPurchases(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Purchases.ListByBuyer(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not list purchases", err)
	}
	return c.JSON(http.StatusOK, items)
}

// MyLicenses handles GET /v1/my/licenses.
func (h *MarketplaceHandler) MyLicenses(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Purchases.ListLicensesByBuyer(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not list licenses", err)
	}
	return c.JSON(http.StatusOK, items)
}
