package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/marketplace"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/payment"
	"github.com/iliyamo/templatehub/internal/repository"
)

type stubListings map[uint64]*model.Listing

func (s stubListings) GetByID(_ context.Context, id uint64) (*model.Listing, error) {
	if l, ok := s[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, repository.ErrListingNotFound
}

type stubPurchases struct {
	owned map[uint64]bool
}

func (s *stubPurchases) HasPurchased(_ context.Context, buyerID, _ uint64) (bool, error) {
	return s.owned[buyerID], nil
}

func (s *stubPurchases) CreateWithLicense(_ context.Context, p *model.Purchase, licenseType string) (*model.License, error) {
	p.ID = 55
	return &model.License{ID: 1, PurchaseID: p.ID, BuyerID: p.BuyerID, TemplateID: p.TemplateID, LicenseKey: p.LicenseKey, LicenseType: licenseType}, nil
}

type stubPayments struct{ created int }

func (s *stubPayments) CreateIntent(_ context.Context, _ payment.IntentRequest) (*payment.Intent, error) {
	s.created++
	return &payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil
}

func (s *stubPayments) CancelIntent(context.Context, string) error { return nil }

func newMarketplaceTest(t *testing.T) (*MarketplaceHandler, sqlmock.Sqlmock, *stubPayments) {
	t.Helper()
	db, mock := newMock(t)
	listings := stubListings{
		1: {ID: 1, TemplateID: 10, SellerID: 2, PriceCents: 1999, LicenseType: model.LicensePersonal, IsActive: true},
		2: {ID: 2, TemplateID: 11, SellerID: 2, PriceCents: 500, LicenseType: model.LicensePersonal, IsActive: false},
	}
	payments := &stubPayments{}
	log, _ := test.NewNullLogger()
	svc := marketplace.NewService(listings, &stubPurchases{owned: map[uint64]bool{8: true}}, payments, marketplace.DefaultFeeBPS, log)
	h := NewMarketplaceHandler(repository.NewTemplateRepo(db), repository.NewListingRepo(db), repository.NewPurchaseRepo(db), svc)
	return h, mock, payments
}

func TestPurchaseErrorMapping(t *testing.T) {
	h, _, payments := newMarketplaceTest(t)
	e := newTestEcho()
	e.POST("/anon/listings/:id/purchase", h.Purchase)
	e.POST("/buyer/listings/:id/purchase", h.Purchase, as(7, model.RoleUser))
	e.POST("/owner/listings/:id/purchase", h.Purchase, as(8, model.RoleUser))

	cases := []struct {
		name   string
		path   string
		status int
		msg    string
	}{
		{"unauthenticated", "/anon/listings/1/purchase", http.StatusUnauthorized, "User not authenticated"},
		{"missing listing", "/buyer/listings/99/purchase", http.StatusNotFound, "Listing not found"},
		{"already owned", "/owner/listings/1/purchase", http.StatusConflict, "You already own this template"},
		{"inactive listing", "/buyer/listings/2/purchase", http.StatusConflict, "Listing is not active"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, tc.path, "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decode(t, rec)["error"])
		})
	}
	assert.Zero(t, payments.created, "no intent may be created for a rejected purchase")
}

func TestPurchaseReturnsClientSecret(t *testing.T) {
	h, _, payments := newMarketplaceTest(t)
	e := newTestEcho()
	e.POST("/listings/:id/purchase", h.Purchase, as(7, model.RoleUser))

	rec := doJSON(e, http.MethodPost, "/listings/1/purchase", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "pi_1_secret", body["client_secret"])
	assert.EqualValues(t, 55, body["purchase_id"])
	license := body["license"].(map[string]any)
	assert.Len(t, license["license_key"], 32)
	assert.Equal(t, 1, payments.created)
}

func TestPurchaseRejectsBadID(t *testing.T) {
	h, _, _ := newMarketplaceTest(t)
	e := newTestEcho()
	e.POST("/listings/:id/purchase", h.Purchase, as(7, model.RoleUser))

	rec := doJSON(e, http.MethodPost, "/listings/abc/purchase", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleListing(t *testing.T) {
	h, mock, _ := newMarketplaceTest(t)
	e := newTestEcho()
	e.POST("/listings/:id/toggle", h.ToggleListing, as(9, model.RoleUser))

	mock.ExpectExec(`UPDATE marketplace_listings SET is_active = NOT is_active`).
		WithArgs(uint64(4), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT is_active FROM marketplace_listings WHERE id = \?`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))

	rec := doJSON(e, http.MethodPost, "/listings/4/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode(t, rec)["is_active"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleListingOtherSeller(t *testing.T) {
	h, mock, _ := newMarketplaceTest(t)
	e := newTestEcho()
	e.POST("/listings/:id/toggle", h.ToggleListing, as(9, model.RoleUser))

	now := time.Now()
	mock.ExpectExec(`UPDATE marketplace_listings SET is_active = NOT is_active`).
		WithArgs(uint64(4), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM marketplace_listings l JOIN templates t`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "template_id", "seller_id", "price_cents", "license_type", "is_active",
			"total_sales", "total_revenue_cents", "title", "created_at", "updated_at",
		}).AddRow(4, 10, 2, 1999, "personal", true, 0, 0, "Landing page", now, now))

	rec := doJSON(e, http.MethodPost, "/listings/4/toggle", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateListingValidation(t *testing.T) {
	h, _, _ := newMarketplaceTest(t)
	e := newTestEcho()
	e.POST("/listings", h.CreateListing, as(2, model.RoleUser))

	rec := doJSON(e, http.MethodPost, "/listings", `{"template_id":10,"price_cents":100,"license_type":"forever"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "license_type must be one of: personal commercial extended", decode(t, rec)["error"])
}
