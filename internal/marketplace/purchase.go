// Package marketplace implements the purchase flow: fee split, license
// issuance, duplicate-purchase guard and the compensating cancellation of
// payment intents whose purchase could not be recorded.
package marketplace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/metrics"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/payment"
	"github.com/iliyamo/templatehub/internal/repository"
)

// DefaultFeeBPS is the platform share of a sale in basis points (30%).
const DefaultFeeBPS = 3000

var (
	ErrUnauthenticated = errors.New("User not authenticated")
	ErrListingInactive = errors.New("Listing is not active")
)

// FeeSplit divides a price into the platform fee, rounded down, and the
// seller payout.  fee + payout always equals priceCents.
func FeeSplit(priceCents uint32, feeBPS int) (fee, payout uint32) {
	if feeBPS < 0 {
		feeBPS = 0
	}
	if feeBPS > 10000 {
		feeBPS = 10000
	}
	fee = uint32(uint64(priceCents) * uint64(feeBPS) / 10000)
	return fee, priceCents - fee
}

// GenerateLicenseKey returns 16 random bytes from crypto/rand as 32
// lowercase hex characters.
func GenerateLicenseKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type ListingStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Listing, error)
}

type PurchaseStore interface {
	HasPurchased(ctx context.Context, buyerID, listingID uint64) (bool, error)
	CreateWithLicense(ctx context.Context, p *model.Purchase, licenseType string) (*model.License, error)
}

// Result is what the buyer needs to confirm payment client side.
type Result struct {
	ClientSecret string         `json:"client_secret"`
	PurchaseID   uint64         `json:"purchase_id"`
	License      *model.License `json:"license"`
}

// Service runs purchases.  OnPurchase, when set, is called after a
// purchase has been committed; its failures cannot undo the purchase.
type Service struct {
	listings  ListingStore
	purchases PurchaseStore
	payments  payment.Processor
	feeBPS    int
	log       logrus.FieldLogger

	OnPurchase func(ctx context.Context, l *model.Listing, p *model.Purchase)
}

func NewService(listings ListingStore, purchases PurchaseStore, payments payment.Processor, feeBPS int, log logrus.FieldLogger) *Service {
	if listings == nil || purchases == nil || payments == nil {
		panic("nil dependency passed to marketplace.NewService")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{listings: listings, purchases: purchases, payments: payments, feeBPS: feeBPS, log: log}
}

// Purchase buys listingID for buyerID.  The ownership check runs before a
// payment intent is created.  Once an intent exists, any failure to record
// the purchase cancels it again.
func (s *Service) Purchase(ctx context.Context, buyerID, listingID uint64) (*Result, error) {
	res, outcome, err := s.purchase(ctx, buyerID, listingID)
	metrics.RecordPurchase(outcome)
	return res, err
}

func (s *Service) purchase(ctx context.Context, buyerID, listingID uint64) (*Result, string, error) {
	if buyerID == 0 {
		return nil, "unauthenticated", ErrUnauthenticated
	}
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, "not_found", err
		}
		return nil, "error", fmt.Errorf("load listing: %w", err)
	}
	if !listing.IsActive {
		return nil, "inactive", ErrListingInactive
	}
	owned, err := s.purchases.HasPurchased(ctx, buyerID, listingID)
	if err != nil {
		return nil, "error", fmt.Errorf("ownership check: %w", err)
	}
	if owned {
		return nil, "already_owned", repository.ErrAlreadyOwned
	}

	fee, payout := FeeSplit(listing.PriceCents, s.feeBPS)
	key, err := GenerateLicenseKey()
	if err != nil {
		return nil, "error", fmt.Errorf("license key: %w", err)
	}

	intent, err := s.payments.CreateIntent(ctx, payment.IntentRequest{
		AmountCents: int64(listing.PriceCents),
		Currency:    "usd",
		Metadata: payment.Metadata(map[string]uint64{
			"listing_id":  listing.ID,
			"buyer_id":    buyerID,
			"seller_id":   listing.SellerID,
			"template_id": listing.TemplateID,
		}),
	})
	if err != nil {
		return nil, "payment_error", fmt.Errorf("create payment intent: %w", err)
	}

	p := &model.Purchase{
		ListingID:         listing.ID,
		TemplateID:        listing.TemplateID,
		BuyerID:           buyerID,
		SellerID:          listing.SellerID,
		PriceCents:        listing.PriceCents,
		PlatformFeeCents:  fee,
		SellerPayoutCents: payout,
		PaymentIntentID:   intent.ID,
		LicenseKey:        key,
		Status:            model.PurchaseStatusIntentCreated,
	}
	license, err := s.purchases.CreateWithLicense(ctx, p, listing.LicenseType)
	if err != nil {
		// The request context may already be cancelled; the intent must
		// still be released.
		if cerr := s.payments.CancelIntent(context.WithoutCancel(ctx), intent.ID); cerr != nil {
			s.log.WithError(cerr).WithField("payment_intent", intent.ID).Error("cancel orphaned payment intent")
		}
		if errors.Is(err, repository.ErrAlreadyOwned) {
			return nil, "already_owned", err
		}
		return nil, "error", fmt.Errorf("record purchase: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"purchase_id": p.ID,
		"listing_id":  listing.ID,
		"buyer_id":    buyerID,
		"price_cents": listing.PriceCents,
	}).Info("purchase recorded")
	if s.OnPurchase != nil {
		s.OnPurchase(ctx, listing, p)
	}
	return &Result{ClientSecret: intent.ClientSecret, PurchaseID: p.ID, License: license}, "ok", nil
}
