package model

import "time"

// License types a listing may grant.
const (
    LicensePersonal   = "personal"
    LicenseCommercial = "commercial"
    LicenseExtended   = "extended"
)

// PurchaseStatusIntentCreated marks a purchase whose payment intent exists
// but whose payment has not been confirmed.
const PurchaseStatusIntentCreated = "intent_created"

// Listing is a seller's offer of license rights to a template
// (`marketplace_listings`).  TotalSales and TotalRevenueCents are running
// totals maintained with atomic increments on each purchase.
type Listing struct {
    ID                uint64    `json:"id"`
    TemplateID        uint64    `json:"template_id"`
    SellerID          uint64    `json:"seller_id"`
    PriceCents        uint32    `json:"price_cents"`
    LicenseType       string    `json:"license_type"`
    IsActive          bool      `json:"is_active"`
    TotalSales        uint32    `json:"total_sales"`
    TotalRevenueCents uint64    `json:"total_revenue_cents"`
    TemplateTitle     string    `json:"template_title,omitempty"`
    CreatedAt         time.Time `json:"created_at"`
    UpdatedAt         time.Time `json:"updated_at"`
}

// Purchase records a buyer acquiring a listing (`template_purchases`).
type Purchase struct {
    ID                uint64    `json:"id"`
    ListingID         uint64    `json:"listing_id"`
    TemplateID        uint64    `json:"template_id"`
    BuyerID           uint64    `json:"buyer_id"`
    SellerID          uint64    `json:"seller_id"`
    PriceCents        uint32    `json:"price_cents"`
    PlatformFeeCents  uint32    `json:"platform_fee_cents"`
    SellerPayoutCents uint32    `json:"seller_payout_cents"`
    PaymentIntentID   string    `json:"payment_intent_id"`
    LicenseKey        string    `json:"license_key"`
    Status            string    `json:"status"`
    CreatedAt         time.Time `json:"created_at"`
}

// License is the buyer-facing proof of purchase (`template_licenses`),
// carrying the same key as its purchase.
type License struct {
    ID          uint64    `json:"id"`
    PurchaseID  uint64    `json:"purchase_id"`
    BuyerID     uint64    `json:"buyer_id"`
    TemplateID  uint64    `json:"template_id"`
    LicenseKey  string    `json:"license_key"`
    LicenseType string    `json:"license_type"`
    CreatedAt   time.Time `json:"created_at"`
}
