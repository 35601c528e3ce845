package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/templatehub/internal/model"
)

// PurchaseRepo persists purchases together with their license and the
// listing's sales statistics.
type PurchaseRepo struct {
	db *sql.DB
}

func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// HasPurchased reports whether buyerID already owns listingID.
func (r *PurchaseRepo) HasPurchased(ctx context.Context, buyerID, listingID uint64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM template_purchases WHERE buyer_id = ? AND listing_id = ?)",
		buyerID, listingID).Scan(&exists)
	return exists, err
}

// CreateWithLicense records a purchase, issues its license and increments
// the listing's totals in one transaction.  A concurrent purchase of the
// same listing by the same buyer surfaces as ErrAlreadyOwned.
func (r *PurchaseRepo) CreateWithLicense(ctx context.Context, p *model.Purchase, licenseType string) (*model.License, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if p.Status == "" {
		p.Status = model.PurchaseStatusIntentCreated
	}
	const insPurchase = `INSERT INTO template_purchases
	      (listing_id, template_id, buyer_id, seller_id, price_cents, platform_fee_cents,
	       seller_payout_cents, payment_intent_id, license_key, status)
	      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insPurchase,
		p.ListingID, p.TemplateID, p.BuyerID, p.SellerID, p.PriceCents, p.PlatformFeeCents,
		p.SellerPayoutCents, p.PaymentIntentID, p.LicenseKey, p.Status)
	if err != nil {
		if isDuplicate(err, "uq_purchase_buyer_listing") {
			return nil, ErrAlreadyOwned
		}
		return nil, err
	}
	pid, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = uint64(pid)

	lic := &model.License{
		PurchaseID:  p.ID,
		BuyerID:     p.BuyerID,
		TemplateID:  p.TemplateID,
		LicenseKey:  p.LicenseKey,
		LicenseType: licenseType,
	}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO template_licenses (purchase_id, buyer_id, template_id, license_key, license_type)
		 VALUES (?, ?, ?, ?, ?)`,
		lic.PurchaseID, lic.BuyerID, lic.TemplateID, lic.LicenseKey, lic.LicenseType)
	if err != nil {
		return nil, err
	}
	lid, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	lic.ID = uint64(lid)

	if err := incrementListingSalesTx(ctx, tx, p.ListingID, p.PriceCents); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return lic, nil
}

// ListByBuyer returns the buyer's purchases, newest first.
func (r *PurchaseRepo) ListByBuyer(ctx context.Context, buyerID uint64) ([]*model.Purchase, error) {
	const q = `SELECT id, listing_id, template_id, buyer_id, seller_id, price_cents, platform_fee_cents,
	                  seller_payout_cents, payment_intent_id, license_key, status, created_at
	           FROM template_purchases WHERE buyer_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Purchase, 0)
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.ListingID, &p.TemplateID, &p.BuyerID, &p.SellerID, &p.PriceCents,
			&p.PlatformFeeCents, &p.SellerPayoutCents, &p.PaymentIntentID, &p.LicenseKey, &p.Status,
			&p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ListLicensesByBuyer returns the licenses the buyer holds, newest first.
func (r *PurchaseRepo) ListLicensesByBuyer(ctx context.Context, buyerID uint64) ([]*model.License, error) {
	const q = `SELECT id, purchase_id, buyer_id, template_id, license_key, license_type, created_at
	           FROM template_licenses WHERE buyer_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.License, 0)
	for rows.Next() {
		var l model.License
		if err := rows.Scan(&l.ID, &l.PurchaseID, &l.BuyerID, &l.TemplateID, &l.LicenseKey,
			&l.LicenseType, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
