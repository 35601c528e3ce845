package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/templatehub/internal/model"
)

// ListingRepo manages marketplace listings.  Sales statistics are only
// ever changed through incrementListingSalesTx so that concurrent purchases
// cannot lose updates.
type ListingRepo struct {
	db *sql.DB
}

func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingColumns = `l.id, l.template_id, l.seller_id, l.price_cents, l.license_type, l.is_active,
	l.total_sales, l.total_revenue_cents, t.title, l.created_at, l.updated_at`

const listingFrom = ` FROM marketplace_listings l JOIN templates t ON t.id = l.template_id`

func scanListing(s scanner) (*model.Listing, error) {
	var l model.Listing
	if err := s.Scan(&l.ID, &l.TemplateID, &l.SellerID, &l.PriceCents, &l.LicenseType, &l.IsActive,
		&l.TotalSales, &l.TotalRevenueCents, &l.TemplateTitle, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts an active listing with zeroed statistics.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	const q = `INSERT INTO marketplace_listings (template_id, seller_id, price_cents, license_type) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, l.TemplateID, l.SellerID, l.PriceCents, l.LicenseType)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*l = *created
	return nil
}

// GetByID returns a listing with its template title.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (*model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, "SELECT "+listingColumns+listingFrom+" WHERE l.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// ListActive returns active listings of approved templates, newest first.
func (r *ListingRepo) ListActive(ctx context.Context, page, size int) ([]*model.Listing, error) {
	page, size = normalizePage(page, size)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+listingColumns+listingFrom+
			" WHERE l.is_active = 1 AND t.status = 'approved' ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?",
		size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

// ListBySeller returns every listing a seller created, active or not.
func (r *ListingRepo) ListBySeller(ctx context.Context, sellerID uint64) ([]*model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+listingColumns+listingFrom+" WHERE l.seller_id = ? ORDER BY l.created_at DESC, l.id DESC",
		sellerID)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

// Toggle flips is_active on the seller's listing in a single statement and
// returns the new value.  Two toggles with no other writer restore the
// original state.
func (r *ListingRepo) Toggle(ctx context.Context, id, sellerID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE marketplace_listings SET is_active = NOT is_active WHERE id = ? AND seller_id = ?",
		id, sellerID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		l, err := r.GetByID(ctx, id)
		if err != nil {
			return false, err
		}
		if l.SellerID != sellerID {
			return false, ErrForbidden
		}
	}
	var active bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT is_active FROM marketplace_listings WHERE id = ?", id).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

// incrementListingSalesTx bumps the running totals relative to the stored
// values rather than a previously read snapshot.
func incrementListingSalesTx(ctx context.Context, tx *sql.Tx, listingID uint64, priceCents uint32) error {
	const q = `UPDATE marketplace_listings
	           SET total_sales = total_sales + 1, total_revenue_cents = total_revenue_cents + ?
	           WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, priceCents, listingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrListingNotFound
	}
	return nil
}

func collectListings(rows *sql.Rows) ([]*model.Listing, error) {
	defer rows.Close()
	out := make([]*model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
