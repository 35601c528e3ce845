package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/model"
)

func samplePurchase() *model.Purchase {
	return &model.Purchase{
		ListingID:         3,
		TemplateID:        11,
		BuyerID:           7,
		SellerID:          9,
		PriceCents:        1999,
		PlatformFeeCents:  599,
		SellerPayoutCents: 1400,
		PaymentIntentID:   "pi_123",
		LicenseKey:        "00112233445566778899aabbccddeeff",
	}
}

func TestCreateWithLicenseSingleTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := samplePurchase()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO template_purchases`).
		WithArgs(p.ListingID, p.TemplateID, p.BuyerID, p.SellerID, p.PriceCents, p.PlatformFeeCents,
			p.SellerPayoutCents, p.PaymentIntentID, p.LicenseKey, model.PurchaseStatusIntentCreated).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(`INSERT INTO template_licenses`).
		WithArgs(uint64(21), p.BuyerID, p.TemplateID, p.LicenseKey, model.LicenseCommercial).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(`SET total_sales = total_sales \+ 1, total_revenue_cents = total_revenue_cents \+ \?`).
		WithArgs(p.PriceCents, p.ListingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	lic, err := NewPurchaseRepo(db).CreateWithLicense(context.Background(), p, model.LicenseCommercial)
	require.NoError(t, err)
	assert.Equal(t, uint64(21), p.ID)
	assert.Equal(t, uint64(5), lic.ID)
	assert.Equal(t, p.LicenseKey, lic.LicenseKey)
	assert.Equal(t, uint64(21), lic.PurchaseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithLicenseDuplicateIsAlreadyOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO template_purchases`).
		WillReturnError(&mysql.MySQLError{
			Number:  1062,
			Message: "Duplicate entry '7-3' for key 'template_purchases.uq_purchase_buyer_listing'",
		})
	mock.ExpectRollback()

	_, err = NewPurchaseRepo(db).CreateWithLicense(context.Background(), samplePurchase(), model.LicensePersonal)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithLicenseRollsBackWhenIncrementFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO template_purchases`).WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(`INSERT INTO template_licenses`).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(`UPDATE marketplace_listings`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = NewPurchaseRepo(db).CreateWithLicense(context.Background(), samplePurchase(), model.LicensePersonal)
	assert.ErrorIs(t, err, ErrListingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPurchased(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM template_purchases WHERE buyer_id = \? AND listing_id = \?\)`).
		WithArgs(uint64(7), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	owned, err := NewPurchaseRepo(db).HasPurchased(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.True(t, owned)
}
