package marketplace

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/payment"
	"github.com/iliyamo/templatehub/internal/repository"
)

type fakeListings map[uint64]*model.Listing

func (f fakeListings) GetByID(_ context.Context, id uint64) (*model.Listing, error) {
	if l, ok := f[id]; ok {
		return l, nil
	}
	return nil, repository.ErrListingNotFound
}

type fakePurchases struct {
	owned     map[[2]uint64]bool
	createErr error
	created   []*model.Purchase
}

func (f *fakePurchases) HasPurchased(_ context.Context, buyerID, listingID uint64) (bool, error) {
	return f.owned[[2]uint64{buyerID, listingID}], nil
}

func (f *fakePurchases) CreateWithLicense(_ context.Context, p *model.Purchase, licenseType string) (*model.License, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	p.ID = uint64(len(f.created) + 1)
	f.created = append(f.created, p)
	return &model.License{ID: p.ID, PurchaseID: p.ID, BuyerID: p.BuyerID, TemplateID: p.TemplateID,
		LicenseKey: p.LicenseKey, LicenseType: licenseType}, nil
}

type fakeProcessor struct {
	created   []payment.IntentRequest
	cancelled []string
	err       error
}

func (f *fakeProcessor) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil
}

func (f *fakeProcessor) CancelIntent(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func newFixture() (*Service, *fakePurchases, *fakeProcessor) {
	listings := fakeListings{
		3: {ID: 3, TemplateID: 11, SellerID: 9, PriceCents: 1999, LicenseType: model.LicenseCommercial, IsActive: true},
		4: {ID: 4, TemplateID: 12, SellerID: 9, PriceCents: 500, LicenseType: model.LicensePersonal, IsActive: false},
	}
	purchases := &fakePurchases{owned: map[[2]uint64]bool{}}
	proc := &fakeProcessor{}
	log, _ := test.NewNullLogger()
	return NewService(listings, purchases, proc, DefaultFeeBPS, log), purchases, proc
}

func TestFeeSplit(t *testing.T) {
	cases := []struct {
		price, fee, payout uint32
	}{
		{1999, 599, 1400},
		{0, 0, 0},
		{1, 0, 1},
		{10000, 3000, 7000},
		{4294967295, 1288490188, 3006477107},
	}
	for _, tc := range cases {
		fee, payout := FeeSplit(tc.price, DefaultFeeBPS)
		assert.Equal(t, tc.fee, fee, "fee for %d", tc.price)
		assert.Equal(t, tc.payout, payout, "payout for %d", tc.price)
		assert.Equal(t, tc.price, fee+payout)
	}
}

func TestFeeSplitSumsToPrice(t *testing.T) {
	for price := uint32(0); price < 5000; price += 7 {
		for _, bps := range []int{0, 1, 2500, 3000, 9999, 10000} {
			fee, payout := FeeSplit(price, bps)
			require.Equal(t, price, fee+payout)
		}
	}
}

func TestGenerateLicenseKey(t *testing.T) {
	a, err := GenerateLicenseKey()
	require.NoError(t, err)
	b, err := GenerateLicenseKey()
	require.NoError(t, err)

	hexKey := regexp.MustCompile(`^[0-9a-f]{32}$`)
	assert.Regexp(t, hexKey, a)
	assert.Regexp(t, hexKey, b)
	assert.NotEqual(t, a, b)
}

func TestPurchaseSuccess(t *testing.T) {
	svc, purchases, proc := newFixture()
	var notified *model.Purchase
	svc.OnPurchase = func(_ context.Context, _ *model.Listing, p *model.Purchase) { notified = p }

	res, err := svc.Purchase(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", res.ClientSecret)
	assert.Equal(t, uint64(1), res.PurchaseID)

	require.Len(t, proc.created, 1)
	assert.Equal(t, int64(1999), proc.created[0].AmountCents)
	assert.Equal(t, "usd", proc.created[0].Currency)
	assert.Equal(t, map[string]string{"listing_id": "3", "buyer_id": "7", "seller_id": "9", "template_id": "11"},
		proc.created[0].Metadata)

	require.Len(t, purchases.created, 1)
	p := purchases.created[0]
	assert.Equal(t, uint32(599), p.PlatformFeeCents)
	assert.Equal(t, uint32(1400), p.SellerPayoutCents)
	assert.Equal(t, "pi_1", p.PaymentIntentID)
	assert.Equal(t, model.PurchaseStatusIntentCreated, p.Status)
	assert.Equal(t, p.LicenseKey, res.License.LicenseKey)
	assert.Equal(t, model.LicenseCommercial, res.License.LicenseType)
	assert.Same(t, p, notified)
	assert.Empty(t, proc.cancelled)
}

func TestPurchaseAlreadyOwnedCreatesNoIntent(t *testing.T) {
	svc, purchases, proc := newFixture()
	purchases.owned[[2]uint64{7, 3}] = true

	_, err := svc.Purchase(context.Background(), 7, 3)
	assert.ErrorIs(t, err, repository.ErrAlreadyOwned)
	assert.Equal(t, "you already own this template", err.Error())
	assert.Empty(t, proc.created)
	assert.Empty(t, purchases.created)
}

func TestPurchaseGuards(t *testing.T) {
	svc, _, proc := newFixture()

	_, err := svc.Purchase(context.Background(), 0, 3)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Purchase(context.Background(), 7, 99)
	assert.ErrorIs(t, err, repository.ErrListingNotFound)

	_, err = svc.Purchase(context.Background(), 7, 4)
	assert.ErrorIs(t, err, ErrListingInactive)

	assert.Empty(t, proc.created)
}

func TestPurchaseCancelsIntentWhenRecordingFails(t *testing.T) {
	svc, purchases, proc := newFixture()
	purchases.createErr = errors.New("deadlock")

	_, err := svc.Purchase(context.Background(), 7, 3)
	require.Error(t, err)
	assert.Equal(t, []string{"pi_1"}, proc.cancelled)
}

func TestPurchaseRaceSurfacesAlreadyOwned(t *testing.T) {
	svc, purchases, proc := newFixture()
	purchases.createErr = repository.ErrAlreadyOwned

	_, err := svc.Purchase(context.Background(), 7, 3)
	assert.ErrorIs(t, err, repository.ErrAlreadyOwned)
	assert.Equal(t, []string{"pi_1"}, proc.cancelled)
}

func TestPurchasePaymentFailure(t *testing.T) {
	svc, purchases, proc := newFixture()
	proc.err = payment.ErrDisabled

	_, err := svc.Purchase(context.Background(), 7, 3)
	assert.ErrorIs(t, err, payment.ErrDisabled)
	assert.Empty(t, purchases.created)
}

func TestNewServicePanicsOnNilDeps(t *testing.T) {
	assert.Panics(t, func() { NewService(nil, &fakePurchases{}, &fakeProcessor{}, DefaultFeeBPS, logrus.New()) })
}
