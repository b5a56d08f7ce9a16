package profiles

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/pkg/config"
	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/types"
)

type stubProfilesRepo struct {
	byOwner map[string]*models.PaymentProfile
	byID    map[uuid.UUID]*models.PaymentProfile
	created int
}

func newStubProfilesRepo() *stubProfilesRepo {
	return &stubProfilesRepo{
		byOwner: map[string]*models.PaymentProfile{},
		byID:    map[uuid.UUID]*models.PaymentProfile{},
	}
}

func (s *stubProfilesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubProfilesRepo) Create(ctx context.Context, profile *models.PaymentProfile) (*models.PaymentProfile, error) {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	s.created++
	s.byOwner[profile.OwnerID.String()+"/"+profile.PolicyGroupID] = profile
	s.byID[profile.ID] = profile
	return profile, nil
}

func (s *stubProfilesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentProfile, error) {
	if profile, ok := s.byID[id]; ok {
		return profile, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProfilesRepo) FindByOwnerAndPolicy(ctx context.Context, ownerID uuid.UUID, policyGroupID string) (*models.PaymentProfile, error) {
	if profile, ok := s.byOwner[ownerID.String()+"/"+policyGroupID]; ok {
		return profile, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProfilesRepo) UpdateRails(ctx context.Context, id uuid.UUID, profile *models.PaymentProfile) error {
	return nil
}

type stubOrderGetter struct {
	orders map[uuid.UUID]*models.UnifiedOrder
}

func (s *stubOrderGetter) FindOrder(ctx context.Context, id uuid.UUID) (*models.UnifiedOrder, error) {
	if order, ok := s.orders[id]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubRevealStore struct {
	values map[string]string
}

func newStubRevealStore() *stubRevealStore {
	return &stubRevealStore{values: map[string]string{}}
}

func (s *stubRevealStore) Get(ctx context.Context, key string) (string, error) {
	if val, ok := s.values[key]; ok {
		return val, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (s *stubRevealStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubRevealStore) RevealKey(orderID, buyerID string) string {
	return strings.Join([]string{"paygate", "reveal", orderID, buyerID}, ":")
}

func revealConfig() config.RevealConfig {
	return config.RevealConfig{
		TokenSecret: "test-secret",
		TokenIssuer: "paygate",
		TTL:         15 * time.Minute,
	}
}

func wechatRails() types.PaymentRails {
	qr := "wxp://pay-code"
	return types.PaymentRails{WechatQr: &qr}
}

func newTestService(t *testing.T, repo Repository, orders orderGetter, store revealStore) Service {
	t.Helper()
	svc, err := NewService(repo, orders, store, revealConfig(), nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	repo := newStubProfilesRepo()
	svc := newTestService(t, repo, &stubOrderGetter{}, newStubRevealStore())
	ctx := context.Background()

	input := EnsureProfileInput{
		OwnerID:       uuid.New(),
		PolicyGroupID: "CN",
		KycTier:       enums.KycTierL2,
		Rails:         wechatRails(),
	}

	first, err := svc.EnsureProfile(ctx, input)
	if err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	second, err := svc.EnsureProfile(ctx, input)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same profile id, got %s and %s", first.ID, second.ID)
	}
	if repo.created != 1 {
		t.Fatalf("expected one create, got %d", repo.created)
	}
}

func TestEnsureProfileValidatesInput(t *testing.T) {
	svc := newTestService(t, newStubProfilesRepo(), &stubOrderGetter{}, newStubRevealStore())
	ctx := context.Background()

	_, err := svc.EnsureProfile(ctx, EnsureProfileInput{
		OwnerID:       uuid.New(),
		PolicyGroupID: "CN",
		KycTier:       enums.KycTierL2,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty rails, got %v", err)
	}
}

func revealFixture(t *testing.T, state enums.OrderState) (*stubProfilesRepo, *stubOrderGetter, *models.UnifiedOrder) {
	t.Helper()
	repo := newStubProfilesRepo()
	profile, err := repo.Create(context.Background(), &models.PaymentProfile{
		OwnerID:       uuid.New(),
		PolicyGroupID: "CN",
		KycTier:       enums.KycTierL2,
		Rails:         wechatRails(),
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	order := &models.UnifiedOrder{
		ID:               uuid.New(),
		BuyerID:          uuid.New(),
		SellerID:         profile.OwnerID,
		PaymentProfileID: profile.ID,
		OrderState:       state,
		PaymentState:     enums.PaymentStateUnpaid,
	}
	return repo, &stubOrderGetter{orders: map[uuid.UUID]*models.UnifiedOrder{order.ID: order}}, order
}

func TestRevealForOrderReturnsSnapshot(t *testing.T) {
	repo, orders, order := revealFixture(t, enums.OrderStateAwaitPay)
	svc := newTestService(t, repo, orders, newStubRevealStore())
	ctx := context.Background()

	result, err := svc.RevealForOrder(ctx, order.ID, order.BuyerID)
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if result.Profile.Rails.WechatQr == nil {
		t.Fatal("expected rails in snapshot")
	}
	if result.Order.ID != order.ID {
		t.Fatalf("expected order %s, got %s", order.ID, result.Order.ID)
	}
}

func TestRevealForOrderIsIdempotent(t *testing.T) {
	repo, orders, order := revealFixture(t, enums.OrderStateAccepted)
	store := newStubRevealStore()
	svc := newTestService(t, repo, orders, store)
	ctx := context.Background()

	first, err := svc.RevealForOrder(ctx, order.ID, order.BuyerID)
	if err != nil {
		t.Fatalf("first reveal failed: %v", err)
	}
	second, err := svc.RevealForOrder(ctx, order.ID, order.BuyerID)
	if err != nil {
		t.Fatalf("second reveal failed: %v", err)
	}
	if first.AccessToken != second.AccessToken {
		t.Fatal("expected identical token across repeat reveals")
	}
	if !first.ExpiresAt.Equal(second.ExpiresAt) {
		t.Fatal("expected identical expiry across repeat reveals")
	}
	if len(store.values) != 1 {
		t.Fatalf("expected a single snapshot artifact, got %d", len(store.values))
	}
}

func TestRevealForOrderRejectsNonBuyer(t *testing.T) {
	repo, orders, order := revealFixture(t, enums.OrderStateAwaitPay)
	svc := newTestService(t, repo, orders, newStubRevealStore())

	_, err := svc.RevealForOrder(context.Background(), order.ID, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotAuthorized {
		t.Fatalf("expected not_authorized, got %v", err)
	}
}

func TestRevealForOrderRejectsOutsideWindow(t *testing.T) {
	for _, state := range []enums.OrderState{
		enums.OrderStateCreated,
		enums.OrderStateFulfilling,
		enums.OrderStateCompleted,
		enums.OrderStateCancelled,
	} {
		repo, orders, order := revealFixture(t, state)
		svc := newTestService(t, repo, orders, newStubRevealStore())

		_, err := svc.RevealForOrder(context.Background(), order.ID, order.BuyerID)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeOrderNotRevealable {
			t.Fatalf("state %s: expected order_not_revealable, got %v", state, err)
		}
	}
}

func TestRevealForOrderMissingProfile(t *testing.T) {
	repo, orders, order := revealFixture(t, enums.OrderStateAwaitPay)
	order.PaymentProfileID = uuid.New()
	svc := newTestService(t, repo, orders, newStubRevealStore())

	_, err := svc.RevealForOrder(context.Background(), order.ID, order.BuyerID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeProfileMissing {
		t.Fatalf("expected profile_missing, got %v", err)
	}
}
