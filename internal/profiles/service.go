package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/pkg/auth"
	"github.com/unimaker/paygate/pkg/config"
	dbpkg "github.com/unimaker/paygate/pkg/db"
	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
	"github.com/unimaker/paygate/pkg/types"
)

// revealableStates is the only window in which rails may leave the registry.
var revealableStates = map[enums.OrderState]bool{
	enums.OrderStateAccepted:          true,
	enums.OrderStateAwaitPay:          true,
	enums.OrderStatePayProofSubmitted: true,
}

type orderGetter interface {
	FindOrder(ctx context.Context, id uuid.UUID) (*models.UnifiedOrder, error)
}

type revealStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	RevealKey(orderID, buyerID string) string
}

// EnsureProfileInput upserts a seller's profile.
type EnsureProfileInput struct {
	OwnerID       uuid.UUID
	PolicyGroupID string
	KycTier       enums.KycTier
	Rails         types.PaymentRails
}

// RevealedProfile is the order-scoped view of a profile's rails.
type RevealedProfile struct {
	ProfileID uuid.UUID          `json:"profileId"`
	Rails     types.PaymentRails `json:"rails"`
}

// RevealResult is returned from a successful reveal. Repeated calls
// within the token window return the identical snapshot.
type RevealResult struct {
	AccessToken string               `json:"accessToken"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	Order       *models.UnifiedOrder `json:"order"`
	Profile     RevealedProfile      `json:"paymentProfile"`
}

// revealSnapshot is the Redis-persisted portion of a reveal.
type revealSnapshot struct {
	AccessToken string          `json:"accessToken"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	Profile     RevealedProfile `json:"profile"`
}

// Service defines the payment profile registry operations.
type Service interface {
	EnsureProfile(ctx context.Context, input EnsureProfileInput) (*models.PaymentProfile, error)
	RevealForOrder(ctx context.Context, orderID, buyerID uuid.UUID) (*RevealResult, error)
}

type service struct {
	repo   Repository
	orders orderGetter
	store  revealStore
	reveal config.RevealConfig
	logg   *logger.Logger
	nowFn  func() time.Time
}

// NewService builds the profile registry service.
func NewService(repo Repository, orders orderGetter, store revealStore, reveal config.RevealConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order getter required")
	}
	if store == nil {
		return nil, fmt.Errorf("reveal store required")
	}
	return &service{
		repo:   repo,
		orders: orders,
		store:  store,
		reveal: reveal,
		logg:   logg,
		nowFn:  time.Now,
	}, nil
}

// EnsureProfile upserts by (ownerId, policyGroupId): an existing profile
// is returned untouched, so repeated registration calls are idempotent.
func (s *service) EnsureProfile(ctx context.Context, input EnsureProfileInput) (*models.PaymentProfile, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if input.PolicyGroupID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "policy group id required")
	}
	if !input.KycTier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid kyc tier")
	}
	if input.Rails.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one payment rail required")
	}

	existing, err := s.repo.FindByOwnerAndPolicy(ctx, input.OwnerID, input.PolicyGroupID)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment profile")
	}

	profile := &models.PaymentProfile{
		OwnerID:       input.OwnerID,
		PolicyGroupID: input.PolicyGroupID,
		KycTier:       input.KycTier,
		Rails:         input.Rails,
	}
	created, err := s.repo.Create(ctx, profile)
	if err != nil {
		// Lost a concurrent upsert race; the winner's row is authoritative.
		if dbpkg.IsUniqueViolation(err, "ux_payment_profiles_owner_policy") {
			return s.repo.FindByOwnerAndPolicy(ctx, input.OwnerID, input.PolicyGroupID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment profile")
	}
	return created, nil
}

// RevealForOrder discloses the rails snapshot for an authorized buyer.
// Exactly one snapshot is valid per (order, buyer) pair at a time;
// repeat calls inside the window return the stored snapshot untouched.
func (s *service) RevealForOrder(ctx context.Context, orderID, buyerID uuid.UUID) (*RevealResult, error) {
	if orderID == uuid.Nil || buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order and buyer ids required")
	}

	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthorized, "reveal requested by non-buyer")
	}
	if !revealableStates[order.OrderState] {
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotRevealable, "order state does not permit reveal")
	}

	key := s.store.RevealKey(orderID.String(), buyerID.String())
	if stored, err := s.store.Get(ctx, key); err == nil {
		return s.resultFromSnapshot(ctx, stored, order)
	}

	profile, err := s.repo.FindByID(ctx, order.PaymentProfileID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeProfileMissing, "no payment profile for seller")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment profile")
	}

	token, expiresAt, err := auth.MintRevealToken(s.reveal, s.nowFn(), auth.RevealTokenPayload{
		OrderID:   orderID,
		BuyerID:   buyerID,
		ProfileID: profile.ID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint reveal token")
	}

	snapshot := revealSnapshot{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Profile: RevealedProfile{
			ProfileID: profile.ID,
			Rails:     profile.Rails,
		},
	}
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode reveal snapshot")
	}

	created, err := s.store.SetNX(ctx, key, string(encoded), s.reveal.TTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reveal snapshot")
	}
	if !created {
		// Lost a concurrent reveal race; the stored snapshot wins.
		stored, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reveal snapshot")
		}
		return s.resultFromSnapshot(ctx, stored, order)
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "payment rails revealed")
	}

	return &RevealResult{
		AccessToken: snapshot.AccessToken,
		ExpiresAt:   snapshot.ExpiresAt,
		Order:       order,
		Profile:     snapshot.Profile,
	}, nil
}

func (s *service) resultFromSnapshot(_ context.Context, stored string, order *models.UnifiedOrder) (*RevealResult, error) {
	var snapshot revealSnapshot
	if err := json.Unmarshal([]byte(stored), &snapshot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode reveal snapshot")
	}
	return &RevealResult{
		AccessToken: snapshot.AccessToken,
		ExpiresAt:   snapshot.ExpiresAt,
		Order:       order,
		Profile:     snapshot.Profile,
	}, nil
}
