package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/internal/risk"
	"github.com/unimaker/paygate/internal/verification"
	"github.com/unimaker/paygate/pkg/config"
	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
	"github.com/unimaker/paygate/pkg/outbox"
	"github.com/unimaker/paygate/pkg/outbox/payloads"
	"github.com/unimaker/paygate/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// profileGetter resolves the seller's payment profile for the risk gate.
type profileGetter interface {
	FindByOwnerAndPolicy(ctx context.Context, ownerID uuid.UUID, policyGroupID string) (*models.PaymentProfile, error)
}

// targetIndex is the reuse hint consulted around creation. It has no
// authority over order validity.
type targetIndex interface {
	Lookup(ctx context.Context, targetKey string) (uuid.UUID, bool, error)
	Bind(ctx context.Context, targetKey string, orderID uuid.UUID) error
}

// proofRecorder is the slice of the verification pipeline the ledger
// drives during submission and manual review.
type proofRecorder interface {
	RecordSubmission(ctx context.Context, tx *gorm.DB, proof *models.PaymentProof) (*models.ProofVerification, error)
	ApplyAutoOutcome(ctx context.Context, tx *gorm.DB, proofID uuid.UUID, outcome verification.Outcome) (*models.ProofVerification, error)
	RecordManualVerdict(ctx context.Context, tx *gorm.DB, input verification.ManualVerdictInput) (*models.ProofVerification, error)
}

// Service is the unified order ledger. Every orderState/paymentState
// write in the system goes through it, inside one transaction per
// mutation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.UnifiedOrder, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.UnifiedOrder, error)
	Accept(ctx context.Context, orderID, sellerID uuid.UUID) (*models.UnifiedOrder, error)
	SubmitProof(ctx context.Context, input SubmitProofInput) (*SubmissionResult, error)
	ApplyVerdict(ctx context.Context, input VerdictInput) (*models.UnifiedOrder, error)
	VerifyManually(ctx context.Context, input ManualVerifyInput) (*models.UnifiedOrder, *models.ProofVerification, error)
	Cancel(ctx context.Context, orderID, actorID uuid.UUID, reason string) (*models.UnifiedOrder, error)
	Complete(ctx context.Context, orderID uuid.UUID) (*models.UnifiedOrder, error)
	Dispute(ctx context.Context, orderID, openedBy uuid.UUID, reason string) (*models.UnifiedOrder, error)
	ResolveDispute(ctx context.Context, orderID, resolverID uuid.UUID) (*models.UnifiedOrder, error)
	Expire(ctx context.Context, orderID uuid.UUID) (*models.UnifiedOrder, error)
}

// CreateInput carries everything one creation attempt needs. KYC tiers
// and soft risk signals are supplied by the caller; the seller tier is
// read from the payment profile.
type CreateInput struct {
	Scene         enums.TradeScene
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	AmountCny     types.Amount
	PreferredRail enums.PaymentRail
	PolicyGroupID string
	Metadata      map[string]any
	TargetKey     string
	BuyerKycTier  enums.KycTier

	ProfileChangedRecently bool
	ComplaintBurst         bool
	CrossRegionAnomaly     bool
}

// SubmitProofInput is one buyer proof submission.
type SubmitProofInput struct {
	OrderID    uuid.UUID
	BuyerID    uuid.UUID
	ProofType  string
	ProofRef   string
	Channel    *enums.ByopChannel
	TradeNo    *string
	PaidAmount *types.Amount
	PaidAt     *time.Time
	ProofHash  *string
	Metadata   map[string]any
}

// SubmissionResult is what a submission returns after the synchronous
// verification pass.
type SubmissionResult struct {
	Order        *models.UnifiedOrder
	Proof        *models.PaymentProof
	Verification *models.ProofVerification
}

// VerdictInput applies one verification verdict to the ledger.
type VerdictInput struct {
	OrderID     uuid.UUID
	ProofID     uuid.UUID
	Verdict     enums.ProofVerificationState
	Method      *enums.ProofVerificationMethod
	ReasonCodes []string
	ReviewerID  string
}

// ManualVerifyInput records a reviewer verdict and applies it.
type ManualVerifyInput struct {
	OrderID     uuid.UUID
	ProofID     uuid.UUID
	Verdict     enums.ProofVerificationState
	ReasonCodes []string
	Confidence  *float64
	ReviewerID  string
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	profiles profileGetter
	verifier proofRecorder
	index    targetIndex
	cfg      config.OrdersConfig
	locks    *orderLocks
	logg     *logger.Logger
	nowFn    func() time.Time
}

// NewService builds the order ledger service. The target index is
// optional; without it create-or-reuse degrades to plain create.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, profiles profileGetter, verifier proofRecorder, index targetIndex, cfg config.OrdersConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile getter required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("proof recorder required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   publisher,
		profiles: profiles,
		verifier: verifier,
		index:    index,
		cfg:      cfg,
		locks:    newOrderLocks(),
		logg:     logg,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.UnifiedOrder, error) {
	if !input.Scene.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid trade scene %q", input.Scene))
	}
	if !input.PreferredRail.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment rail %q", input.PreferredRail))
	}
	if input.BuyerID == uuid.Nil || input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller ids required")
	}
	if input.BuyerID == input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller must differ")
	}
	if input.PolicyGroupID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "policy group id required")
	}
	if !input.AmountCny.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	if reused, err := s.reuseBoundOrder(ctx, input); err != nil {
		return nil, err
	} else if reused != nil {
		return reused, nil
	}

	profile, err := s.profiles.FindByOwnerAndPolicy(ctx, input.SellerID, input.PolicyGroupID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeProfileMissing, "seller has no payment profile for this policy group")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller payment profile")
	}

	decision := risk.Evaluate(risk.Input{
		Scene:                  input.Scene,
		AmountCny:              input.AmountCny,
		BuyerKycTier:           input.BuyerKycTier,
		SellerKycTier:          profile.KycTier,
		ProfileChangedRecently: input.ProfileChangedRecently,
		ComplaintBurst:         input.ComplaintBurst,
		CrossRegionAnomaly:     input.CrossRegionAnomaly,
	})
	if !decision.Allow {
		return nil, pkgerrors.New(pkgerrors.CodeRiskRejected, "order creation rejected by risk policy").
			WithReasons(decision.Reasons...)
	}

	now := s.nowFn()
	order := &models.UnifiedOrder{
		Scene:            input.Scene,
		BuyerID:          input.BuyerID,
		SellerID:         input.SellerID,
		PaymentProfileID: profile.ID,
		AmountCny:        input.AmountCny,
		PreferredRail:    input.PreferredRail,
		OrderState:       enums.OrderStateCreated,
		PaymentState:     enums.PaymentStateUnpaid,
		PolicyGroupID:    input.PolicyGroupID,
		Metadata:         types.JSONMap(input.Metadata),
		RiskAction:       decision.Action,
		RiskReasons:      types.StringSlice(decision.Reasons),
		ExpiresAt:        now.Add(s.cfg.TTL),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateUnifiedOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: "buyer"},
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				Scene:      order.Scene,
				BuyerID:    order.BuyerID,
				SellerID:   order.SellerID,
				AmountCny:  order.AmountCny.String(),
				RiskAction: order.RiskAction,
				ExpiresAt:  order.ExpiresAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if input.TargetKey != "" && s.index != nil {
		if err := s.index.Bind(ctx, input.TargetKey, order.ID); err != nil {
			// The index is a hint, never authoritative; creation stands.
			if s.logg != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), fmt.Sprintf("target bind failed: %v", err))
			}
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, fmt.Sprintf("order created risk=%s", order.RiskAction))
	}
	return order, nil
}

// reuseBoundOrder resolves the target index hint. A bound order is
// reused only while it is still in flight and matches the incoming
// intent on scene, counterpart ids and amount.
func (s *service) reuseBoundOrder(ctx context.Context, input CreateInput) (*models.UnifiedOrder, error) {
	if input.TargetKey == "" || s.index == nil {
		return nil, nil
	}
	boundID, ok, err := s.index.Lookup(ctx, input.TargetKey)
	if err != nil || !ok {
		return nil, err
	}
	order, err := s.repo.FindOrder(ctx, boundID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bound order")
	}
	switch order.OrderState {
	case enums.OrderStateCreated, enums.OrderStateAccepted, enums.OrderStateAwaitPay:
	default:
		return nil, nil
	}
	if order.Scene != input.Scene || order.BuyerID != input.BuyerID || order.SellerID != input.SellerID || !order.AmountCny.Equal(input.AmountCny) {
		return nil, nil
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "reusing in-flight order for target")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.UnifiedOrder, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// Accept moves a freshly created order straight to awaiting payment.
// The intermediate ACCEPTED state is never observable from outside.
func (s *service) Accept(ctx context.Context, orderID, sellerID uuid.UUID) (*models.UnifiedOrder, error) {
	release := s.locks.Acquire(orderID)
	defer release()

	var order *models.UnifiedOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if loaded.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeNotSeller, "only the seller may accept")
		}
		if loaded.OrderState != enums.OrderStateCreated {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot accept order in state %s", loaded.OrderState))
		}

		now := s.nowFn()
		loaded.OrderState = enums.OrderStateAwaitPay
		loaded.AcceptedAt = &now
		if err := repo.UpdateOrder(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		order = loaded
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAccepted,
			AggregateType: enums.AggregateUnifiedOrder,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID, Role: "seller"},
			Data:          payloads.OrderAcceptedEvent{OrderID: loaded.ID, SellerID: sellerID},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) SubmitProof(ctx context.Context, input SubmitProofInput) (*SubmissionResult, error) {
	if input.ProofRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof reference required")
	}
	if input.PaidAmount != nil && !input.PaidAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid amount must be positive")
	}
	if input.Channel != nil && !input.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid channel %q", *input.Channel))
	}

	release := s.locks.Acquire(input.OrderID)
	defer release()

	result := &SubmissionResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeNotBuyer, "only the buyer may submit payment proof")
		}
		if order.OrderState != enums.OrderStateAwaitPay && order.OrderState != enums.OrderStatePayProofSubmitted {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot submit proof in state %s", order.OrderState))
		}
		if order.ProofAttempts >= s.cfg.MaxProofAttempts {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("proof attempt limit of %d reached", s.cfg.MaxProofAttempts))
		}

		proofType := input.ProofType
		if proofType == "" {
			proofType = models.DefaultProofType
		}
		proof := &models.PaymentProof{
			OrderID:     order.ID,
			BuyerID:     input.BuyerID,
			ProofType:   proofType,
			ProofRef:    input.ProofRef,
			Channel:     input.Channel,
			TradeNoNorm: input.TradeNo,
			PaidAmount:  input.PaidAmount,
			PaidAt:      input.PaidAt,
			ProofHash:   input.ProofHash,
			Metadata:    types.JSONMap(input.Metadata),
		}
		if _, err := s.verifier.RecordSubmission(ctx, tx, proof); err != nil {
			return err
		}

		order.LatestProofID = &proof.ID
		order.ProofAttempts++
		order.OrderState = enums.OrderStatePayProofSubmitted
		order.PaymentState = enums.PaymentStateProofPending
		if err := repo.UpdateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProofSubmitted,
			AggregateType: enums.AggregateUnifiedOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: "buyer"},
			Data: payloads.ProofSubmittedEvent{
				OrderID:  order.ID,
				ProofID:  proof.ID,
				BuyerID:  input.BuyerID,
				Attempt:  order.ProofAttempts,
				ProofRef: proof.ProofRef,
			},
		}); err != nil {
			return err
		}

		// Synchronous automatic pass. Its verdict lands on the ledger
		// in the same transaction as the submission.
		outcome := verification.EvaluateRules(order, proof)
		record, err := s.verifier.ApplyAutoOutcome(ctx, tx, proof.ID, outcome)
		if err != nil {
			return err
		}
		if err := s.applyVerdictLocked(ctx, tx, repo, order, proof.ID, record.State, record.Method, outcome.ReasonCodes); err != nil {
			return err
		}

		result.Order = order
		result.Proof = proof
		result.Verification = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
		logCtx = s.logg.WithProofID(logCtx, result.Proof.ID.String())
		s.logg.Info(logCtx, fmt.Sprintf("proof submitted attempt=%d verdict=%s", result.Order.ProofAttempts, result.Verification.State))
	}
	return result, nil
}

func (s *service) ApplyVerdict(ctx context.Context, input VerdictInput) (*models.UnifiedOrder, error) {
	if !input.Verdict.IsVerdict() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verdict must be PASSED, REVIEW_REQUIRED or REJECTED")
	}

	release := s.locks.Acquire(input.OrderID)
	defer release()

	var order *models.UnifiedOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		order = loaded
		return s.applyVerdictLocked(ctx, tx, repo, loaded, input.ProofID, input.Verdict, input.Method, input.ReasonCodes)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) VerifyManually(ctx context.Context, input ManualVerifyInput) (*models.UnifiedOrder, *models.ProofVerification, error) {
	release := s.locks.Acquire(input.OrderID)
	defer release()

	var (
		order  *models.UnifiedOrder
		record *models.ProofVerification
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		verdict, err := s.verifier.RecordManualVerdict(ctx, tx, verification.ManualVerdictInput{
			ProofID:     input.ProofID,
			Verdict:     input.Verdict,
			ReasonCodes: input.ReasonCodes,
			Confidence:  input.Confidence,
			ReviewerID:  input.ReviewerID,
		})
		if err != nil {
			return err
		}
		if verdict.OrderID != loaded.ID {
			return pkgerrors.New(pkgerrors.CodeValidation, "proof does not belong to this order")
		}
		method := enums.ProofVerificationMethodManual
		if err := s.applyVerdictLocked(ctx, tx, repo, loaded, input.ProofID, input.Verdict, &method, input.ReasonCodes); err != nil {
			return err
		}
		order = loaded
		record = verdict
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, record, nil
}

// applyVerdictLocked moves the ledger for one verdict. Both the order
// lock and the transaction are held by the caller. A verdict for
// anything but the order's latest proof is silently dropped.
func (s *service) applyVerdictLocked(ctx context.Context, tx *gorm.DB, repo Repository, order *models.UnifiedOrder, proofID uuid.UUID, verdict enums.ProofVerificationState, method *enums.ProofVerificationMethod, reasons []string) error {
	if order.LatestProofID == nil || *order.LatestProofID != proofID {
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Warn(logCtx, "stale verdict dropped")
		}
		return nil
	}
	if order.OrderState.IsTerminal() || order.OrderState == enums.OrderStateDisputed {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot apply verdict in state %s", order.OrderState))
	}

	switch verdict {
	case enums.ProofVerificationStatePassed:
		order.PaymentState = enums.PaymentStatePaidVerified
		order.OrderState = enums.OrderStateFulfilling
	case enums.ProofVerificationStateRejected:
		order.PaymentState = enums.PaymentStateFailed
	case enums.ProofVerificationStateReviewRequired:
		order.PaymentState = enums.PaymentStatePaidUnverified
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("verdict %s cannot be applied", verdict))
	}

	if err := repo.UpdateOrder(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventVerdictApplied,
		AggregateType: enums.AggregateUnifiedOrder,
		AggregateID:   order.ID,
		Data: payloads.VerdictAppliedEvent{
			OrderID:      order.ID,
			ProofID:      proofID,
			Verdict:      verdict,
			Method:       method,
			ReasonCodes:  reasons,
			OrderState:   order.OrderState,
			PaymentState: order.PaymentState,
		},
	})
}

func (s *service) Cancel(ctx context.Context, orderID, actorID uuid.UUID, reason string) (*models.UnifiedOrder, error) {
	return s.transition(ctx, orderID, func(tx *gorm.DB, repo Repository, order *models.UnifiedOrder) error {
		if actorID != order.BuyerID && actorID != order.SellerID {
			return pkgerrors.New(pkgerrors.CodeNotAuthorized, "only a party to the order may cancel")
		}
		if order.OrderState.IsTerminal() || order.OrderState == enums.OrderStateDisputed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot cancel order in state %s", order.OrderState))
		}
		now := s.nowFn()
		order.OrderState = enums.OrderStateCancelled
		order.CancelledAt = &now
		if err := repo.UpdateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateUnifiedOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          payloads.OrderCancelledEvent{OrderID: order.ID, CancelledAt: now, Reason: reason},
		})
	})
}

func (s *service) Complete(ctx context.Context, orderID uuid.UUID) (*models.UnifiedOrder, error) {
	return s.transition(ctx, orderID, func(tx *gorm.DB, repo Repository, order *models.UnifiedOrder) error {
		if order.OrderState != enums.OrderStateFulfilling || order.PaymentState != enums.PaymentStatePaidVerified {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot complete order in state %s/%s", order.OrderState, order.PaymentState))
		}
		now := s.nowFn()
		order.OrderState = enums.OrderStateCompleted
		order.CompletedAt = &now
		if err := repo.UpdateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateUnifiedOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCompletedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				UnlockReady: order.IsUnlockReady(),
			},
		})
	})
}

func (s *service) Dispute(ctx context.Context, orderID, openedBy uuid.UUID, reason string) (*models.UnifiedOrder, error) {
	return s.transition(ctx, orderID, func(tx *gorm.DB, repo Repository, order *models.UnifiedOrder) error {
		if openedBy != order.BuyerID && openedBy != order.SellerID {
			return pkgerrors.New(pkgerrors.CodeNotAuthorized, "only a party to the order may dispute")
		}
		if order.OrderState != enums.OrderStatePayProofSubmitted && order.OrderState != enums.OrderStateFulfilling {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot dispute order in state %s", order.OrderState))
		}
		now := s.nowFn()
		order.OrderState = enums.OrderStateDisputed
		order.DisputedAt = &now
		if err := repo.UpdateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDisputed,
			AggregateType: enums.AggregateUnifiedOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: openedBy},
			Data:          payloads.OrderDisputedEvent{OrderID: order.ID, RaisedBy: openedBy, DisputedAt: now},
		})
	})
}

// ResolveDispute closes a dispute in the buyer's favor: payment is
// treated as verified and the order completes.
func (s *service) ResolveDispute(ctx context.Context, orderID, resolverID uuid.UUID) (*models.UnifiedOrder, error) {
	return s.transition(ctx, orderID, func(tx *gorm.DB, repo Repository, order *models.UnifiedOrder) error {
		if order.OrderState != enums.OrderStateDisputed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot resolve order in state %s", order.OrderState))
		}
		now := s.nowFn()
		order.OrderState = enums.OrderStateCompleted
		order.PaymentState = enums.PaymentStatePaidVerified
		order.CompletedAt = &now
		if err := repo.UpdateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateUnifiedOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: resolverID, Role: "reviewer"},
			Data: payloads.OrderCompletedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				UnlockReady: order.IsUnlockReady(),
			},
		})
	})
}

func (s *service) Expire(ctx context.Context, orderID uuid.UUID) (*models.UnifiedOrder, error) {
	return s.transition(ctx, orderID, func(tx *gorm.DB, repo Repository, order *models.UnifiedOrder) error {
		if order.OrderState.IsTerminal() || order.OrderState == enums.OrderStateDisputed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot expire order in state %s", order.OrderState))
		}
		now := s.nowFn()
		order.OrderState = enums.OrderStateExpired
		order.ExpiredAt = &now
		if err := repo.UpdateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		// The TTL sweep can race a concurrent expiry of the same order;
		// the idempotent emit keeps the event log at one expired event.
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateUnifiedOrder,
			AggregateID:   order.ID,
			Data:          payloads.OrderExpiredEvent{OrderID: order.ID, ExpiredAt: now},
		})
	})
}

// transition runs one lifecycle mutation under the order lock and a
// single transaction.
func (s *service) transition(ctx context.Context, orderID uuid.UUID, fn func(tx *gorm.DB, repo Repository, order *models.UnifiedOrder) error) (*models.UnifiedOrder, error) {
	release := s.locks.Acquire(orderID)
	defer release()

	var order *models.UnifiedOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := fn(tx, repo, loaded); err != nil {
			return err
		}
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) loadForUpdate(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.UnifiedOrder, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
