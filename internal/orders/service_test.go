package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/internal/verification"
	"github.com/unimaker/paygate/pkg/config"
	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/outbox"
	"github.com/unimaker/paygate/pkg/types"
)

type stubOrdersRepo struct {
	orders map[uuid.UUID]*models.UnifiedOrder
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: map[uuid.UUID]*models.UnifiedOrder{}}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) CreateOrder(_ context.Context, order *models.UnifiedOrder) (*models.UnifiedOrder, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrdersRepo) FindOrder(_ context.Context, id uuid.UUID) (*models.UnifiedOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrdersRepo) UpdateOrder(_ context.Context, order *models.UnifiedOrder) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) FindExpired(_ context.Context, cutoff time.Time, limit int) ([]models.UnifiedOrder, error) {
	var out []models.UnifiedOrder
	for _, order := range s.orders {
		if order.ExpiresAt.Before(cutoff) && !order.OrderState.IsTerminal() && order.OrderState != enums.OrderStateDisputed {
			out = append(out, *order)
		}
	}
	return out, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) EmitIfNotExists(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	for _, seen := range s.events {
		if seen.EventType == event.EventType && seen.AggregateID == event.AggregateID {
			return nil
		}
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) eventTypes() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.EventType)
	}
	return out
}

type stubProfiles struct {
	profiles map[string]*models.PaymentProfile
}

func profileKey(ownerID uuid.UUID, policyGroupID string) string {
	return ownerID.String() + "/" + policyGroupID
}

func (s *stubProfiles) FindByOwnerAndPolicy(_ context.Context, ownerID uuid.UUID, policyGroupID string) (*models.PaymentProfile, error) {
	profile, ok := s.profiles[profileKey(ownerID, policyGroupID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

type stubVerifier struct {
	records map[uuid.UUID]*models.ProofVerification
}

func newStubVerifier() *stubVerifier {
	return &stubVerifier{records: map[uuid.UUID]*models.ProofVerification{}}
}

func (s *stubVerifier) RecordSubmission(_ context.Context, _ *gorm.DB, proof *models.PaymentProof) (*models.ProofVerification, error) {
	if proof.ID == uuid.Nil {
		proof.ID = uuid.New()
	}
	record := &models.ProofVerification{
		ProofID: proof.ID,
		OrderID: proof.OrderID,
		State:   enums.ProofVerificationStatePending,
	}
	s.records[proof.ID] = record
	return record, nil
}

func (s *stubVerifier) ApplyAutoOutcome(_ context.Context, _ *gorm.DB, proofID uuid.UUID, outcome verification.Outcome) (*models.ProofVerification, error) {
	record, ok := s.records[proofID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	method := enums.ProofVerificationMethodAutoOcrRules
	record.State = outcome.State
	record.Method = &method
	record.ReasonCodes = types.StringSlice(outcome.ReasonCodes)
	return record, nil
}

func (s *stubVerifier) RecordManualVerdict(_ context.Context, _ *gorm.DB, input verification.ManualVerdictInput) (*models.ProofVerification, error) {
	record, ok := s.records[input.ProofID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification not found")
	}
	method := enums.ProofVerificationMethodManual
	record.State = input.Verdict
	record.Method = &method
	record.ReasonCodes = types.StringSlice(input.ReasonCodes)
	record.ReviewedBy = &input.ReviewerID
	return record, nil
}

type ledgerFixture struct {
	svc      Service
	repo     *stubOrdersRepo
	outbox   *stubOutbox
	profiles *stubProfiles
	verifier *stubVerifier
	index    *stubIndex
	sellerID uuid.UUID
	buyerID  uuid.UUID
}

type stubIndex struct {
	bindings map[string]uuid.UUID
}

func newStubIndex() *stubIndex {
	return &stubIndex{bindings: map[string]uuid.UUID{}}
}

func (s *stubIndex) Lookup(_ context.Context, targetKey string) (uuid.UUID, bool, error) {
	id, ok := s.bindings[targetKey]
	return id, ok, nil
}

func (s *stubIndex) Bind(_ context.Context, targetKey string, orderID uuid.UUID) error {
	s.bindings[targetKey] = orderID
	return nil
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	repo := newStubOrdersRepo()
	events := &stubOutbox{}
	verifier := newStubVerifier()
	sellerID := uuid.New()
	buyerID := uuid.New()
	profiles := &stubProfiles{profiles: map[string]*models.PaymentProfile{
		profileKey(sellerID, "default"): {
			ID:            uuid.New(),
			OwnerID:       sellerID,
			PolicyGroupID: "default",
			KycTier:       enums.KycTierL2,
			Rails:         types.PaymentRails{WechatQr: ptr("wxp://qr-code")},
		},
	}}
	cfg := config.OrdersConfig{TTL: 24 * time.Hour, MaxProofAttempts: 5}
	index := newStubIndex()
	svc, err := NewService(repo, stubTxRunner{}, events, profiles, verifier, index, cfg, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &ledgerFixture{
		svc:      svc,
		repo:     repo,
		outbox:   events,
		profiles: profiles,
		verifier: verifier,
		index:    index,
		sellerID: sellerID,
		buyerID:  buyerID,
	}
}

func ptr[T any](v T) *T { return &v }

func mustAmount(t *testing.T, raw string) types.Amount {
	t.Helper()
	amount, err := types.ParseAmount(raw)
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	return amount
}

func (f *ledgerFixture) createInput(t *testing.T, raw string) CreateInput {
	return CreateInput{
		Scene:         enums.TradeSceneContentPaywall,
		BuyerID:       f.buyerID,
		SellerID:      f.sellerID,
		AmountCny:     mustAmount(t, raw),
		PreferredRail: enums.PaymentRailByopWechat,
		PolicyGroupID: "default",
		BuyerKycTier:  enums.KycTierL1,
	}
}

func TestCreateRejectsUnderfundedKyc(t *testing.T) {
	f := newLedgerFixture(t)
	input := f.createInput(t, "8000.00")

	_, err := f.svc.Create(context.Background(), input)
	if err == nil {
		t.Fatalf("expected risk rejection")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRiskRejected {
		t.Fatalf("expected risk_rejected, got %v", err)
	}
	if !containsString(typed.Reasons(), "buyer_kyc_below_L2") {
		t.Fatalf("expected buyer kyc reason, got %v", typed.Reasons())
	}
	if len(f.outbox.events) != 0 {
		t.Fatalf("rejected creation must not emit events")
	}
}

func TestCreateMissingProfile(t *testing.T) {
	f := newLedgerFixture(t)
	input := f.createInput(t, "100.00")
	input.PolicyGroupID = "other-group"

	_, err := f.svc.Create(context.Background(), input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeProfileMissing {
		t.Fatalf("expected profile_missing, got %v", err)
	}
}

func TestCreateRecordsReviewAction(t *testing.T) {
	f := newLedgerFixture(t)
	input := f.createInput(t, "100.00")
	input.ComplaintBurst = true

	order, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.RiskAction != enums.RiskActionReview {
		t.Fatalf("expected REVIEW action, got %s", order.RiskAction)
	}
	if !containsString(order.RiskReasons, "complaint_burst_detected") {
		t.Fatalf("expected complaint reason, got %v", order.RiskReasons)
	}
	if order.OrderState != enums.OrderStateCreated || order.PaymentState != enums.PaymentStateUnpaid {
		t.Fatalf("unexpected initial states %s/%s", order.OrderState, order.PaymentState)
	}
}

func TestCreateSetsExpiry(t *testing.T) {
	f := newLedgerFixture(t)
	order, err := f.svc.Create(context.Background(), f.createInput(t, "100.00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ttl := time.Until(order.ExpiresAt)
	if ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Fatalf("expected ~24h TTL, got %s", ttl)
	}
	if got := f.outbox.eventTypes(); len(got) != 1 || got[0] != enums.EventOrderCreated {
		t.Fatalf("expected order.created event, got %v", got)
	}
}

func TestCreateReusesBoundInFlightOrder(t *testing.T) {
	f := newLedgerFixture(t)
	input := f.createInput(t, "100.00")
	input.TargetKey = "listing:42"

	first, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.index.bindings["listing:42"] != first.ID {
		t.Fatalf("expected target bound to %s", first.ID)
	}

	second, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("repeat create: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected reuse of order %s, got %s", first.ID, second.ID)
	}
	if got := f.outbox.eventTypes(); len(got) != 1 {
		t.Fatalf("reuse must not emit a second order.created, got %v", got)
	}

	// A differing amount is a new intent even while the first is in flight.
	changed := input
	changed.AmountCny = mustAmount(t, "120.00")
	third, err := f.svc.Create(context.Background(), changed)
	if err != nil {
		t.Fatalf("changed create: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("expected a fresh order for the changed amount")
	}
	if f.index.bindings["listing:42"] != third.ID {
		t.Fatalf("expected last-write-wins rebind to %s", third.ID)
	}
}

func TestCreateIgnoresBindingToClosedOrder(t *testing.T) {
	f := newLedgerFixture(t)
	input := f.createInput(t, "100.00")
	input.TargetKey = "listing:7"

	first, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), first.ID, f.buyerID, "changed my mind"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	second, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("cancelled order must not be reused")
	}
}

func TestAcceptRequiresSeller(t *testing.T) {
	f := newLedgerFixture(t)
	order, err := f.svc.Create(context.Background(), f.createInput(t, "100.00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Accept(context.Background(), order.ID, f.buyerID); err == nil {
		t.Fatalf("expected not_seller")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotSeller {
		t.Fatalf("expected not_seller, got %v", err)
	}

	accepted, err := f.svc.Accept(context.Background(), order.ID, f.sellerID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.OrderState != enums.OrderStateAwaitPay {
		t.Fatalf("expected AWAIT_PAY, got %s", accepted.OrderState)
	}
	if accepted.PaymentState != enums.PaymentStateUnpaid {
		t.Fatalf("payment state must stay UNPAID, got %s", accepted.PaymentState)
	}
	if accepted.AcceptedAt == nil {
		t.Fatalf("expected accepted timestamp")
	}

	if _, err := f.svc.Accept(context.Background(), order.ID, f.sellerID); err == nil {
		t.Fatalf("second accept must fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
}

func (f *ledgerFixture) acceptedOrder(t *testing.T, raw string) *models.UnifiedOrder {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.createInput(t, raw))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	order, err = f.svc.Accept(context.Background(), order.ID, f.sellerID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return order
}

func matchingProofInput(t *testing.T, f *ledgerFixture, order *models.UnifiedOrder) SubmitProofInput {
	channel := enums.ByopChannelWechat
	paid := order.AmountCny
	return SubmitProofInput{
		OrderID:    order.ID,
		BuyerID:    f.buyerID,
		ProofRef:   "4200001234202601150001",
		Channel:    &channel,
		PaidAmount: &paid,
	}
}

func TestSubmitProofHappyPathVerifiesAndFulfills(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.acceptedOrder(t, "100.00")

	result, err := f.svc.SubmitProof(context.Background(), matchingProofInput(t, f, order))
	if err != nil {
		t.Fatalf("submit proof: %v", err)
	}
	if result.Verification.State != enums.ProofVerificationStatePassed {
		t.Fatalf("expected PASSED, got %s", result.Verification.State)
	}
	if result.Order.OrderState != enums.OrderStateFulfilling {
		t.Fatalf("expected FULFILLING, got %s", result.Order.OrderState)
	}
	if result.Order.PaymentState != enums.PaymentStatePaidVerified {
		t.Fatalf("expected PAID_VERIFIED, got %s", result.Order.PaymentState)
	}
	if result.Order.LatestProofID == nil || *result.Order.LatestProofID != result.Proof.ID {
		t.Fatalf("latest proof pointer not set")
	}
	if !result.Order.IsUnlockReady() {
		t.Fatalf("expected unlock-ready order")
	}

	want := []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderAccepted,
		enums.EventProofSubmitted,
		enums.EventVerdictApplied,
	}
	got := f.outbox.eventTypes()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestSubmitProofRejectionAllowsResubmission(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.acceptedOrder(t, "100.00")

	input := matchingProofInput(t, f, order)
	wrong := mustAmount(t, "99.00")
	input.PaidAmount = &wrong

	result, err := f.svc.SubmitProof(context.Background(), input)
	if err != nil {
		t.Fatalf("submit proof: %v", err)
	}
	if result.Verification.State != enums.ProofVerificationStateRejected {
		t.Fatalf("expected REJECTED, got %s", result.Verification.State)
	}
	if result.Order.OrderState != enums.OrderStatePayProofSubmitted {
		t.Fatalf("order state must stay PAY_PROOF_SUBMITTED, got %s", result.Order.OrderState)
	}
	if result.Order.PaymentState != enums.PaymentStateFailed {
		t.Fatalf("expected FAILED, got %s", result.Order.PaymentState)
	}

	retry, err := f.svc.SubmitProof(context.Background(), matchingProofInput(t, f, order))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if retry.Order.ProofAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", retry.Order.ProofAttempts)
	}
	if retry.Order.PaymentState != enums.PaymentStatePaidVerified {
		t.Fatalf("expected PAID_VERIFIED after retry, got %s", retry.Order.PaymentState)
	}
}

func TestSubmitProofGuards(t *testing.T) {
	f := newLedgerFixture(t)
	order, err := f.svc.Create(context.Background(), f.createInput(t, "100.00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	input := matchingProofInput(t, f, order)
	if _, err := f.svc.SubmitProof(context.Background(), input); err == nil {
		t.Fatalf("submission before accept must fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid_transition, got %v", err)
	}

	order, err = f.svc.Accept(context.Background(), order.ID, f.sellerID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	stranger := matchingProofInput(t, f, order)
	stranger.BuyerID = uuid.New()
	if _, err := f.svc.SubmitProof(context.Background(), stranger); err == nil {
		t.Fatalf("non-buyer submission must fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotBuyer {
		t.Fatalf("expected not_buyer, got %v", err)
	}

	empty := matchingProofInput(t, f, order)
	empty.ProofRef = ""
	if _, err := f.svc.SubmitProof(context.Background(), empty); err == nil {
		t.Fatalf("empty proof ref must fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitProofAttemptCap(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.acceptedOrder(t, "100.00")

	wrong := mustAmount(t, "1.00")
	for i := 0; i < 5; i++ {
		input := matchingProofInput(t, f, order)
		input.PaidAmount = &wrong
		if _, err := f.svc.SubmitProof(context.Background(), input); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	_, err := f.svc.SubmitProof(context.Background(), matchingProofInput(t, f, order))
	if err == nil {
		t.Fatalf("sixth attempt must fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyVerdictDropsStaleProof(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.acceptedOrder(t, "100.00")

	input := matchingProofInput(t, f, order)
	wrong := mustAmount(t, "1.00")
	input.PaidAmount = &wrong
	first, err := f.svc.SubmitProof(context.Background(), input)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := f.svc.SubmitProof(context.Background(), input)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	emitted := len(f.outbox.events)
	updated, err := f.svc.ApplyVerdict(context.Background(), VerdictInput{
		OrderID: order.ID,
		ProofID: first.Proof.ID,
		Verdict: enums.ProofVerificationStatePassed,
	})
	if err != nil {
		t.Fatalf("stale verdict must not error: %v", err)
	}
	if updated.PaymentState != enums.PaymentStateFailed {
		t.Fatalf("stale verdict must not move the ledger, got %s", updated.PaymentState)
	}
	if len(f.outbox.events) != emitted {
		t.Fatalf("stale verdict must not emit events")
	}

	fresh, err := f.svc.ApplyVerdict(context.Background(), VerdictInput{
		OrderID: order.ID,
		ProofID: second.Proof.ID,
		Verdict: enums.ProofVerificationStatePassed,
	})
	if err != nil {
		t.Fatalf("fresh verdict: %v", err)
	}
	if fresh.PaymentState != enums.PaymentStatePaidVerified || fresh.OrderState != enums.OrderStateFulfilling {
		t.Fatalf("expected PAID_VERIFIED/FULFILLING, got %s/%s", fresh.PaymentState, fresh.OrderState)
	}
}

func TestVerifyManuallyAppliesVerdict(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.acceptedOrder(t, "100.00")

	input := matchingProofInput(t, f, order)
	input.PaidAmount = nil
	input.Channel = nil
	result, err := f.svc.SubmitProof(context.Background(), input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Verification.State != enums.ProofVerificationStateReviewRequired {
		t.Fatalf("expected REVIEW_REQUIRED, got %s", result.Verification.State)
	}
	if result.Order.PaymentState != enums.PaymentStatePaidUnverified {
		t.Fatalf("expected PAID_UNVERIFIED, got %s", result.Order.PaymentState)
	}

	updated, record, err := f.svc.VerifyManually(context.Background(), ManualVerifyInput{
		OrderID:    order.ID,
		ProofID:    result.Proof.ID,
		Verdict:    enums.ProofVerificationStatePassed,
		ReviewerID: "ops-1",
	})
	if err != nil {
		t.Fatalf("verify manually: %v", err)
	}
	if record.Method == nil || *record.Method != enums.ProofVerificationMethodManual {
		t.Fatalf("expected MANUAL method")
	}
	if updated.PaymentState != enums.PaymentStatePaidVerified || updated.OrderState != enums.OrderStateFulfilling {
		t.Fatalf("expected PAID_VERIFIED/FULFILLING, got %s/%s", updated.PaymentState, updated.OrderState)
	}
}

func TestCompleteLifecycle(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.acceptedOrder(t, "100.00")

	if _, err := f.svc.Complete(context.Background(), order.ID); err == nil {
		t.Fatalf("complete before payment must fail")
	}

	result, err := f.svc.SubmitProof(context.Background(), matchingProofInput(t, f, order))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	completed, err := f.svc.Complete(context.Background(), result.Order.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.OrderState != enums.OrderStateCompleted {
		t.Fatalf("expected COMPLETED, got %s", completed.OrderState)
	}
	if !completed.IsUnlockReady() {
		t.Fatalf("completed verified order must stay unlock-ready")
	}
	if completed.CompletedAt == nil {
		t.Fatalf("expected completion timestamp")
	}

	if _, err := f.svc.Cancel(context.Background(), order.ID, f.buyerID, "changed my mind"); err == nil {
		t.Fatalf("cancel after completion must fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
}

func TestDisputeAndResolve(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.acceptedOrder(t, "100.00")

	if _, err := f.svc.Dispute(context.Background(), order.ID, f.buyerID, "no delivery"); err == nil {
		t.Fatalf("dispute from AWAIT_PAY must fail")
	}

	result, err := f.svc.SubmitProof(context.Background(), matchingProofInput(t, f, order))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.Dispute(context.Background(), result.Order.ID, uuid.New(), "outsider"); err == nil {
		t.Fatalf("outsider dispute must fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotAuthorized {
		t.Fatalf("expected not_authorized, got %v", err)
	}

	disputed, err := f.svc.Dispute(context.Background(), result.Order.ID, f.buyerID, "no delivery")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if disputed.OrderState != enums.OrderStateDisputed {
		t.Fatalf("expected DISPUTED, got %s", disputed.OrderState)
	}

	if _, err := f.svc.Cancel(context.Background(), order.ID, f.buyerID, "nope"); err == nil {
		t.Fatalf("cancel while disputed must fail")
	}
	if _, err := f.svc.Expire(context.Background(), order.ID); err == nil {
		t.Fatalf("expire while disputed must fail")
	}

	resolved, err := f.svc.ResolveDispute(context.Background(), order.ID, uuid.New())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.OrderState != enums.OrderStateCompleted || resolved.PaymentState != enums.PaymentStatePaidVerified {
		t.Fatalf("expected COMPLETED/PAID_VERIFIED, got %s/%s", resolved.OrderState, resolved.PaymentState)
	}
}

func TestExpireFromAwaitPay(t *testing.T) {
	f := newLedgerFixture(t)
	order := f.acceptedOrder(t, "100.00")

	expired, err := f.svc.Expire(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired.OrderState != enums.OrderStateExpired {
		t.Fatalf("expected EXPIRED, got %s", expired.OrderState)
	}
	if expired.ExpiredAt == nil {
		t.Fatalf("expected expiry timestamp")
	}

	if _, err := f.svc.Expire(context.Background(), order.ID); err == nil {
		t.Fatalf("second expire must fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
}

func containsString(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
