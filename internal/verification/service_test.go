package verification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
)

type stubVerificationRepo struct {
	proofs        map[uuid.UUID]*models.PaymentProof
	verifications map[uuid.UUID]*models.ProofVerification
	reviewItems   []ReviewItem
	lastStates    []enums.ProofVerificationState
	lastLimit     int
}

func newStubVerificationRepo() *stubVerificationRepo {
	return &stubVerificationRepo{
		proofs:        map[uuid.UUID]*models.PaymentProof{},
		verifications: map[uuid.UUID]*models.ProofVerification{},
	}
}

func (s *stubVerificationRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubVerificationRepo) CreateProof(_ context.Context, proof *models.PaymentProof) (*models.PaymentProof, error) {
	if proof.ID == uuid.Nil {
		proof.ID = uuid.New()
	}
	s.proofs[proof.ID] = proof
	return proof, nil
}

func (s *stubVerificationRepo) CreateVerification(_ context.Context, verification *models.ProofVerification) (*models.ProofVerification, error) {
	s.verifications[verification.ProofID] = verification
	return verification, nil
}

func (s *stubVerificationRepo) FindProof(_ context.Context, proofID uuid.UUID) (*models.PaymentProof, error) {
	proof, ok := s.proofs[proofID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return proof, nil
}

func (s *stubVerificationRepo) FindVerification(_ context.Context, proofID uuid.UUID) (*models.ProofVerification, error) {
	verification, ok := s.verifications[proofID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *verification
	return &copied, nil
}

func (s *stubVerificationRepo) UpdateVerification(_ context.Context, verification *models.ProofVerification) error {
	s.verifications[verification.ProofID] = verification
	return nil
}

func (s *stubVerificationRepo) FindLatestProofByOrder(_ context.Context, orderID uuid.UUID) (*models.PaymentProof, error) {
	var latest *models.PaymentProof
	for _, proof := range s.proofs {
		if proof.OrderID != orderID {
			continue
		}
		if latest == nil || proof.SubmittedAt.After(latest.SubmittedAt) {
			latest = proof
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (s *stubVerificationRepo) ListForReview(_ context.Context, states []enums.ProofVerificationState, limit int) ([]ReviewItem, error) {
	s.lastStates = states
	s.lastLimit = limit
	return s.reviewItems, nil
}

func (s *stubVerificationRepo) CountInStates(_ context.Context, states []enums.ProofVerificationState) (int64, error) {
	return int64(len(s.reviewItems)), nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRecordSubmissionCreatesPendingVerification(t *testing.T) {
	repo := newStubVerificationRepo()
	svc := newTestService(t, repo)

	proof := &models.PaymentProof{
		OrderID:   uuid.New(),
		BuyerID:   uuid.New(),
		ProofType: models.DefaultProofType,
		ProofRef:  "4200001234202601150001",
	}
	verification, err := svc.RecordSubmission(context.Background(), nil, proof)
	if err != nil {
		t.Fatalf("record submission: %v", err)
	}
	if verification.State != enums.ProofVerificationStatePending {
		t.Fatalf("expected PENDING, got %s", verification.State)
	}
	if verification.ProofID != proof.ID {
		t.Fatalf("verification not bound to proof")
	}
	if verification.OrderID != proof.OrderID {
		t.Fatalf("verification not bound to order")
	}
}

func TestApplyAutoOutcomeStampsVerdict(t *testing.T) {
	repo := newStubVerificationRepo()
	svc := newTestService(t, repo)

	proof := &models.PaymentProof{OrderID: uuid.New(), BuyerID: uuid.New(), ProofRef: "ref12345"}
	if _, err := svc.RecordSubmission(context.Background(), nil, proof); err != nil {
		t.Fatalf("record submission: %v", err)
	}

	outcome := Outcome{
		State:       enums.ProofVerificationStateRejected,
		Confidence:  0.95,
		ReasonCodes: []string{ReasonAmountMismatch},
	}
	verification, err := svc.ApplyAutoOutcome(context.Background(), nil, proof.ID, outcome)
	if err != nil {
		t.Fatalf("apply auto outcome: %v", err)
	}
	if verification.State != enums.ProofVerificationStateRejected {
		t.Fatalf("expected REJECTED, got %s", verification.State)
	}
	if verification.Method == nil || *verification.Method != enums.ProofVerificationMethodAutoOcrRules {
		t.Fatalf("expected AUTO_OCR_RULES method")
	}
	if verification.Confidence == nil || *verification.Confidence != 0.95 {
		t.Fatalf("expected confidence recorded")
	}
	if len(verification.ReasonCodes) != 1 || verification.ReasonCodes[0] != ReasonAmountMismatch {
		t.Fatalf("expected reason codes %v, got %v", outcome.ReasonCodes, verification.ReasonCodes)
	}
}

func TestRecordManualVerdictValidation(t *testing.T) {
	repo := newStubVerificationRepo()
	svc := newTestService(t, repo)

	cases := []struct {
		name  string
		input ManualVerdictInput
	}{
		{"missing proof id", ManualVerdictInput{Verdict: enums.ProofVerificationStatePassed, ReviewerID: "ops-1"}},
		{"pending is not a verdict", ManualVerdictInput{ProofID: uuid.New(), Verdict: enums.ProofVerificationStatePending, ReviewerID: "ops-1"}},
		{"missing reviewer", ManualVerdictInput{ProofID: uuid.New(), Verdict: enums.ProofVerificationStatePassed}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordManualVerdict(context.Background(), nil, tc.input)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestRecordManualVerdictOverwrites(t *testing.T) {
	repo := newStubVerificationRepo()
	svc := newTestService(t, repo)

	proof := &models.PaymentProof{OrderID: uuid.New(), BuyerID: uuid.New(), ProofRef: "ref12345"}
	if _, err := svc.RecordSubmission(context.Background(), nil, proof); err != nil {
		t.Fatalf("record submission: %v", err)
	}

	first := ManualVerdictInput{
		ProofID:    proof.ID,
		Verdict:    enums.ProofVerificationStateRejected,
		ReviewerID: "ops-1",
	}
	if _, err := svc.RecordManualVerdict(context.Background(), nil, first); err != nil {
		t.Fatalf("first verdict: %v", err)
	}

	second := ManualVerdictInput{
		ProofID:     proof.ID,
		Verdict:     enums.ProofVerificationStatePassed,
		ReasonCodes: []string{"manual_receipt_match"},
		ReviewerID:  "ops-2",
	}
	verification, err := svc.RecordManualVerdict(context.Background(), nil, second)
	if err != nil {
		t.Fatalf("second verdict: %v", err)
	}
	if verification.State != enums.ProofVerificationStatePassed {
		t.Fatalf("expected PASSED after correction, got %s", verification.State)
	}
	if verification.Method == nil || *verification.Method != enums.ProofVerificationMethodManual {
		t.Fatalf("expected MANUAL method")
	}
	if verification.ReviewedBy == nil || *verification.ReviewedBy != "ops-2" {
		t.Fatalf("expected reviewer recorded")
	}
	if verification.ReviewedAt == nil {
		t.Fatalf("expected review timestamp")
	}
}

func TestListForReviewDefaultsAndClamp(t *testing.T) {
	repo := newStubVerificationRepo()
	svc := newTestService(t, repo)

	if _, err := svc.ListForReview(context.Background(), nil, 0); err != nil {
		t.Fatalf("list defaults: %v", err)
	}
	if len(repo.lastStates) != 1 || repo.lastStates[0] != enums.ProofVerificationStateReviewRequired {
		t.Fatalf("expected default state REVIEW_REQUIRED, got %v", repo.lastStates)
	}
	if repo.lastLimit != defaultReviewLimit {
		t.Fatalf("expected default limit %d, got %d", defaultReviewLimit, repo.lastLimit)
	}

	if _, err := svc.ListForReview(context.Background(), []enums.ProofVerificationState{enums.ProofVerificationStatePending}, 500); err != nil {
		t.Fatalf("list clamp: %v", err)
	}
	if repo.lastLimit != maxReviewLimit {
		t.Fatalf("expected clamped limit %d, got %d", maxReviewLimit, repo.lastLimit)
	}

	if _, err := svc.ListForReview(context.Background(), []enums.ProofVerificationState{"BOGUS"}, 10); err == nil {
		t.Fatalf("expected invalid state rejection")
	}
}
