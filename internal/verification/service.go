package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
	"github.com/unimaker/paygate/pkg/metrics"
	"github.com/unimaker/paygate/pkg/types"
)

const (
	defaultReviewLimit = 20
	maxReviewLimit     = 100
)

// Service exposes the read and recording surface of the verification
// pipeline. Ledger transitions stay with the order ledger; this service
// owns proof/verification rows and the review queue.
type Service interface {
	RecordSubmission(ctx context.Context, tx *gorm.DB, proof *models.PaymentProof) (*models.ProofVerification, error)
	ApplyAutoOutcome(ctx context.Context, tx *gorm.DB, proofID uuid.UUID, outcome Outcome) (*models.ProofVerification, error)
	RecordManualVerdict(ctx context.Context, tx *gorm.DB, input ManualVerdictInput) (*models.ProofVerification, error)
	GetLatestProof(ctx context.Context, orderID uuid.UUID) (*models.PaymentProof, *models.ProofVerification, error)
	ListForReview(ctx context.Context, states []enums.ProofVerificationState, limit int) ([]ReviewItem, error)
}

// ManualVerdictInput captures a reviewer decision.
type ManualVerdictInput struct {
	ProofID         uuid.UUID
	Verdict         enums.ProofVerificationState
	ReasonCodes     []string
	ExtractedFields map[string]any
	Confidence      *float64
	ReviewerID      string
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

type service struct {
	repo    Repository
	metrics *metrics.VerificationMetrics
	logg    *logger.Logger
}

// NewService builds the verification pipeline service.
func NewService(repo Repository, verMetrics *metrics.VerificationMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	return &service{repo: repo, metrics: verMetrics, logg: logg}, nil
}

// RecordSubmission persists the proof and its PENDING verification in
// the caller's transaction. The record always exists, even before the
// automatic pass finishes, so callers always have something to poll.
func (s *service) RecordSubmission(ctx context.Context, tx *gorm.DB, proof *models.PaymentProof) (*models.ProofVerification, error) {
	repo := s.repo.WithTx(tx)
	stored, err := repo.CreateProof(ctx, proof)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment proof")
	}
	verification := &models.ProofVerification{
		ProofID: stored.ID,
		OrderID: stored.OrderID,
		State:   enums.ProofVerificationStatePending,
	}
	created, err := repo.CreateVerification(ctx, verification)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create proof verification")
	}
	s.metrics.IncSubmission()
	return created, nil
}

// ApplyAutoOutcome stamps the automatic rule verdict onto the PENDING
// verification record.
func (s *service) ApplyAutoOutcome(ctx context.Context, tx *gorm.DB, proofID uuid.UUID, outcome Outcome) (*models.ProofVerification, error) {
	repo := s.repo.WithTx(tx)
	verification, err := repo.FindVerification(ctx, proofID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification")
	}

	method := enums.ProofVerificationMethodAutoOcrRules
	confidence := outcome.Confidence
	verification.State = outcome.State
	verification.Method = &method
	verification.Confidence = &confidence
	verification.ReasonCodes = types.StringSlice(outcome.ReasonCodes)
	verification.ExtractedFields = outcome.ExtractedFields

	if err := repo.UpdateVerification(ctx, verification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update verification")
	}
	s.metrics.IncVerdict(outcome.State.String(), method.String())
	return verification, nil
}

// RecordManualVerdict overwrites the verification with a reviewer's
// decision. Idempotent per proof id: a second call replaces the prior
// manual verdict so corrections are possible.
func (s *service) RecordManualVerdict(ctx context.Context, tx *gorm.DB, input ManualVerdictInput) (*models.ProofVerification, error) {
	if input.ProofID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof id required")
	}
	if !input.Verdict.IsVerdict() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verdict must be PASSED, REVIEW_REQUIRED or REJECTED")
	}
	if input.ReviewerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer id required")
	}

	repo := s.repo.WithTx(tx)
	verification, err := repo.FindVerification(ctx, input.ProofID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification")
	}

	method := enums.ProofVerificationMethodManual
	now := nowUTC()
	verification.State = input.Verdict
	verification.Method = &method
	verification.Confidence = input.Confidence
	verification.ReasonCodes = types.StringSlice(input.ReasonCodes)
	if input.ExtractedFields != nil {
		verification.ExtractedFields = types.JSONMap(input.ExtractedFields)
	}
	verification.ReviewedBy = &input.ReviewerID
	verification.ReviewedAt = &now

	if err := repo.UpdateVerification(ctx, verification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update verification")
	}
	s.metrics.IncVerdict(input.Verdict.String(), method.String())
	return verification, nil
}

// GetLatestProof returns the order's current proof and its verification.
func (s *service) GetLatestProof(ctx context.Context, orderID uuid.UUID) (*models.PaymentProof, *models.ProofVerification, error) {
	if orderID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	proof, err := s.repo.FindLatestProofByOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "no proof submitted for order")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest proof")
	}
	verification, err := s.repo.FindVerification(ctx, proof.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return proof, nil, nil
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification")
	}
	return proof, verification, nil
}

// ListForReview serves the manual review queue. The limit is clamped to
// 1..100; an empty state set defaults to REVIEW_REQUIRED.
func (s *service) ListForReview(ctx context.Context, states []enums.ProofVerificationState, limit int) ([]ReviewItem, error) {
	if len(states) == 0 {
		states = []enums.ProofVerificationState{enums.ProofVerificationStateReviewRequired}
	}
	for _, state := range states {
		if !state.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid verification state %q", state))
		}
	}
	if limit <= 0 {
		limit = defaultReviewLimit
	}
	if limit > maxReviewLimit {
		limit = maxReviewLimit
	}

	items, err := s.repo.ListForReview(ctx, states, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list review queue")
	}

	if depth, err := s.repo.CountInStates(ctx, []enums.ProofVerificationState{enums.ProofVerificationStateReviewRequired}); err == nil {
		s.metrics.SetReviewQueueDepth(int(depth))
	}
	return items, nil
}
