package verification

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
)

// ReviewItem is one review queue row: the order, its latest proof, and
// that proof's verification.
type ReviewItem struct {
	Order        models.UnifiedOrder      `json:"order"`
	Proof        models.PaymentProof      `json:"proof"`
	Verification models.ProofVerification `json:"verification"`
}

// Repository is the proof/verification storage surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProof(ctx context.Context, proof *models.PaymentProof) (*models.PaymentProof, error)
	CreateVerification(ctx context.Context, verification *models.ProofVerification) (*models.ProofVerification, error)
	FindProof(ctx context.Context, proofID uuid.UUID) (*models.PaymentProof, error)
	FindVerification(ctx context.Context, proofID uuid.UUID) (*models.ProofVerification, error)
	UpdateVerification(ctx context.Context, verification *models.ProofVerification) error
	FindLatestProofByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentProof, error)
	ListForReview(ctx context.Context, states []enums.ProofVerificationState, limit int) ([]ReviewItem, error)
	CountInStates(ctx context.Context, states []enums.ProofVerificationState) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a verification repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProof(ctx context.Context, proof *models.PaymentProof) (*models.PaymentProof, error) {
	if err := r.db.WithContext(ctx).Create(proof).Error; err != nil {
		return nil, err
	}
	return proof, nil
}

func (r *repository) CreateVerification(ctx context.Context, verification *models.ProofVerification) (*models.ProofVerification, error) {
	if err := r.db.WithContext(ctx).Create(verification).Error; err != nil {
		return nil, err
	}
	return verification, nil
}

func (r *repository) FindProof(ctx context.Context, proofID uuid.UUID) (*models.PaymentProof, error) {
	var proof models.PaymentProof
	err := r.db.WithContext(ctx).Where("id = ?", proofID).First(&proof).Error
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

func (r *repository) FindVerification(ctx context.Context, proofID uuid.UUID) (*models.ProofVerification, error) {
	var verification models.ProofVerification
	err := r.db.WithContext(ctx).Where("proof_id = ?", proofID).First(&verification).Error
	if err != nil {
		return nil, err
	}
	return &verification, nil
}

func (r *repository) UpdateVerification(ctx context.Context, verification *models.ProofVerification) error {
	return r.db.WithContext(ctx).
		Model(&models.ProofVerification{}).
		Where("proof_id = ?", verification.ProofID).
		Updates(map[string]any{
			"state":            verification.State,
			"method":           verification.Method,
			"confidence":       verification.Confidence,
			"reason_codes":     &verification.ReasonCodes,
			"extracted_fields": &verification.ExtractedFields,
			"reviewed_by":      verification.ReviewedBy,
			"reviewed_at":      verification.ReviewedAt,
		}).Error
}

func (r *repository) FindLatestProofByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentProof, error) {
	var proof models.PaymentProof
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("submitted_at DESC").
		First(&proof).Error
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

// ListForReview returns tuples whose verification state is in the
// requested set, newest submission first. Only the proof a ledger row
// currently points at qualifies; superseded proofs never appear.
func (r *repository) ListForReview(ctx context.Context, states []enums.ProofVerificationState, limit int) ([]ReviewItem, error) {
	var verifications []models.ProofVerification
	err := r.db.WithContext(ctx).
		Joins("JOIN unified_orders ON unified_orders.latest_proof_id = proof_verifications.proof_id").
		Where("proof_verifications.state IN ?", states).
		Order("proof_verifications.created_at DESC").
		Limit(limit).
		Find(&verifications).Error
	if err != nil {
		return nil, err
	}

	items := make([]ReviewItem, 0, len(verifications))
	for _, verification := range verifications {
		var proof models.PaymentProof
		if err := r.db.WithContext(ctx).Where("id = ?", verification.ProofID).First(&proof).Error; err != nil {
			return nil, err
		}
		var order models.UnifiedOrder
		if err := r.db.WithContext(ctx).Where("id = ?", verification.OrderID).First(&order).Error; err != nil {
			return nil, err
		}
		items = append(items, ReviewItem{
			Order:        order,
			Proof:        proof,
			Verification: verification,
		})
	}
	return items, nil
}

func (r *repository) CountInStates(ctx context.Context, states []enums.ProofVerificationState) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProofVerification{}).
		Joins("JOIN unified_orders ON unified_orders.latest_proof_id = proof_verifications.proof_id").
		Where("proof_verifications.state IN ?", states).
		Count(&count).Error
	return count, err
}
