// Package binding maintains the target binding index: one order id per
// purchasable target key. The index is a hint for order reuse only and
// carries no authority over order validity; callers re-fetch the bound
// order and decide reuse themselves.
package binding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/pkg/db/models"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
)

// Service exposes the binding index operations.
type Service interface {
	Bind(ctx context.Context, targetKey string, orderID uuid.UUID) error
	Lookup(ctx context.Context, targetKey string) (uuid.UUID, bool, error)
	Unbind(ctx context.Context, targetKey string) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the binding index service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("binding repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Bind(ctx context.Context, targetKey string, orderID uuid.UUID) error {
	if targetKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "target key required")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	err := s.repo.Upsert(ctx, &models.TargetBinding{TargetKey: targetKey, OrderID: orderID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert target binding")
	}
	return nil
}

// Lookup returns the currently bound order id for the key. The second
// return is false when no binding exists.
func (s *service) Lookup(ctx context.Context, targetKey string) (uuid.UUID, bool, error) {
	if targetKey == "" {
		return uuid.Nil, false, pkgerrors.New(pkgerrors.CodeValidation, "target key required")
	}
	binding, err := s.repo.Find(ctx, targetKey)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find target binding")
	}
	return binding.OrderID, true, nil
}

func (s *service) Unbind(ctx context.Context, targetKey string) error {
	if targetKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "target key required")
	}
	if err := s.repo.Delete(ctx, targetKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete target binding")
	}
	return nil
}
