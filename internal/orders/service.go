package orders

import (
	"context"
	"errors"

	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceParams groups dependencies for the order history service.
type ServiceParams struct {
	Repo OrderRepository
}

// Service exposes order history reads.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo OrderRepository
}

// NewService builds an order history service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	return &service{repo: params.Repo}, nil
}

// List returns the user's orders without line detail.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toDTO(record, nil))
	}
	return out, nil
}

// Get returns one order with its snapshotted lines.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id are required")
	}
	record, err := s.repo.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	items, err := s.repo.ListItems(ctx, record.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	dto := toDTO(*record, items)
	return &dto, nil
}
