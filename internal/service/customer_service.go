package service

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
)

type customerService struct {
	customerRepo ports.CustomerRepository
}

// NewCustomerService creates a new customer service.
func NewCustomerService(customerRepo ports.CustomerRepository) ports.CustomerService {
	return &customerService{customerRepo: customerRepo}
}

func (s *customerService) GetProfile(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get customer: %w", err))
	}
	if customer == nil {
		return nil, apperror.ErrCustomerNotFound()
	}
	return customer, nil
}
