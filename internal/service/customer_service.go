package service

import (
	"context"
	"strings"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// CustomerStatusView вычисленный статус клиента
type CustomerStatusView struct {
	CustomerID    string                `json:"customer_id"`
	Status        domain.CustomerStatus `json:"status"`
	PlanTier      domain.PlanTier       `json:"plan_tier"`
	AccountStatus domain.AccountStatus  `json:"account_status"`
}

// CustomerService чтение клиентов и их статуса
type CustomerService interface {
	Get(ctx context.Context, id string) (domain.Customer, error)
	GetStatus(ctx context.Context, id string) (CustomerStatusView, error)
}

type customerService struct {
	store Store
	log   *logger.Logger
}

// NewCustomerService создает новый сервис для работы с клиентами
func NewCustomerService(store Store, log *logger.Logger) CustomerService {
	return &customerService{
		store: store,
		log:   log,
	}
}

func (s *customerService) Get(ctx context.Context, id string) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, domain.NewValidationError("customer_id", "is required")
	}

	s.log.Debug("Getting customer by ID: %s", id)
	return loadCustomer(ctx, s.store.Customers, id)
}

func (s *customerService) GetStatus(ctx context.Context, id string) (CustomerStatusView, error) {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return CustomerStatusView{}, err
	}

	snapshot, err := loadSnapshot(ctx, s.store.Snapshots, customer.ID)
	if err != nil {
		return CustomerStatusView{}, err
	}

	return CustomerStatusView{
		CustomerID:    customer.ID,
		Status:        domain.ResolveStatus(customer.PlanTier, snapshot),
		PlanTier:      customer.PlanTier,
		AccountStatus: customer.AccountStatus,
	}, nil
}
