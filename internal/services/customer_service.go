package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/repositories"
)

const customerIDPrefix = "cus_"

var (
	// ErrCustomerInvalidInput signals the caller provided invalid data.
	ErrCustomerInvalidInput = errors.New("customer: invalid input")
	// ErrCustomerNotFound indicates the customer could not be located.
	ErrCustomerNotFound = errors.New("customer: not found")
	// ErrCustomerConflict indicates a stale version or a duplicate write.
	ErrCustomerConflict = errors.New("customer: conflict")
)

// CustomerServiceDeps bundles collaborators required to construct the customer service.
type CustomerServiceDeps struct {
	Customers   repositories.CustomerRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type customerService struct {
	customers repositories.CustomerRepository
	clock     func() time.Time
	newID     func() string
}

// NewCustomerService wires dependencies into a concrete CustomerService implementation.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Customers == nil {
		return nil, errors.New("customer service: customer repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	return &customerService{
		customers: deps.Customers,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, cmd CreateCustomerCommand) (Customer, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Customer{}, fmt.Errorf("%w: name is required", ErrCustomerInvalidInput)
	}

	now := s.clock()

	customer := Customer{
		ID:        customerIDPrefix + s.newID(),
		Name:      name,
		Company:   strings.TrimSpace(cmd.Company),
		Email:     strings.ToLower(strings.TrimSpace(cmd.Email)),
		Phone:     strings.TrimSpace(cmd.Phone),
		Address:   strings.TrimSpace(cmd.Address),
		City:      strings.TrimSpace(cmd.City),
		Country:   strings.TrimSpace(cmd.Country),
		TaxID:     strings.TrimSpace(cmd.TaxID),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.customers.Insert(ctx, customer); err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	return customer, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID string) (Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Customer{}, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}

	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter CustomerListFilter) (domain.CursorPage[Customer], error) {
	page, err := s.customers.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Customer]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, cmd UpdateCustomerCommand) (Customer, error) {
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return Customer{}, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}

	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	if cmd.ExpectedVersion != 0 && customer.Version != cmd.ExpectedVersion {
		return Customer{}, fmt.Errorf("%w: expected version %d but was %d", ErrCustomerConflict, cmd.ExpectedVersion, customer.Version)
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return Customer{}, fmt.Errorf("%w: name cannot be cleared", ErrCustomerInvalidInput)
		}
		customer.Name = name
	}
	if cmd.Company != nil {
		customer.Company = strings.TrimSpace(*cmd.Company)
	}
	if cmd.Email != nil {
		customer.Email = strings.ToLower(strings.TrimSpace(*cmd.Email))
	}
	if cmd.Phone != nil {
		customer.Phone = strings.TrimSpace(*cmd.Phone)
	}
	if cmd.Address != nil {
		customer.Address = strings.TrimSpace(*cmd.Address)
	}
	if cmd.City != nil {
		customer.City = strings.TrimSpace(*cmd.City)
	}
	if cmd.Country != nil {
		customer.Country = strings.TrimSpace(*cmd.Country)
	}
	if cmd.TaxID != nil {
		customer.TaxID = strings.TrimSpace(*cmd.TaxID)
	}

	expected := customer.Version
	customer.Version = expected + 1
	customer.UpdatedAt = s.clock()

	stored, err := s.customers.Update(ctx, customer, expected)
	if err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	return stored, nil
}

func (s *customerService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCustomerNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCustomerConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("customer: repository unavailable: %w", err)
		}
	}

	return err
}
