package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/repositories"
)

type stubCustomerRepo struct {
	insertFn func(context.Context, domain.Customer) error
	updateFn func(context.Context, domain.Customer, int64) (domain.Customer, error)
	findFn   func(context.Context, string) (domain.Customer, error)
	listFn   func(context.Context, repositories.CustomerListFilter) (domain.CursorPage[domain.Customer], error)
}

func (s *stubCustomerRepo) Insert(ctx context.Context, customer domain.Customer) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, customer)
	}
	return nil
}

func (s *stubCustomerRepo) Update(ctx context.Context, customer domain.Customer, expectedVersion int64) (domain.Customer, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, customer, expectedVersion)
	}
	return customer, nil
}

func (s *stubCustomerRepo) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if s.findFn != nil {
		return s.findFn(ctx, customerID)
	}
	return domain.Customer{}, errors.New("not implemented")
}

func (s *stubCustomerRepo) List(ctx context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[domain.Customer], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Customer]{}, nil
}

func newCustomerServiceForTest(t *testing.T, repo repositories.CustomerRepository) CustomerService {
	t.Helper()
	if repo == nil {
		repo = &stubCustomerRepo{}
	}
	svc, err := NewCustomerService(CustomerServiceDeps{
		Customers:   repo,
		Clock:       fixedClock(fixedTestTime),
		IDGenerator: func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("NewCustomerService: %v", err)
	}
	return svc
}

func TestCreateCustomerNormalisesFields(t *testing.T) {
	var inserted domain.Customer
	repo := &stubCustomerRepo{
		insertFn: func(_ context.Context, c domain.Customer) error {
			inserted = c
			return nil
		},
	}
	svc := newCustomerServiceForTest(t, repo)

	customer, err := svc.CreateCustomer(context.Background(), CreateCustomerCommand{
		Name:  "  Acme Exports  ",
		Email: "Ops@Example.COM",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if customer.Name != "Acme Exports" {
		t.Fatalf("unexpected name %q", customer.Name)
	}
	if customer.Email != "ops@example.com" {
		t.Fatalf("unexpected email %q", customer.Email)
	}
	if customer.Version != 1 {
		t.Fatalf("expected version 1, got %d", customer.Version)
	}
	if inserted.ID != "cus_01TESTULID" {
		t.Fatalf("unexpected id %q", inserted.ID)
	}
}

func TestCreateCustomerRequiresName(t *testing.T) {
	svc := newCustomerServiceForTest(t, nil)

	_, err := svc.CreateCustomer(context.Background(), CreateCustomerCommand{Name: "   "})
	if !errors.Is(err, ErrCustomerInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUpdateCustomerStaleVersionConflicts(t *testing.T) {
	repo := &stubCustomerRepo{
		findFn: func(context.Context, string) (domain.Customer, error) {
			return domain.Customer{ID: "cus_1", Name: "Acme", Version: 3}, nil
		},
	}
	svc := newCustomerServiceForTest(t, repo)

	_, err := svc.UpdateCustomer(context.Background(), UpdateCustomerCommand{
		CustomerID:      "cus_1",
		ExpectedVersion: 2,
	})
	if !errors.Is(err, ErrCustomerConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateCustomerAppliesPatch(t *testing.T) {
	repo := &stubCustomerRepo{
		findFn: func(context.Context, string) (domain.Customer, error) {
			return domain.Customer{ID: "cus_1", Name: "Acme", Country: "IN", Version: 1}, nil
		},
	}
	svc := newCustomerServiceForTest(t, repo)

	phone := "+91 98x"
	updated, err := svc.UpdateCustomer(context.Background(), UpdateCustomerCommand{
		CustomerID:      "cus_1",
		ExpectedVersion: 1,
		Phone:           &phone,
	})
	if err != nil {
		t.Fatalf("UpdateCustomer: %v", err)
	}
	if updated.Phone != "+91 98x" {
		t.Fatalf("unexpected phone %q", updated.Phone)
	}
	if updated.Country != "IN" {
		t.Fatalf("expected untouched country, got %q", updated.Country)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}
}

func TestGetCustomerMapsNotFound(t *testing.T) {
	repo := &stubCustomerRepo{
		findFn: func(context.Context, string) (domain.Customer, error) {
			return domain.Customer{}, notFoundRepoError{}
		},
	}
	svc := newCustomerServiceForTest(t, repo)

	_, err := svc.GetCustomer(context.Background(), "cus_missing")
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
