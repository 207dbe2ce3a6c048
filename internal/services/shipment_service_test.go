package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/repositories"
)

type stubShipmentRepo struct {
	insertFn func(context.Context, domain.Shipment) error
	updateFn func(context.Context, domain.Shipment, int64) (domain.Shipment, error)
	findFn   func(context.Context, string) (domain.Shipment, error)
	listFn   func(context.Context, repositories.ShipmentListFilter) (domain.CursorPage[domain.Shipment], error)
}

func (s *stubShipmentRepo) Insert(ctx context.Context, shipment domain.Shipment) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, shipment)
	}
	return nil
}

func (s *stubShipmentRepo) Update(ctx context.Context, shipment domain.Shipment, expectedVersion int64) (domain.Shipment, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, shipment, expectedVersion)
	}
	return shipment, nil
}

func (s *stubShipmentRepo) FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error) {
	if s.findFn != nil {
		return s.findFn(ctx, shipmentID)
	}
	return domain.Shipment{}, errors.New("not implemented")
}

func (s *stubShipmentRepo) List(ctx context.Context, filter repositories.ShipmentListFilter) (domain.CursorPage[domain.Shipment], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Shipment]{}, nil
}

func newShipmentServiceForTest(t *testing.T, deps ShipmentServiceDeps) ShipmentService {
	t.Helper()
	if deps.Shipments == nil {
		deps.Shipments = &stubShipmentRepo{}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{
			nextFn: func(context.Context, string, int64) (int64, error) { return 42, nil },
		}
	}
	if deps.Clock == nil {
		deps.Clock = fixedClock(fixedTestTime)
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "01TESTULID" }
	}
	svc, err := NewShipmentService(deps)
	if err != nil {
		t.Fatalf("NewShipmentService: %v", err)
	}
	return svc
}

func TestCreateShipmentDefaultsStatusAndTotals(t *testing.T) {
	var inserted domain.Shipment
	repo := &stubShipmentRepo{
		insertFn: func(_ context.Context, s domain.Shipment) error {
			inserted = s
			return nil
		},
	}
	svc := newShipmentServiceForTest(t, ShipmentServiceDeps{Shipments: repo})

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentCommand{
		CustomerRef:   "cus_1",
		Consignee:     domain.ContactBlock{Name: "Receiver Ltd"},
		Currency:      "usd",
		FreightAmount: 180,
		OtherCharges:  20,
		Items: []ShipmentItem{
			{Description: "Garments", Quantity: 10, UnitValue: 4.5},
		},
		ActorID: "adm_1",
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}

	if shipment.Status != "Pending" {
		t.Fatalf("expected default status Pending, got %q", shipment.Status)
	}
	if shipment.TotalAmount != 200 {
		t.Fatalf("expected total 200, got %v", shipment.TotalAmount)
	}
	if shipment.Currency != "USD" {
		t.Fatalf("expected normalised currency USD, got %q", shipment.Currency)
	}
	if shipment.TrackingCode != "FD-SHP-2026-000042" {
		t.Fatalf("unexpected tracking code %q", shipment.TrackingCode)
	}
	if inserted.ID != "shp_01TESTULID" {
		t.Fatalf("unexpected id %q", inserted.ID)
	}
}

func TestCreateShipmentValidatesItems(t *testing.T) {
	svc := newShipmentServiceForTest(t, ShipmentServiceDeps{})

	_, err := svc.CreateShipment(context.Background(), CreateShipmentCommand{
		CustomerRef: "cus_1",
		Consignee:   domain.ContactBlock{Name: "Receiver Ltd"},
		Items:       []ShipmentItem{{Description: "Parts", Quantity: 0}},
	})
	if !errors.Is(err, ErrShipmentInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUpdateShipmentRecomputesTotalAndBumpsVersion(t *testing.T) {
	repo := &stubShipmentRepo{
		findFn: func(context.Context, string) (domain.Shipment, error) {
			return domain.Shipment{
				ID:            "shp_1",
				FreightAmount: 100,
				OtherCharges:  10,
				TotalAmount:   110,
				Status:        "Pending",
				Version:       2,
			}, nil
		},
	}
	svc := newShipmentServiceForTest(t, ShipmentServiceDeps{Shipments: repo})

	freight := 150.0
	status := "In Transit"
	updated, err := svc.UpdateShipment(context.Background(), UpdateShipmentCommand{
		ShipmentID:      "shp_1",
		ExpectedVersion: 2,
		FreightAmount:   &freight,
		Status:          &status,
	})
	if err != nil {
		t.Fatalf("UpdateShipment: %v", err)
	}
	if updated.TotalAmount != 160 {
		t.Fatalf("expected recomputed total 160, got %v", updated.TotalAmount)
	}
	if updated.Status != "In Transit" {
		t.Fatalf("unexpected status %q", updated.Status)
	}
	if updated.Version != 3 {
		t.Fatalf("expected version 3, got %d", updated.Version)
	}
}

func TestUpdateShipmentStaleVersionConflicts(t *testing.T) {
	repo := &stubShipmentRepo{
		findFn: func(context.Context, string) (domain.Shipment, error) {
			return domain.Shipment{ID: "shp_1", Version: 7}, nil
		},
	}
	svc := newShipmentServiceForTest(t, ShipmentServiceDeps{Shipments: repo})

	_, err := svc.UpdateShipment(context.Background(), UpdateShipmentCommand{
		ShipmentID:      "shp_1",
		ExpectedVersion: 6,
	})
	if !errors.Is(err, ErrShipmentConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetShipmentMapsNotFound(t *testing.T) {
	repo := &stubShipmentRepo{
		findFn: func(context.Context, string) (domain.Shipment, error) {
			return domain.Shipment{}, notFoundRepoError{}
		},
	}
	svc := newShipmentServiceForTest(t, ShipmentServiceDeps{Shipments: repo})

	_, err := svc.GetShipment(context.Background(), "shp_missing")
	if !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
