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

const (
	shipmentIDPrefix      = "shp_"
	defaultShipmentStatus = "Pending"
)

var (
	// ErrShipmentInvalidInput signals the caller provided invalid data.
	ErrShipmentInvalidInput = errors.New("shipment: invalid input")
	// ErrShipmentNotFound indicates the shipment could not be located.
	ErrShipmentNotFound = errors.New("shipment: not found")
	// ErrShipmentConflict indicates a stale version or a duplicate write.
	ErrShipmentConflict = errors.New("shipment: conflict")
)

// ShipmentServiceDeps bundles collaborators required to construct the shipment service.
type ShipmentServiceDeps struct {
	Shipments   repositories.ShipmentRepository
	Counters    repositories.CounterRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type shipmentService struct {
	shipments  repositories.ShipmentRepository
	counters   repositories.CounterRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewShipmentService wires dependencies into a concrete ShipmentService implementation.
func NewShipmentService(deps ShipmentServiceDeps) (ShipmentService, error) {
	if deps.Shipments == nil {
		return nil, errors.New("shipment service: shipment repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("shipment service: counter repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
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

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &shipmentService{
		shipments:  deps.Shipments,
		counters:   deps.Counters,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *shipmentService) CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (Shipment, error) {
	customerRef := strings.TrimSpace(cmd.CustomerRef)
	if customerRef == "" {
		return Shipment{}, fmt.Errorf("%w: customer reference is required", ErrShipmentInvalidInput)
	}
	if strings.TrimSpace(cmd.Consignee.Name) == "" {
		return Shipment{}, fmt.Errorf("%w: consignee name is required", ErrShipmentInvalidInput)
	}
	if err := validateShipmentItems(cmd.Items); err != nil {
		return Shipment{}, err
	}

	now := s.now()

	shipment := Shipment{
		ID:            shipmentIDPrefix + s.newID(),
		CustomerRef:   customerRef,
		Shipper:       cmd.Shipper,
		Consignee:     cmd.Consignee,
		Boxes:         cloneBoxes(cmd.Boxes),
		Items:         cloneItems(cmd.Items),
		PaymentMethod: strings.TrimSpace(cmd.PaymentMethod),
		Currency:      strings.ToUpper(strings.TrimSpace(cmd.Currency)),
		FreightAmount: cmd.FreightAmount,
		OtherCharges:  cmd.OtherCharges,
		TotalAmount:   cmd.FreightAmount + cmd.OtherCharges,
		Status:        defaultShipmentStatus,
		Version:       1,
		CreatedBy:     strings.TrimSpace(cmd.ActorID),
		UpdatedBy:     strings.TrimSpace(cmd.ActorID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	code, err := s.generateTrackingCode(ctx, now)
	if err != nil {
		return Shipment{}, err
	}
	shipment.TrackingCode = code

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.shipments.Insert(txCtx, shipment); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Shipment{}, err
	}

	return shipment, nil
}

func (s *shipmentService) GetShipment(ctx context.Context, shipmentID string) (Shipment, error) {
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return Shipment{}, fmt.Errorf("%w: shipment id is required", ErrShipmentInvalidInput)
	}

	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		return Shipment{}, s.mapRepositoryError(err)
	}
	return shipment, nil
}

func (s *shipmentService) ListShipments(ctx context.Context, filter ShipmentListFilter) (domain.CursorPage[Shipment], error) {
	page, err := s.shipments.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Shipment]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *shipmentService) UpdateShipment(ctx context.Context, cmd UpdateShipmentCommand) (Shipment, error) {
	shipmentID := strings.TrimSpace(cmd.ShipmentID)
	if shipmentID == "" {
		return Shipment{}, fmt.Errorf("%w: shipment id is required", ErrShipmentInvalidInput)
	}
	if cmd.Items != nil {
		if err := validateShipmentItems(cmd.Items); err != nil {
			return Shipment{}, err
		}
	}

	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		return Shipment{}, s.mapRepositoryError(err)
	}
	if cmd.ExpectedVersion != 0 && shipment.Version != cmd.ExpectedVersion {
		return Shipment{}, fmt.Errorf("%w: expected version %d but was %d", ErrShipmentConflict, cmd.ExpectedVersion, shipment.Version)
	}

	if cmd.Shipper != nil {
		shipment.Shipper = *cmd.Shipper
	}
	if cmd.Consignee != nil {
		if strings.TrimSpace(cmd.Consignee.Name) == "" {
			return Shipment{}, fmt.Errorf("%w: consignee name is required", ErrShipmentInvalidInput)
		}
		shipment.Consignee = *cmd.Consignee
	}
	if cmd.Boxes != nil {
		shipment.Boxes = cloneBoxes(cmd.Boxes)
	}
	if cmd.Items != nil {
		shipment.Items = cloneItems(cmd.Items)
	}
	if cmd.PaymentMethod != nil {
		shipment.PaymentMethod = strings.TrimSpace(*cmd.PaymentMethod)
	}
	if cmd.Currency != nil {
		shipment.Currency = strings.ToUpper(strings.TrimSpace(*cmd.Currency))
	}
	if cmd.FreightAmount != nil {
		shipment.FreightAmount = *cmd.FreightAmount
	}
	if cmd.OtherCharges != nil {
		shipment.OtherCharges = *cmd.OtherCharges
	}
	shipment.TotalAmount = shipment.FreightAmount + shipment.OtherCharges
	if cmd.Status != nil {
		status := strings.TrimSpace(*cmd.Status)
		if status == "" {
			status = defaultShipmentStatus
		}
		shipment.Status = status
	}

	now := s.now()
	expected := shipment.Version
	shipment.Version = expected + 1
	shipment.UpdatedAt = now
	if actor := strings.TrimSpace(cmd.ActorID); actor != "" {
		shipment.UpdatedBy = actor
	}

	var stored Shipment
	err = s.runInTx(ctx, func(txCtx context.Context) error {
		updated, err := s.shipments.Update(txCtx, shipment, expected)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		stored = updated
		return nil
	})
	if err != nil {
		return Shipment{}, err
	}

	return stored, nil
}

func (s *shipmentService) generateTrackingCode(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "shipments", 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("FD-SHP-%04d-%06d", now.Year(), seq), nil
}

func (s *shipmentService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrShipmentNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrShipmentConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("shipment: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *shipmentService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *shipmentService) now() time.Time {
	return s.clock()
}

func validateShipmentItems(items []domain.ShipmentItem) error {
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d is missing a description", ErrShipmentInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %q quantity must be positive", ErrShipmentInvalidInput, item.Description)
		}
	}
	return nil
}

func cloneBoxes(boxes []domain.ShipmentBox) []domain.ShipmentBox {
	if boxes == nil {
		return nil
	}
	cloned := make([]domain.ShipmentBox, len(boxes))
	copy(cloned, boxes)
	return cloned
}

func cloneItems(items []domain.ShipmentItem) []domain.ShipmentItem {
	if items == nil {
		return nil
	}
	cloned := make([]domain.ShipmentItem, len(items))
	copy(cloned, items)
	return cloned
}
