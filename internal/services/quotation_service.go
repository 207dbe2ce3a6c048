package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/repositories"
)

const (
	quotationEventCreated       = "quotation.created"
	quotationEventUpdated       = "quotation.updated"
	quotationEventStatusChanged = "quotation.status.changed"
	quotationEventEmailSent     = "quotation.email.sent"

	quotationIDPrefix = "quo_"
)

var (
	// ErrQuotationInvalidInput signals the caller provided invalid data.
	ErrQuotationInvalidInput = errors.New("quotation: invalid input")
	// ErrQuotationNotFound indicates the quotation could not be located.
	ErrQuotationNotFound = errors.New("quotation: not found")
	// ErrQuotationConflict indicates a stale version or a duplicate write.
	ErrQuotationConflict = errors.New("quotation: conflict")
	// ErrQuotationEmailFailed indicates the customer email could not be delivered.
	ErrQuotationEmailFailed = errors.New("quotation: email delivery failed")
)

var quotationStatuses = map[domain.QuotationStatus]bool{
	domain.QuotationStatusDraft:    true,
	domain.QuotationStatusPending:  true,
	domain.QuotationStatusApproved: true,
	domain.QuotationStatusRejected: true,
}

var chargeTypes = map[domain.ChargeType]bool{
	domain.ChargeTypeFreight:     true,
	domain.ChargeTypeDestination: true,
	domain.ChargeTypeClearance:   true,
}

// QuotationPricer computes the charge breakdown for a quotation.
type QuotationPricer interface {
	Price(q domain.Quotation) domain.PricingBreakdown
}

// QuotationMailer delivers quotation summary emails to customers.
type QuotationMailer interface {
	SendQuotationEmail(ctx context.Context, email QuotationEmail) error
}

// QuotationEmail is the rendered payload handed to the mailer.
type QuotationEmail struct {
	Recipient string
	Message   string
	Quotation Quotation
	Breakdown PricingBreakdown
}

// QuotationEventPublisher publishes quotation domain events for downstream consumers.
type QuotationEventPublisher interface {
	PublishQuotationEvent(ctx context.Context, event QuotationEvent) error
}

// QuotationEvent captures metadata for emitted quotation domain events.
type QuotationEvent struct {
	Type           string
	QuotationID    string
	QuoteNumber    string
	Mode           string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// QuotationServiceDeps bundles collaborators required to construct the quotation service.
type QuotationServiceDeps struct {
	Quotations  repositories.QuotationRepository
	Counters    repositories.CounterRepository
	Pricer      QuotationPricer
	Mailer      QuotationMailer
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Events      QuotationEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type quotationService struct {
	quotations repositories.QuotationRepository
	counters   repositories.CounterRepository
	pricer     QuotationPricer
	mailer     QuotationMailer
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	events     QuotationEventPublisher
	logger     func(context.Context, string, map[string]any)
}

// NewQuotationService wires dependencies into a concrete QuotationService implementation.
func NewQuotationService(deps QuotationServiceDeps) (QuotationService, error) {
	if deps.Quotations == nil {
		return nil, errors.New("quotation service: quotation repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("quotation service: counter repository is required")
	}

	pricer := deps.Pricer
	if pricer == nil {
		pricer = NewQuotationPricingEngine()
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

	return &quotationService{
		quotations: deps.Quotations,
		counters:   deps.Counters,
		pricer:     pricer,
		mailer:     deps.Mailer,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

func (s *quotationService) CreateQuotation(ctx context.Context, cmd CreateQuotationCommand) (Quotation, error) {
	mode := domain.TransportMode(strings.ToLower(strings.TrimSpace(string(cmd.Mode))))
	if mode != domain.TransportModeAir && mode != domain.TransportModeSea {
		return Quotation{}, fmt.Errorf("%w: mode must be air or sea", ErrQuotationInvalidInput)
	}
	customerRef := strings.TrimSpace(cmd.CustomerRef)
	if customerRef == "" {
		return Quotation{}, fmt.Errorf("%w: customer reference is required", ErrQuotationInvalidInput)
	}
	if err := validateCharges(cmd.Charges); err != nil {
		return Quotation{}, err
	}

	now := s.now()

	quotation := Quotation{
		ID:           quotationIDPrefix + s.newID(),
		Mode:         mode,
		CustomerRef:  customerRef,
		AgentRef:     strings.TrimSpace(cmd.AgentRef),
		Origin:       strings.TrimSpace(cmd.Origin),
		Destination:  strings.TrimSpace(cmd.Destination),
		ActualWeight: cmd.ActualWeight,
		Packages:     clonePackages(cmd.Packages),
		Charges:      cloneCharges(cmd.Charges),
		Status:       domain.QuotationStatusDraft,
		Notes:        strings.TrimSpace(cmd.Notes),
		Version:      1,
		CreatedBy:    strings.TrimSpace(cmd.ActorID),
		UpdatedBy:    strings.TrimSpace(cmd.ActorID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	number, err := s.generateQuoteNumber(ctx, mode, now)
	if err != nil {
		return Quotation{}, err
	}
	quotation.QuoteNumber = number

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.quotations.Insert(txCtx, quotation); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}

	s.publishEvent(ctx, QuotationEvent{
		Type:          quotationEventCreated,
		QuotationID:   quotation.ID,
		QuoteNumber:   quotation.QuoteNumber,
		Mode:          string(quotation.Mode),
		CurrentStatus: string(quotation.Status),
		ActorID:       cmd.ActorID,
		OccurredAt:    now,
	})

	return quotation, nil
}

func (s *quotationService) GetQuotation(ctx context.Context, quotationID string) (Quotation, error) {
	quotationID = strings.TrimSpace(quotationID)
	if quotationID == "" {
		return Quotation{}, fmt.Errorf("%w: quotation id is required", ErrQuotationInvalidInput)
	}

	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return Quotation{}, s.mapRepositoryError(err)
	}
	return quotation, nil
}

func (s *quotationService) GetQuotationByNumber(ctx context.Context, quoteNumber string) (Quotation, error) {
	quoteNumber = strings.TrimSpace(quoteNumber)
	if quoteNumber == "" {
		return Quotation{}, fmt.Errorf("%w: quote number is required", ErrQuotationInvalidInput)
	}

	quotation, err := s.quotations.FindByQuoteNumber(ctx, quoteNumber)
	if err != nil {
		return Quotation{}, s.mapRepositoryError(err)
	}
	return quotation, nil
}

func (s *quotationService) ListQuotations(ctx context.Context, filter QuotationListFilter) (domain.CursorPage[Quotation], error) {
	page, err := s.quotations.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Quotation]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *quotationService) UpdateQuotation(ctx context.Context, cmd UpdateQuotationCommand) (Quotation, error) {
	quotationID := strings.TrimSpace(cmd.QuotationID)
	if quotationID == "" {
		return Quotation{}, fmt.Errorf("%w: quotation id is required", ErrQuotationInvalidInput)
	}
	if cmd.Charges != nil {
		if err := validateCharges(cmd.Charges); err != nil {
			return Quotation{}, err
		}
	}

	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return Quotation{}, s.mapRepositoryError(err)
	}
	if cmd.ExpectedVersion != 0 && quotation.Version != cmd.ExpectedVersion {
		return Quotation{}, fmt.Errorf("%w: expected version %d but was %d", ErrQuotationConflict, cmd.ExpectedVersion, quotation.Version)
	}

	if cmd.CustomerRef != nil {
		trimmed := strings.TrimSpace(*cmd.CustomerRef)
		if trimmed == "" {
			return Quotation{}, fmt.Errorf("%w: customer reference cannot be cleared", ErrQuotationInvalidInput)
		}
		quotation.CustomerRef = trimmed
	}
	if cmd.AgentRef != nil {
		quotation.AgentRef = strings.TrimSpace(*cmd.AgentRef)
	}
	if cmd.Origin != nil {
		quotation.Origin = strings.TrimSpace(*cmd.Origin)
	}
	if cmd.Destination != nil {
		quotation.Destination = strings.TrimSpace(*cmd.Destination)
	}
	if cmd.ActualWeight != nil {
		quotation.ActualWeight = *cmd.ActualWeight
	}
	if cmd.Packages != nil {
		quotation.Packages = clonePackages(cmd.Packages)
	}
	if cmd.Charges != nil {
		quotation.Charges = cloneCharges(cmd.Charges)
	}
	if cmd.Notes != nil {
		quotation.Notes = strings.TrimSpace(*cmd.Notes)
	}

	now := s.now()
	expected := quotation.Version
	quotation.Version = expected + 1
	quotation.UpdatedAt = now
	if actor := strings.TrimSpace(cmd.ActorID); actor != "" {
		quotation.UpdatedBy = actor
	}

	stored, err := s.saveQuotation(ctx, quotation, expected)
	if err != nil {
		return Quotation{}, err
	}

	s.publishEvent(ctx, QuotationEvent{
		Type:          quotationEventUpdated,
		QuotationID:   stored.ID,
		QuoteNumber:   stored.QuoteNumber,
		Mode:          string(stored.Mode),
		CurrentStatus: string(stored.Status),
		ActorID:       cmd.ActorID,
		OccurredAt:    now,
	})

	return stored, nil
}

func (s *quotationService) SetStatus(ctx context.Context, cmd QuotationStatusCommand) (Quotation, error) {
	quotationID := strings.TrimSpace(cmd.QuotationID)
	if quotationID == "" {
		return Quotation{}, fmt.Errorf("%w: quotation id is required", ErrQuotationInvalidInput)
	}
	target := domain.QuotationStatus(strings.ToLower(strings.TrimSpace(string(cmd.TargetStatus))))
	if !quotationStatuses[target] {
		return Quotation{}, fmt.Errorf("%w: unknown status %q", ErrQuotationInvalidInput, cmd.TargetStatus)
	}

	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return Quotation{}, s.mapRepositoryError(err)
	}
	if cmd.ExpectedVersion != 0 && quotation.Version != cmd.ExpectedVersion {
		return Quotation{}, fmt.Errorf("%w: expected version %d but was %d", ErrQuotationConflict, cmd.ExpectedVersion, quotation.Version)
	}

	if quotation.Status == target {
		return quotation, nil
	}

	now := s.now()
	prevStatus := quotation.Status
	expected := quotation.Version
	quotation.Status = target
	quotation.Version = expected + 1
	quotation.UpdatedAt = now
	if actor := strings.TrimSpace(cmd.ActorID); actor != "" {
		quotation.UpdatedBy = actor
	}

	stored, err := s.saveQuotation(ctx, quotation, expected)
	if err != nil {
		return Quotation{}, err
	}

	metadata := map[string]any{}
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		metadata["reason"] = reason
	}

	s.publishEvent(ctx, QuotationEvent{
		Type:           quotationEventStatusChanged,
		QuotationID:    stored.ID,
		QuoteNumber:    stored.QuoteNumber,
		Mode:           string(stored.Mode),
		PreviousStatus: string(prevStatus),
		CurrentStatus:  string(stored.Status),
		ActorID:        cmd.ActorID,
		OccurredAt:     now,
		Metadata:       metadata,
	})

	return stored, nil
}

func (s *quotationService) SendEmail(ctx context.Context, cmd SendQuotationEmailCommand) (Quotation, error) {
	quotationID := strings.TrimSpace(cmd.QuotationID)
	if quotationID == "" {
		return Quotation{}, fmt.Errorf("%w: quotation id is required", ErrQuotationInvalidInput)
	}
	recipient := strings.TrimSpace(cmd.Recipient)
	if recipient == "" {
		return Quotation{}, fmt.Errorf("%w: recipient is required", ErrQuotationInvalidInput)
	}
	if s.mailer == nil {
		return Quotation{}, errors.New("quotation service: mailer not configured")
	}

	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return Quotation{}, s.mapRepositoryError(err)
	}
	if cmd.ExpectedVersion != 0 && quotation.Version != cmd.ExpectedVersion {
		return Quotation{}, fmt.Errorf("%w: expected version %d but was %d", ErrQuotationConflict, cmd.ExpectedVersion, quotation.Version)
	}

	breakdown := s.pricer.Price(quotation)

	// Delivery happens before any state change so a failed send leaves the
	// quotation untouched.
	if err := s.mailer.SendQuotationEmail(ctx, QuotationEmail{
		Recipient: recipient,
		Message:   strings.TrimSpace(cmd.Message),
		Quotation: quotation,
		Breakdown: breakdown,
	}); err != nil {
		return Quotation{}, fmt.Errorf("%w: %v", ErrQuotationEmailFailed, err)
	}

	now := s.now()
	prevStatus := quotation.Status
	expected := quotation.Version
	if quotation.Status == domain.QuotationStatusDraft {
		quotation.Status = domain.QuotationStatusPending
	}
	quotation.EmailedAt = &now
	quotation.Version = expected + 1
	quotation.UpdatedAt = now
	if actor := strings.TrimSpace(cmd.ActorID); actor != "" {
		quotation.UpdatedBy = actor
	}

	stored, err := s.saveQuotation(ctx, quotation, expected)
	if err != nil {
		return Quotation{}, err
	}

	s.publishEvent(ctx, QuotationEvent{
		Type:           quotationEventEmailSent,
		QuotationID:    stored.ID,
		QuoteNumber:    stored.QuoteNumber,
		Mode:           string(stored.Mode),
		PreviousStatus: string(prevStatus),
		CurrentStatus:  string(stored.Status),
		ActorID:        cmd.ActorID,
		OccurredAt:     now,
		Metadata: map[string]any{
			"recipient": recipient,
		},
	})

	return stored, nil
}

func (s *quotationService) PriceQuotation(ctx context.Context, quotationID string) (PricingBreakdown, error) {
	quotation, err := s.GetQuotation(ctx, quotationID)
	if err != nil {
		return PricingBreakdown{}, err
	}
	return s.pricer.Price(quotation), nil
}

func (s *quotationService) saveQuotation(ctx context.Context, quotation Quotation, expectedVersion int64) (Quotation, error) {
	var stored Quotation
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		updated, err := s.quotations.Update(txCtx, quotation, expectedVersion)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		stored = updated
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}
	return stored, nil
}

func (s *quotationService) generateQuoteNumber(ctx context.Context, mode domain.TransportMode, now time.Time) (string, error) {
	counterID := "quotations." + string(mode)
	seq, err := s.counters.Next(ctx, counterID, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("FD-%s-%04d-%06d", strings.ToUpper(string(mode)), now.Year(), seq), nil
}

func (s *quotationService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrQuotationNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrQuotationConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("quotation: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *quotationService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *quotationService) now() time.Time {
	return s.clock()
}

func (s *quotationService) publishEvent(ctx context.Context, event QuotationEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishQuotationEvent(ctx, event); err != nil {
		s.logger(ctx, "quotation.event.publish.failed", map[string]any{
			"type":      event.Type,
			"quotation": event.QuotationID,
			"error":     err.Error(),
			"status":    event.CurrentStatus,
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func validateCharges(charges []domain.Charge) error {
	for i, charge := range charges {
		if strings.TrimSpace(charge.Name) == "" {
			return fmt.Errorf("%w: charge %d is missing a name", ErrQuotationInvalidInput, i)
		}
		if !chargeTypes[charge.Type] {
			return fmt.Errorf("%w: charge %q has unknown type %q", ErrQuotationInvalidInput, charge.Name, charge.Type)
		}
	}
	return nil
}

func clonePackages(packages []domain.Package) []domain.Package {
	if packages == nil {
		return nil
	}
	cloned := make([]domain.Package, len(packages))
	copy(cloned, packages)
	return cloned
}

func cloneCharges(charges []domain.Charge) []domain.Charge {
	if charges == nil {
		return nil
	}
	cloned := make([]domain.Charge, len(charges))
	copy(cloned, charges)
	return cloned
}
