package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/platform/auth"
	"github.com/freightdesk/api/internal/platform/httpx"
	"github.com/freightdesk/api/internal/repositories"
	"github.com/freightdesk/api/internal/services"
)

// QuotationHandlers exposes the quotation lifecycle endpoints for one
// transport mode. The air and sea route groups share this implementation.
type QuotationHandlers struct {
	mode       domain.TransportMode
	quotations services.QuotationService
	documents  services.DocumentService
}

// NewQuotationHandlers constructs a quotation handler set scoped to a mode.
func NewQuotationHandlers(mode domain.TransportMode, quotations services.QuotationService, documents services.DocumentService) *QuotationHandlers {
	return &QuotationHandlers{
		mode:       mode,
		quotations: quotations,
		documents:  documents,
	}
}

// Routes registers the quotation endpoints on the provided router group.
func (h *QuotationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/by-number/{quoteNo}", h.getByNumber)
	r.Get("/{quotationID}", h.get)
	r.Put("/{quotationID}", h.update)
	r.Post("/{quotationID}:approve", h.approve)
	r.Post("/{quotationID}:reject", h.reject)
	r.Post("/{quotationID}:send-email", h.sendEmail)
	r.Get("/{quotationID}/pricing", h.pricing)
	r.Get("/{quotationID}/documents/{kind}", h.renderDocument)
}

type quotationWriteRequest struct {
	CustomerRef  string           `json:"customer_ref"`
	AgentRef     string           `json:"agent_ref"`
	Origin       string           `json:"origin"`
	Destination  string           `json:"destination"`
	ActualWeight float64          `json:"actual_weight"`
	Packages     []packagePayload `json:"packages"`
	Charges      []chargePayload  `json:"charges"`
	Notes        string           `json:"notes"`
	Version      int64            `json:"version"`
}

func (h *QuotationHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req quotationWriteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	quotation, err := h.quotations.CreateQuotation(ctx, services.CreateQuotationCommand{
		Mode:         h.mode,
		CustomerRef:  req.CustomerRef,
		AgentRef:     req.AgentRef,
		Origin:       req.Origin,
		Destination:  req.Destination,
		ActualWeight: req.ActualWeight,
		Packages:     packagesFromPayload(req.Packages),
		Charges:      chargesFromPayload(req.Charges),
		Notes:        req.Notes,
		ActorID:      actorID(ctx),
	})
	if err != nil {
		writeQuotationError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, "quotation created", buildQuotationPayload(quotation))
}

type quotationListResponse struct {
	Quotations    []quotationPayload `json:"quotations"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

func (h *QuotationHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	paging, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	mode := h.mode
	filter := repositories.QuotationListFilter{
		Mode:        &mode,
		CustomerRef: strings.TrimSpace(query.Get("customer_ref")),
		DateRange: domain.RangeQuery[time.Time]{
			From: parseTimeParam(r, "from"),
			To:   parseTimeParam(r, "to"),
		},
		Pagination: paging,
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			if status = strings.TrimSpace(status); status != "" {
				filter.Status = append(filter.Status, status)
			}
		}
	}

	page, err := h.quotations.ListQuotations(ctx, filter)
	if err != nil {
		writeQuotationError(ctx, w, err)
		return
	}

	payloads := make([]quotationPayload, 0, len(page.Items))
	for _, quotation := range page.Items {
		payloads = append(payloads, buildQuotationPayload(quotation))
	}
	httpx.WriteJSON(w, http.StatusOK, "quotations retrieved", quotationListResponse{
		Quotations:    payloads,
		NextPageToken: page.NextPageToken,
	})
}

func (h *QuotationHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quotationID := strings.TrimSpace(chi.URLParam(r, "quotationID"))
	if quotationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quotation id is required", http.StatusBadRequest))
		return
	}

	quotation, err := h.quotations.GetQuotation(ctx, quotationID)
	if err != nil {
		writeQuotationError(ctx, w, err)
		return
	}
	if quotation.Mode != h.mode {
		writeQuotationError(ctx, w, services.ErrQuotationNotFound)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "quotation retrieved", buildQuotationPayload(quotation))
}

func (h *QuotationHandlers) getByNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quoteNumber := strings.TrimSpace(chi.URLParam(r, "quoteNo"))
	if quoteNumber == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quote number is required", http.StatusBadRequest))
		return
	}

	quotation, err := h.quotations.GetQuotationByNumber(ctx, quoteNumber)
	if err != nil {
		writeQuotationError(ctx, w, err)
		return
	}
	if quotation.Mode != h.mode {
		writeQuotationError(ctx, w, services.ErrQuotationNotFound)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "quotation retrieved", buildQuotationPayload(quotation))
}

func (h *QuotationHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quotationID := strings.TrimSpace(chi.URLParam(r, "quotationID"))
	if quotationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quotation id is required", http.StatusBadRequest))
		return
	}

	var req quotationUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateQuotationCommand{
		QuotationID:     quotationID,
		ExpectedVersion: req.Version,
		CustomerRef:     req.CustomerRef,
		AgentRef:        req.AgentRef,
		Origin:          req.Origin,
		Destination:     req.Destination,
		ActualWeight:    req.ActualWeight,
		Notes:           req.Notes,
		ActorID:         actorID(ctx),
	}
	if req.Packages != nil {
		cmd.Packages = packagesFromPayload(*req.Packages)
	}
	if req.Charges != nil {
		cmd.Charges = chargesFromPayload(*req.Charges)
	}

	quotation, err := h.quotations.UpdateQuotation(ctx, cmd)
	if err != nil {
		writeQuotationError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "quotation updated", buildQuotationPayload(quotation))
}

type quotationUpdateRequest struct {
	CustomerRef  *string           `json:"customer_ref"`
	AgentRef     *string           `json:"agent_ref"`
	Origin       *string           `json:"origin"`
	Destination  *string           `json:"destination"`
	ActualWeight *float64          `json:"actual_weight"`
	Packages     *[]packagePayload `json:"packages"`
	Charges      *[]chargePayload  `json:"charges"`
	Notes        *string           `json:"notes"`
	Version      int64             `json:"version"`
}

type quotationStatusRequest struct {
	Version int64  `json:"version"`
	Reason  string `json:"reason"`
}

func (h *QuotationHandlers) approve(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.QuotationStatusApproved, "quotation approved")
}

func (h *QuotationHandlers) reject(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.QuotationStatusRejected, "quotation rejected")
}

func (h *QuotationHandlers) setStatus(w http.ResponseWriter, r *http.Request, target domain.QuotationStatus, message string) {
	ctx := r.Context()
	quotationID := strings.TrimSpace(chi.URLParam(r, "quotationID"))
	if quotationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quotation id is required", http.StatusBadRequest))
		return
	}

	var req quotationStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	quotation, err := h.quotations.SetStatus(ctx, services.QuotationStatusCommand{
		QuotationID:     quotationID,
		ExpectedVersion: req.Version,
		TargetStatus:    target,
		Reason:          req.Reason,
		ActorID:         actorID(ctx),
	})
	if err != nil {
		writeQuotationError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, message, buildQuotationPayload(quotation))
}

type sendEmailRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Version   int64  `json:"version"`
}

func (h *QuotationHandlers) sendEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quotationID := strings.TrimSpace(chi.URLParam(r, "quotationID"))
	if quotationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quotation id is required", http.StatusBadRequest))
		return
	}

	var req sendEmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	quotation, err := h.quotations.SendEmail(ctx, services.SendQuotationEmailCommand{
		QuotationID:     quotationID,
		ExpectedVersion: req.Version,
		Recipient:       req.Recipient,
		Message:         req.Message,
		ActorID:         actorID(ctx),
	})
	if err != nil {
		writeQuotationError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "quotation emailed", buildQuotationPayload(quotation))
}

type pricingResponse struct {
	VolumetricWeight    float64             `json:"volumetric_weight"`
	ChargeableWeight    float64             `json:"chargeable_weight"`
	FreightLines        []chargeLinePayload `json:"freight_lines"`
	FreightSubtotal     float64             `json:"freight_subtotal"`
	SurchargeAmount     float64             `json:"surcharge_amount"`
	SurchargeVisible    bool                `json:"surcharge_visible"`
	FreightTotal        float64             `json:"freight_total"`
	DestinationLines    []chargeLinePayload `json:"destination_lines"`
	DestinationSubtotal float64             `json:"destination_subtotal"`
	ClearanceLines      []chargeLinePayload `json:"clearance_lines"`
	ClearanceSubtotal   float64             `json:"clearance_subtotal"`
	Subtotal            float64             `json:"subtotal"`
	TaxAmount           float64             `json:"tax_amount"`
	GrandTotal          float64             `json:"grand_total"`
}

type chargeLinePayload struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Rate   float64 `json:"rate,omitempty"`
	Amount float64 `json:"amount"`
}

func (h *QuotationHandlers) pricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quotationID := strings.TrimSpace(chi.URLParam(r, "quotationID"))
	if quotationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quotation id is required", http.StatusBadRequest))
		return
	}

	breakdown, err := h.quotations.PriceQuotation(ctx, quotationID)
	if err != nil {
		writeQuotationError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "pricing calculated", buildPricingPayload(breakdown))
}

func buildPricingPayload(breakdown domain.PricingBreakdown) pricingResponse {
	return pricingResponse{
		VolumetricWeight:    breakdown.VolumetricWeight,
		ChargeableWeight:    breakdown.ChargeableWeight,
		FreightLines:        buildChargeLines(breakdown.FreightLines),
		FreightSubtotal:     breakdown.FreightSubtotal,
		SurchargeAmount:     breakdown.SurchargeAmount,
		SurchargeVisible:    breakdown.SurchargeVisible,
		FreightTotal:        breakdown.FreightTotal,
		DestinationLines:    buildChargeLines(breakdown.DestinationLines),
		DestinationSubtotal: breakdown.DestinationSubtotal,
		ClearanceLines:      buildChargeLines(breakdown.ClearanceLines),
		ClearanceSubtotal:   breakdown.ClearanceSubtotal,
		Subtotal:            breakdown.Subtotal,
		TaxAmount:           breakdown.TaxAmount,
		GrandTotal:          breakdown.GrandTotal,
	}
}

func buildChargeLines(lines []domain.ChargeLine) []chargeLinePayload {
	out := make([]chargeLinePayload, 0, len(lines))
	for _, line := range lines {
		out = append(out, chargeLinePayload{
			Name:   line.Name,
			Type:   string(line.Type),
			Rate:   line.Rate,
			Amount: line.Amount,
		})
	}
	return out
}

func (h *QuotationHandlers) renderDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.documents == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "document service not available", http.StatusServiceUnavailable))
		return
	}

	quotationID := strings.TrimSpace(chi.URLParam(r, "quotationID"))
	kind := strings.TrimSpace(chi.URLParam(r, "kind"))
	if quotationID == "" || kind == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quotation id and document kind are required", http.StatusBadRequest))
		return
	}

	doc, err := h.documents.RenderQuotationDocument(ctx, services.QuotationDocumentCommand{
		QuotationID: quotationID,
		Kind:        domain.DocumentKind(kind),
		ActorID:     actorID(ctx),
	})
	if err != nil {
		writeDocumentError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "document generated", buildDocumentPayload(doc))
}

func actorID(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return identity.AdminID
}

func writeQuotationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrQuotationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrQuotationNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "quotation not found", http.StatusNotFound))
	case errors.Is(err, services.ErrQuotationConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrQuotationEmailFailed):
		httpx.WriteError(ctx, w, httpx.NewError("email_failed", "quotation email could not be delivered", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("quotation_error", "quotation operation failed", http.StatusInternalServerError))
	}
}

func writeDocumentError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDocumentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDocumentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "document subject not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDocumentRenderFailed):
		httpx.WriteError(ctx, w, httpx.NewError("render_failed", "document rendering failed", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("document_error", "document operation failed", http.StatusInternalServerError))
	}
}
