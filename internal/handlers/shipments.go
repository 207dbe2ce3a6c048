package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/platform/httpx"
	"github.com/freightdesk/api/internal/repositories"
	"github.com/freightdesk/api/internal/services"
)

// ShipmentHandlers exposes courier export endpoints.
type ShipmentHandlers struct {
	shipments services.ShipmentService
	documents services.DocumentService
}

// NewShipmentHandlers constructs the shipment handler set.
func NewShipmentHandlers(shipments services.ShipmentService, documents services.DocumentService) *ShipmentHandlers {
	return &ShipmentHandlers{
		shipments: shipments,
		documents: documents,
	}
}

// Routes registers the shipment endpoints on the provided router group.
func (h *ShipmentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{shipmentID}", h.get)
	r.Put("/{shipmentID}", h.update)
	r.Get("/{shipmentID}/documents/label", h.renderLabel)
}

type shipmentCreateRequest struct {
	CustomerRef   string                `json:"customer_ref"`
	Shipper       contactPayload        `json:"shipper"`
	Consignee     contactPayload        `json:"consignee"`
	Boxes         []shipmentBoxPayload  `json:"boxes"`
	Items         []shipmentItemPayload `json:"items"`
	PaymentMethod string                `json:"payment_method"`
	Currency      string                `json:"currency"`
	FreightAmount float64               `json:"freight_amount"`
	OtherCharges  float64               `json:"other_charges"`
}

func (h *ShipmentHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req shipmentCreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	shipment, err := h.shipments.CreateShipment(ctx, services.CreateShipmentCommand{
		CustomerRef:   req.CustomerRef,
		Shipper:       contactFromPayload(req.Shipper),
		Consignee:     contactFromPayload(req.Consignee),
		Boxes:         boxesFromPayload(req.Boxes),
		Items:         itemsFromPayload(req.Items),
		PaymentMethod: req.PaymentMethod,
		Currency:      req.Currency,
		FreightAmount: req.FreightAmount,
		OtherCharges:  req.OtherCharges,
		ActorID:       actorID(ctx),
	})
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, "shipment created", buildShipmentPayload(shipment))
}

type shipmentListResponse struct {
	Shipments     []shipmentPayload `json:"shipments"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

func (h *ShipmentHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	paging, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := repositories.ShipmentListFilter{
		CustomerRef: strings.TrimSpace(query.Get("customer_ref")),
		Status:      strings.TrimSpace(query.Get("status")),
		DateRange: domain.RangeQuery[time.Time]{
			From: parseTimeParam(r, "from"),
			To:   parseTimeParam(r, "to"),
		},
		Pagination: paging,
	}

	page, err := h.shipments.ListShipments(ctx, filter)
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}

	payloads := make([]shipmentPayload, 0, len(page.Items))
	for _, shipment := range page.Items {
		payloads = append(payloads, buildShipmentPayload(shipment))
	}
	httpx.WriteJSON(w, http.StatusOK, "shipments retrieved", shipmentListResponse{
		Shipments:     payloads,
		NextPageToken: page.NextPageToken,
	})
}

func (h *ShipmentHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentID"))
	if shipmentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipment id is required", http.StatusBadRequest))
		return
	}

	shipment, err := h.shipments.GetShipment(ctx, shipmentID)
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "shipment retrieved", buildShipmentPayload(shipment))
}

type shipmentUpdateRequest struct {
	Shipper       *contactPayload        `json:"shipper"`
	Consignee     *contactPayload        `json:"consignee"`
	Boxes         *[]shipmentBoxPayload  `json:"boxes"`
	Items         *[]shipmentItemPayload `json:"items"`
	PaymentMethod *string                `json:"payment_method"`
	Currency      *string                `json:"currency"`
	FreightAmount *float64               `json:"freight_amount"`
	OtherCharges  *float64               `json:"other_charges"`
	Status        *string                `json:"status"`
	Version       int64                  `json:"version"`
}

func (h *ShipmentHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentID"))
	if shipmentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipment id is required", http.StatusBadRequest))
		return
	}

	var req shipmentUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateShipmentCommand{
		ShipmentID:      shipmentID,
		ExpectedVersion: req.Version,
		PaymentMethod:   req.PaymentMethod,
		Currency:        req.Currency,
		FreightAmount:   req.FreightAmount,
		OtherCharges:    req.OtherCharges,
		Status:          req.Status,
		ActorID:         actorID(ctx),
	}
	if req.Shipper != nil {
		shipper := contactFromPayload(*req.Shipper)
		cmd.Shipper = &shipper
	}
	if req.Consignee != nil {
		consignee := contactFromPayload(*req.Consignee)
		cmd.Consignee = &consignee
	}
	if req.Boxes != nil {
		cmd.Boxes = boxesFromPayload(*req.Boxes)
	}
	if req.Items != nil {
		cmd.Items = itemsFromPayload(*req.Items)
	}

	shipment, err := h.shipments.UpdateShipment(ctx, cmd)
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "shipment updated", buildShipmentPayload(shipment))
}

func (h *ShipmentHandlers) renderLabel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.documents == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "document service not available", http.StatusServiceUnavailable))
		return
	}

	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentID"))
	if shipmentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipment id is required", http.StatusBadRequest))
		return
	}

	doc, err := h.documents.RenderShipmentLabel(ctx, services.ShipmentLabelCommand{
		ShipmentID: shipmentID,
		ActorID:    actorID(ctx),
	})
	if err != nil {
		writeDocumentError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "label generated", buildDocumentPayload(doc))
}

func writeShipmentError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrShipmentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrShipmentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "shipment not found", http.StatusNotFound))
	case errors.Is(err, services.ErrShipmentConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("shipment_error", "shipment operation failed", http.StatusInternalServerError))
	}
}
