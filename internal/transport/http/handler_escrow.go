package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ans/internal/escrow"
	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
	"ans/pkg/platform/httputil"
	"ans/pkg/requestcontext"
)

// EscrowHandler wires escrow endpoints to the escrow service.
type EscrowHandler struct {
	service *escrow.Service
	logger  *slog.Logger
}

func NewEscrowHandler(service *escrow.Service, logger *slog.Logger) *EscrowHandler {
	return &EscrowHandler{service: service, logger: logger}
}

// Register mounts escrow endpoints on the router.
func (h *EscrowHandler) Register(r chi.Router) {
	r.Post("/escrows", h.HandleCreate)
	r.Get("/escrows/{id}", h.HandleGet)
	r.Post("/escrows/{id}/transition", h.HandleTransition)
	r.Get("/wallets/{wallet}/escrows", h.HandleListByWallet)
}

type createEscrowRequest struct {
	BuyerWallet    string `json:"buyer_wallet"`
	SellerAgent    string `json:"seller_agent"`
	Amount         string `json:"amount"`
	ServiceDetails string `json:"service_details"`
	// TTL is a Go duration string ("24h"); empty selects the default.
	TTL string `json:"ttl,omitempty"`
}

type escrowResponse struct {
	ID             string `json:"id"`
	BuyerWallet    string `json:"buyer_wallet"`
	SellerWallet   string `json:"seller_wallet,omitempty"`
	SellerAgent    string `json:"seller_agent"`
	Amount         string `json:"amount"`
	Status         string `json:"status"`
	ServiceDetails string `json:"service_details,omitempty"`
	CreatedAt      string `json:"created_at"`
	ExpiresAt      string `json:"expires_at"`
}

func fromEscrow(e *escrow.Escrow) escrowResponse {
	return escrowResponse{
		ID:             e.ID.String(),
		BuyerWallet:    e.BuyerWallet.String(),
		SellerWallet:   e.SellerWallet.String(),
		SellerAgent:    e.SellerAgent.String(),
		Amount:         e.Amount.String(),
		Status:         string(e.Status),
		ServiceDetails: e.ServiceDetails,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		ExpiresAt:      e.ExpiresAt.Format(time.RFC3339),
	}
}

// HandleCreate handles POST /escrows requests.
func (h *EscrowHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[createEscrowRequest](w, r)
	if !ok {
		return
	}
	buyer, err := domain.ParseWalletAddress(req.BuyerWallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var ttl time.Duration
	if req.TTL != "" {
		if ttl, err = time.ParseDuration(req.TTL); err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid ttl"))
			return
		}
	}

	e, err := h.service.Create(ctx, escrow.CreateRequest{
		Buyer:          buyer,
		SellerAgent:    req.SellerAgent,
		Amount:         amount,
		ServiceDetails: req.ServiceDetails,
		TTL:            ttl,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "escrow creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"buyer", buyer.Canonical(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromEscrow(e))
}

// HandleGet handles GET /escrows/{id} requests.
func (h *EscrowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEscrowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEscrow(e))
}

type transitionRequest struct {
	Wallet    string `json:"wallet"`
	Action    string `json:"action"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// HandleTransition handles POST /escrows/{id}/transition requests. The
// action must be one of the five settlement actions; everything else is
// rejected before the service is invoked.
func (h *EscrowHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseEscrowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[transitionRequest](w, r)
	if !ok {
		return
	}
	wallet, err := domain.ParseWalletAddress(req.Wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	e, err := h.service.Transition(ctx, escrow.TransitionRequest{
		ID:        id,
		Wallet:    wallet,
		Action:    action,
		Message:   req.Message,
		Signature: req.Signature,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "escrow transition rejected",
			"request_id", requestcontext.RequestID(ctx),
			"escrow_id", id,
			"action", action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEscrow(e))
}

// HandleListByWallet handles GET /wallets/{wallet}/escrows requests.
func (h *EscrowHandler) HandleListByWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := domain.ParseWalletAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	escrows, err := h.service.ListByWallet(r.Context(), wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]escrowResponse, 0, len(escrows))
	for _, e := range escrows {
		out = append(out, fromEscrow(e))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
