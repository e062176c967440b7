package httpapi

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"ans/internal/registry"
	"ans/pkg/domain"
	"ans/pkg/platform/httputil"
	"ans/pkg/requestcontext"
)

// RegistryHandler wires domain registry endpoints to the registry service.
// Signer authenticity on these routes is the ledger runtime's concern (it
// witnesses the transaction); the handler only parses and delegates.
type RegistryHandler struct {
	service *registry.Service
	logger  *slog.Logger
}

func NewRegistryHandler(service *registry.Service, logger *slog.Logger) *RegistryHandler {
	return &RegistryHandler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *RegistryHandler) Register(r chi.Router) {
	r.Post("/registry/domains", h.HandleRegister)
	r.Get("/registry/domains/{name}", h.HandleGet)
	r.Get("/registry/listings", h.HandleListings)
	r.Get("/registry/owners/{wallet}/domains", h.HandleOwnedBy)
	r.Post("/registry/domains/{name}/transfer", h.HandleTransfer)
	r.Post("/registry/domains/{name}/endpoint", h.HandleUpdateEndpoint)
	r.Post("/registry/domains/{name}/list", h.HandleListForSale)
	r.Post("/registry/domains/{name}/unlist", h.HandleUnlist)
	r.Post("/registry/domains/{name}/buy", h.HandleBuy)
	r.Post("/registry/domains/{name}/renew", h.HandleRenew)
}

// nameParam extracts the {name} route parameter. Domain names contain
// slashes ("agent://..."), so clients percent-encode them and chi matches the
// raw segment; unescape before the name reaches the domain layer.
func nameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

type domainResponse struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Owner     string `json:"owner"`
	Endpoint  string `json:"endpoint,omitempty"`
	Status    string `json:"status"`
	IsListed  bool   `json:"is_listed"`
	Price     string `json:"price,omitempty"`
	ExpiresAt string `json:"expires_at"`
}

func fromDomain(d *registry.Domain, now time.Time) domainResponse {
	resp := domainResponse{
		Name:      d.Name.String(),
		Address:   d.Address,
		Owner:     d.Owner.String(),
		Endpoint:  d.Endpoint,
		Status:    string(d.Status(now)),
		IsListed:  d.IsListed,
		ExpiresAt: d.ExpiresAt.Format(time.RFC3339),
	}
	if d.IsListed {
		resp.Price = d.Price.String()
	}
	return resp
}

type registerDomainRequest struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

func (h *RegistryHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[registerDomainRequest](w, r)
	if !ok {
		return
	}
	owner, err := domain.ParseWalletAddress(req.Owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Register(ctx, req.Name, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromDomain(d, requestcontext.Now(ctx)))
}

func (h *RegistryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.service.Get(ctx, nameParam(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDomain(d, requestcontext.Now(ctx)))
}

func (h *RegistryHandler) HandleListings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listings, err := h.service.Listings(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	out := make([]domainResponse, 0, len(listings))
	for _, d := range listings {
		out = append(out, fromDomain(d, now))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *RegistryHandler) HandleOwnedBy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := domain.ParseWalletAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	domains, err := h.service.OwnedBy(ctx, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	out := make([]domainResponse, 0, len(domains))
	for _, d := range domains {
		out = append(out, fromDomain(d, now))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type transferDomainRequest struct {
	Signer   string `json:"signer"`
	NewOwner string `json:"new_owner"`
}

func (h *RegistryHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[transferDomainRequest](w, r)
	if !ok {
		return
	}
	signer, err := domain.ParseWalletAddress(req.Signer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	newOwner, err := domain.ParseWalletAddress(req.NewOwner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Transfer(ctx, nameParam(r), signer, newOwner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDomain(d, requestcontext.Now(ctx)))
}

type updateEndpointRequest struct {
	Signer   string `json:"signer"`
	Endpoint string `json:"endpoint"`
}

func (h *RegistryHandler) HandleUpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[updateEndpointRequest](w, r)
	if !ok {
		return
	}
	signer, err := domain.ParseWalletAddress(req.Signer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.UpdateEndpoint(ctx, nameParam(r), signer, req.Endpoint)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDomain(d, requestcontext.Now(ctx)))
}

type listForSaleRequest struct {
	Signer string `json:"signer"`
	Price  string `json:"price"`
}

func (h *RegistryHandler) HandleListForSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[listForSaleRequest](w, r)
	if !ok {
		return
	}
	signer, err := domain.ParseWalletAddress(req.Signer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	price, err := domain.ParseAmount(req.Price)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.ListForSale(ctx, nameParam(r), signer, price)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDomain(d, requestcontext.Now(ctx)))
}

type unlistRequest struct {
	Signer string `json:"signer"`
}

func (h *RegistryHandler) HandleUnlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[unlistRequest](w, r)
	if !ok {
		return
	}
	signer, err := domain.ParseWalletAddress(req.Signer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Unlist(ctx, nameParam(r), signer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDomain(d, requestcontext.Now(ctx)))
}

type buyDomainRequest struct {
	Buyer   string `json:"buyer"`
	Payment string `json:"payment"`
}

func (h *RegistryHandler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[buyDomainRequest](w, r)
	if !ok {
		return
	}
	buyer, err := domain.ParseWalletAddress(req.Buyer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payment, err := domain.ParseAmount(req.Payment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Buy(ctx, nameParam(r), buyer, payment)
	if err != nil {
		h.logger.WarnContext(ctx, "domain purchase rejected",
			"request_id", requestcontext.RequestID(ctx),
			"name", nameParam(r),
			"buyer", buyer.Canonical(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDomain(d, requestcontext.Now(ctx)))
}

type renewDomainRequest struct {
	Signer string `json:"signer"`
}

func (h *RegistryHandler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[renewDomainRequest](w, r)
	if !ok {
		return
	}
	signer, err := domain.ParseWalletAddress(req.Signer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Renew(ctx, nameParam(r), signer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDomain(d, requestcontext.Now(ctx)))
}
