package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ans/internal/challenge"
	"ans/pkg/domain"
	"ans/pkg/platform/httputil"
	"ans/pkg/requestcontext"
)

// ChallengeHandler issues canonical challenge messages for wallets to sign.
type ChallengeHandler struct {
	logger *slog.Logger
}

func NewChallengeHandler(logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{logger: logger}
}

// Register mounts challenge endpoints on the router.
func (h *ChallengeHandler) Register(r chi.Router) {
	r.Post("/challenge", h.HandleIssue)
}

type issueChallengeRequest struct {
	Action   string `json:"action"`
	EscrowID string `json:"escrow_id"`
}

type issueChallengeResponse struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// HandleIssue handles POST /challenge requests. The returned message is what
// the wallet must sign; the timestamp is echoed so clients can resubmit the
// identical string.
func (h *ChallengeHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[issueChallengeRequest](w, r)
	if !ok {
		return
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	escrowID, err := domain.ParseEscrowID(req.EscrowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ts := requestcontext.Now(ctx).UnixMilli()
	message := challenge.BuildAt(action, escrowID.String(), ts)
	httputil.WriteJSON(w, http.StatusOK, issueChallengeResponse{
		Message:   message,
		Timestamp: ts,
	})
}
