package handler

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

// StatusHandler exposes the agent's internal state: the pending queue, the
// sync trigger, and the current session.
type StatusHandler struct {
	queue ports.QueueRepository
	sync  ports.SyncService
	creds ports.CredentialStore
}

func NewStatusHandler(queue ports.QueueRepository, sync ports.SyncService, creds ports.CredentialStore) *StatusHandler {
	return &StatusHandler{queue: queue, sync: sync, creds: creds}
}

// PendingOperations handles GET /queue/pending.
func (h *StatusHandler) PendingOperations(c echo.Context) error {
	ops, err := h.queue.ListPending(c.Request().Context())
	if err != nil {
		return err
	}

	views := make([]queuedOperationView, 0, len(ops))
	for _, op := range ops {
		var payload any
		switch op.Kind {
		case domain.KindOrder:
			payload = op.Order
		case domain.KindProduct:
			payload = op.Product
		}
		views = append(views, queuedOperationView{
			LocalID:        op.LocalID,
			Kind:           string(op.Kind),
			Status:         string(op.Status),
			IdempotencyKey: op.IdempotencyKey,
			CreatedAt:      op.CreatedAt.Format(time.RFC3339),
			Payload:        payload,
		})
	}
	return c.JSON(http.StatusOK, views)
}

// TriggerSync handles POST /sync — a manual sync trigger. Responds 409 when
// a pass is already in flight (the trigger is dropped, not queued).
func (h *StatusHandler) TriggerSync(c echo.Context) error {
	report, err := h.sync.Sync(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Session handles GET /session: the stored profile, the local expiry
// heuristic, and the token claims decoded without verification (the agent
// does not hold the server's signing secret; the server stays authoritative).
func (h *StatusHandler) Session(c echo.Context) error {
	ctx := c.Request().Context()

	creds, err := h.creds.Credentials(ctx)
	if err != nil {
		return err
	}
	expired, err := h.creds.IsExpired(ctx)
	if err != nil {
		return err
	}

	out := map[string]any{
		"user":          creds.User,
		"issued_at":     creds.IssuedAt.Format(time.RFC3339),
		"local_expired": expired,
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(creds.AccessToken, claims); err == nil {
		out["claims"] = claims
	}

	return c.JSON(http.StatusOK, out)
}
