package realtime

import (
	"context"
	"log"
	"net/http"
	"strings"

	"geopickup/internal/models"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

// Prefix is where the sockjs endpoint is mounted.
const Prefix = "/realtime"

// Authenticator verifies the bearer token a board connects with.
type Authenticator interface {
	Verify(ctx context.Context, bearer string) (*models.UserClaims, error)
}

// NewHandler serves board sessions. A nil auth accepts every session,
// which is only used in mock mode.
func NewHandler(h *Hub, auth Authenticator) http.Handler {
	return sockjs.NewHandler(Prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		var claims *models.UserClaims
		if auth != nil {
			var err error
			claims, err = auth.Verify(context.Background(), bearerFromRequest(session.Request()))
			if err != nil {
				_ = session.Close(4001, "invalid session")
				return
			}
			if claims.Role != models.RoleAdmin && !claims.HasPermission(models.PermissionCheckInRead) {
				_ = session.Close(4003, "access denied")
				return
			}
		}

		client := &Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, Subscription{})
				continue
			}
			h.UpdateSubscription(client, Subscription{SchoolID: parsed.SchoolID})
			log.Printf("board %s subscribed to %q", client.ID, parsed.SchoolID)
		}
	})
}

func bearerFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
