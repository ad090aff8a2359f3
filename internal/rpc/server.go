package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tmaxmax/go-sse"

	"github.com/wagiedev/mcp-bridge-go/internal/bus"
	"github.com/wagiedev/mcp-bridge-go/internal/dispatch"
)

// Dispatcher routes a named procedure call. Satisfied by dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, params map[string]any) (map[string]any, error)
}

// Handler serves a dispatcher over HTTP. POST carries JSON-RPC request
// bodies; GET upgrades to a server-sent-events stream of notifications.
type Handler struct {
	log        *slog.Logger
	dispatcher Dispatcher
	bus        *bus.Bus
}

// NewHandler creates an HTTP handler over the given dispatcher and
// notification bus.
func NewHandler(log *slog.Logger, dispatcher Dispatcher, b *bus.Bus) *Handler {
	return &Handler{
		log:        log.With("component", "rpc"),
		dispatcher: dispatcher,
		bus:        b,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.serveCall(w, r)
	case http.MethodGet:
		h.serveStream(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveCall(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeResponse(w, Response{
			JSONRPC: Version,
			Error:   &Error{Code: CodeParse, Message: "invalid JSON body"},
		})

		return
	}

	if req.JSONRPC != Version || req.Method == "" {
		h.writeResponse(w, Response{
			JSONRPC: Version,
			ID:      req.ID,
			Error:   &Error{Code: CodeInvalidRequest, Message: "malformed request"},
		})

		return
	}

	ctx := r.Context()
	if session := r.Header.Get(SessionHeader); session != "" {
		ctx = dispatch.WithSubscriber(ctx, session)
	}

	result, err := h.dispatcher.Dispatch(ctx, req.Method, req.Params)
	if err != nil {
		h.writeResponse(w, Response{
			JSONRPC: Version,
			ID:      req.ID,
			Error:   errorToWire(err),
		})

		return
	}

	h.writeResponse(w, Response{
		JSONRPC: Version,
		ID:      req.ID,
		Result:  result,
	})
}

func (h *Handler) writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Debug("Failed to write response", "error", err)
	}
}

func (h *Handler) serveStream(w http.ResponseWriter, r *http.Request) {
	sess, err := sse.Upgrade(w, r)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)

		return
	}

	sub := h.bus.Subscribe()
	defer sub.Close()

	h.log.Debug("Notification stream opened", "session", r.Header.Get(SessionHeader))

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-sub.Notifications():
			if !ok {
				return
			}

			data, err := json.Marshal(NewNotification(n))
			if err != nil {
				h.log.Debug("Failed to encode notification", "method", n.Method, "error", err)

				continue
			}

			msg := &sse.Message{Type: sse.Type("message")}
			msg.AppendData(string(data))

			if err := sess.Send(msg); err != nil {
				return
			}

			if err := sess.Flush(); err != nil {
				return
			}
		}
	}
}
