package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"quizcraze/internal/app"
	"quizcraze/internal/logging"
)

// PlayAPI is the subset of app.PlayService the websocket endpoint drives.
type PlayAPI interface {
	StartSession(ctx context.Context, userID, quizID string) (app.View, error)
	SubmitAnswer(sessionID string, values ...string) (app.View, error)
	Restart(ctx context.Context, sessionID string) (app.View, error)
	Leave(sessionID string)
	Subscribe(sessionID string) (<-chan app.View, func(), error)
	Heartbeat(ctx context.Context, sessionID string) error
}

type WSHandler struct {
	service  PlayAPI
	upgrader websocket.Upgrader
}

func NewWSHandler(service PlayAPI) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Values []string `json:"values"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// ServeWS upgrades to a websocket and runs one play session per connection.
//
// The client sends {"type":"answer","payload":{"values":[...]}} and {"type":"restart"};
// the server pushes {"type":"view"} after every session event and {"type":"error"} on failures.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := logging.WithContext(r.Context())
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	view, err := h.service.StartSession(r.Context(), userID, quizID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	sessionID := view.SessionID
	defer func() { h.service.Leave(sessionID) }()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	forwarders := make(chan struct{}, 1)

	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue // keep draining so senders never block
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				failed = true
			}
		}
	}()

	// forward pushes session views until the subscription ends or the connection closes.
	forward := func(updates <-chan app.View) {
		defer func() { forwarders <- struct{}{} }()
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "view", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}

	subscribe := func(id string) (func(), bool) {
		updates, cancel, err := h.service.Subscribe(id)
		if err != nil {
			send <- errorMessage(err)
			return nil, false
		}
		go forward(updates)
		return cancel, true
	}

	cancel, ok := subscribe(sessionID)
	if !ok {
		close(send)
		<-writerDone
		return
	}
	running := 1

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		_ = h.service.Heartbeat(r.Context(), sessionID)

		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || len(payload.Values) == 0 {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			// The resulting view reaches the client through the subscription.
			if _, err := h.service.SubmitAnswer(sessionID, payload.Values...); err != nil {
				send <- errorMessage(err)
			}
		case "restart":
			next, err := h.service.Restart(r.Context(), sessionID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			if running > 0 {
				cancel()
				<-forwarders
				running--
			}
			sessionID = next.SessionID
			if cancel, ok = subscribe(sessionID); ok {
				running++
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	if running > 0 {
		cancel()
		<-forwarders
	}
	close(send)
	<-writerDone
}
