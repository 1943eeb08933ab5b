package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"gameshow-service/internal/app"
	"gameshow-service/internal/domain"
	"gameshow-service/internal/store"
	"github.com/gorilla/websocket"
)

// WSHandler streams snapshots of session documents and accepts actions over
// the same socket.
type WSHandler struct {
	engine   Engine
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine Engine, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		engine: engine,
		logger: logger,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type ackPayload struct {
	Action string `json:"action"`
}

// ServeWS upgrades the request and subscribes to every requested path:
// /ws?sessionId=s1&path=sessions/s1&path=sessions/s1/realtime/scores
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("sessionId")
	paths := q["path"]
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	if len(paths) == 0 {
		paths = []string{store.SessionPath(sessionID)}
	}
	for _, p := range paths {
		if !store.BelongsTo(p, sessionID) {
			http.Error(w, fmt.Sprintf("path %q is outside session %s", p, sessionID), http.StatusBadRequest)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	var feeds []<-chan store.Snapshot
	for _, p := range paths {
		updates, cancel, err := h.engine.Subscribe(ctx, sessionID, p)
		if err != nil {
			_ = conn.WriteJSON(errorMessage(err))
			return
		}
		defer cancel()
		feeds = append(feeds, updates)
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var pumps sync.WaitGroup

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", "session_id", sessionID, "error", err)
				return
			}
		}
	}()

	for _, updates := range feeds {
		pumps.Add(1)
		go func(updates <-chan store.Snapshot) {
			defer pumps.Done()
			for {
				select {
				case snap, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}(updates)
	}

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "action":
			var a app.Action
			if err := json.Unmarshal(inbound.Payload, &a); err != nil {
				reply(errorMessage(fmt.Errorf("invalid action payload: %w", errBadRequest)))
				continue
			}
			a.SessionID = sessionID
			if err := h.engine.Dispatch(ctx, a); err != nil {
				reply(errorMessage(err))
				continue
			}
			reply(outboundMessage[any]{Type: "ack", Payload: ackPayload{Action: a.Name}})
		default:
			reply(errorMessage(fmt.Errorf("unsupported message type %q: %w", inbound.Type, errBadRequest)))
		}
	}

	close(closeSignals)
	pumps.Wait()
	close(send)
	<-writerDone
}

type wsError struct {
	Message string            `json:"message"`
	Code    domain.RejectCode `json:"code,omitempty"`
	Status  int               `json:"status"`
}

func errorMessage(err error) outboundMessage[any] {
	status, body := errorStatus(err)
	return outboundMessage[any]{Type: "error", Payload: wsError{Message: body.Error, Code: body.Code, Status: status}}
}
