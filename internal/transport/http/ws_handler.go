package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/livequiz/session-engine/internal/game"
)

// WSHandler upgrades connections and wires them into the session engine.
// Hosts and players share one endpoint; the role is chosen by query
// parameters.
type WSHandler struct {
	service  *game.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *game.Service) *WSHandler {
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

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type sessionCreatedPayload struct {
	Code      string `json:"code"`
	HostToken string `json:"hostToken"`
}

type joinedPayload struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
}

type answerPayload struct {
	ChoiceIndex int `json:"choiceIndex"`
}

type answerResultPayload struct {
	ChoiceIndex int  `json:"choiceIndex"`
	Correct     bool `json:"correct"`
}

type moderationPayload struct {
	Nickname string `json:"nickname"`
}

// ServeWS routes a new websocket into the engine.
//
//	host create:  /ws?role=host&setId=<id>
//	host resume:  /ws?role=host&code=<code>&token=<hostToken>
//	player join:  /ws?code=<code>&name=<nickname>
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	if r.URL.Query().Get("role") == "host" {
		h.serveHost(conn, r)
		return
	}
	h.servePlayer(conn, r)
}

func (h *WSHandler) serveHost(conn *websocket.Conn, r *http.Request) {
	q := r.URL.Query()
	connID := uuid.NewString()

	code := game.NormalizeCode(q.Get("code"))
	token := q.Get("token")
	if code == "" {
		setID := q.Get("setId")
		if setID == "" {
			writeError(conn, "missing setId or code")
			return
		}
		var err error
		code, token, err = h.service.CreateSession(r.Context(), setID)
		if err != nil {
			writeError(conn, err.Error())
			return
		}
	}
	if err := h.service.ClaimHost(code, token, connID); err != nil {
		writeError(conn, err.Error())
		return
	}
	defer h.service.Disconnect(code, connID)

	greeting := outboundMessage{Type: "sessionCreated", Payload: sessionCreatedPayload{Code: code, HostToken: token}}
	h.run(conn, code, greeting, "", func(send chan<- outboundMessage, msg inboundMessage) {
		switch msg.Type {
		case "start":
			replyOnError(send, h.service.Start(code, connID))
		case "endQuestion":
			replyOnError(send, h.service.EndQuestion(code, connID))
		case "next":
			replyOnError(send, h.service.Advance(r.Context(), code, connID))
		case "kick", "block", "unblock":
			var payload moderationPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				send <- errorMessage("invalid moderation payload")
				return
			}
			switch msg.Type {
			case "kick":
				replyOnError(send, h.service.Kick(code, connID, payload.Nickname))
			case "block":
				replyOnError(send, h.service.Block(code, connID, payload.Nickname))
			case "unblock":
				replyOnError(send, h.service.Unblock(code, connID, payload.Nickname))
			}
		default:
			send <- errorMessage("unsupported message type")
		}
	})
}

func (h *WSHandler) servePlayer(conn *websocket.Conn, r *http.Request) {
	q := r.URL.Query()
	code := game.NormalizeCode(q.Get("code"))
	name := q.Get("name")
	if code == "" || name == "" {
		writeError(conn, "missing code or name")
		return
	}

	connID := uuid.NewString()
	nickname, err := h.service.Join(code, name, connID)
	if err != nil {
		writeError(conn, err.Error())
		return
	}
	defer h.service.Disconnect(code, connID)

	playerKey := game.PlayerKey(nickname)
	greeting := outboundMessage{Type: "joined", Payload: joinedPayload{Code: code, Nickname: nickname}}
	h.run(conn, code, greeting, playerKey, func(send chan<- outboundMessage, msg inboundMessage) {
		switch msg.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				return
			}
			correct, err := h.service.SubmitAnswer(code, playerKey, payload.ChoiceIndex)
			if err != nil {
				send <- errorMessage(err.Error())
				return
			}
			send <- outboundMessage{Type: "answerResult", Payload: answerResultPayload{
				ChoiceIndex: payload.ChoiceIndex,
				Correct:     correct,
			}}
		default:
			send <- errorMessage("unsupported message type")
		}
	})
}

// run owns the socket for its lifetime: a writer goroutine serializes all
// writes, a pump forwards room broadcasts, and the read loop dispatches
// inbound commands until the peer goes away. When selfKey is non-empty the
// pump closes the socket on a kick broadcast naming this player.
func (h *WSHandler) run(conn *websocket.Conn, code string, greeting outboundMessage, selfKey string, dispatch func(chan<- outboundMessage, inboundMessage)) {
	updates, cancel, err := h.service.Subscribe(code)
	if err != nil {
		writeError(conn, err.Error())
		return
	}
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					_ = conn.Close()
					return
				}
				select {
				case send <- outboundMessage{Type: string(ev.Type), Payload: ev.Payload}:
				case <-closeSignals:
					return
				}
				if selfKey != "" && ev.Type == game.EventPlayerKicked {
					if kicked, ok := ev.Payload.(game.PlayerKicked); ok && game.PlayerKey(kicked.Nickname) == selfKey {
						_ = conn.Close()
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- greeting

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		dispatch(send, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func replyOnError(send chan<- outboundMessage, err error) {
	if err != nil {
		send <- errorMessage(err.Error())
	}
}

func errorMessage(message string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: message}}
}

func writeError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(errorMessage(message))
}
