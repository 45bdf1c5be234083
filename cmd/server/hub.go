package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/emberline/duelcore/internal/ai"
	"github.com/emberline/duelcore/internal/config"
	"github.com/emberline/duelcore/internal/game"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// maxAISteps bounds how many actions the computer takes in a row.
const maxAISteps = 64

// aiPlayerID is the seat id used for computer opponents.
const aiPlayerID = "ai"

// Inbound message types.
const (
	msgCreateMatch  = "create_match"
	msgJoinMatch    = "join_match"
	msgAction       = "action"
	msgLegalActions = "legal_actions"
	msgConcede      = "concede"
)

// Outbound message types.
const (
	msgState        = "state"
	msgRejected     = "rejected"
	msgError        = "error"
	msgNotification = "notification"
	msgLegal        = "legal"
)

// WSMessage is what clients send.
type WSMessage struct {
	Type     string          `json:"type"`
	MatchID  string          `json:"match_id,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// serverMessage is what the hub sends.
type serverMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type createMatchData struct {
	// Opponent is a player id, or "ai" for a computer opponent.
	Opponent string `json:"opponent"`
	Seed     *int64 `json:"seed,omitempty"`
}

type stateData struct {
	State    state.GameState `json:"state"`
	Checksum string          `json:"checksum"`
	Events   []rules.Event   `json:"events,omitempty"`
}

// Client is one websocket connection bound to at most one seat.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	playerID string
	matchID  string
	seat     int
}

func (c *Client) bind(playerID, matchID string, seat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID, c.matchID, c.seat = playerID, matchID, seat
}

func (c *Client) binding() (matchID string, seat int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matchID, c.seat, c.matchID != ""
}

// outbound goes to every client seated in matchID, or only to client when
// it is set.
type outbound struct {
	matchID string
	client  *Client
	payload []byte
}

type matchTimer struct {
	timer *time.Timer
	gen   int
}

// Hub routes websocket traffic into the match manager and fans match
// updates back out.
type Hub struct {
	manager *game.Manager
	deck    []string
	cfg     config.ServerConfig
	logger  *zap.Logger

	deciderMu sync.Mutex
	decider   ai.Decider

	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	ctx     context.Context
	aiSeats map[string]int
	timers  map[string]*matchTimer

	upgrader websocket.Upgrader
}

func newHub(manager *game.Manager, deck []string, decider ai.Decider, cfg config.ServerConfig, logger *zap.Logger) *Hub {
	h := &Hub{
		manager:    manager,
		deck:       deck,
		cfg:        cfg,
		logger:     logger,
		decider:    decider,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        context.Background(),
		aiSeats:    make(map[string]int),
		timers:     make(map[string]*matchTimer),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (h *Hub) run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.stopTimers()
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("client registered", zap.String("remote", client.conn.RemoteAddr().String()))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("client unregistered", zap.String("remote", client.conn.RemoteAddr().String()))
			}

		case msg := <-h.broadcast:
			if msg.client != nil {
				if h.clients[msg.client] {
					h.deliver(msg.client, msg.payload)
				}
				continue
			}
			for client := range h.clients {
				if matchID, _, ok := client.binding(); ok && matchID == msg.matchID {
					h.deliver(client, msg.payload)
				}
			}
		}
	}
}

// deliver runs on the hub goroutine, the only sender on client.send. A
// client too slow to drain its buffer is dropped.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		close(client.send)
		delete(h.clients, client)
		h.logger.Warn("dropping slow client", zap.String("remote", client.conn.RemoteAddr().String()))
	}
}

// baseContext is the hub's lifetime context. Before run starts it is
// context.Background.
func (h *Hub) baseContext() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx == nil {
		return context.Background()
	}
	return h.ctx
}

// notify is the manager's notification handler.
func (h *Hub) notify(n game.Notification) {
	h.publish(n.MatchID, serverMessage{Type: msgNotification, MatchID: n.MatchID, Data: n})
}

func (h *Hub) publish(matchID string, msg serverMessage) {
	h.enqueue(outbound{matchID: matchID}, msg)
}

func (h *Hub) reply(c *Client, msg serverMessage) {
	h.enqueue(outbound{client: c}, msg)
}

func (h *Hub) enqueue(out outbound, msg serverMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	out.payload = payload
	select {
	case h.broadcast <- out:
	case <-h.baseContext().Done():
	}
}

func (h *Hub) replyError(c *Client, matchID string, err error) {
	if code := game.RejectionCode(err); code != "" {
		var rej *game.Rejection
		errors.As(err, &rej)
		h.reply(c, serverMessage{Type: msgRejected, MatchID: matchID, Data: rej})
		return
	}
	h.reply(c, serverMessage{Type: msgError, MatchID: matchID, Data: err.Error()})
}

func stateMessage(matchID string, gs state.GameState, events []rules.Event) serverMessage {
	data := stateData{State: gs, Events: events}
	if sum, err := game.ComputeChecksum(gs); err == nil {
		data.Checksum = sum.Hash
	}
	return serverMessage{Type: msgState, MatchID: matchID, Data: data}
}

func (h *Hub) handleMessage(c *Client, msg WSMessage) {
	ctx := h.baseContext()
	h.logger.Debug("received message",
		zap.String("type", msg.Type),
		zap.String("match_id", msg.MatchID),
		zap.String("player_id", msg.PlayerID),
	)

	switch msg.Type {
	case msgCreateMatch:
		h.createMatch(ctx, c, msg)
	case msgJoinMatch:
		h.joinMatch(ctx, c, msg)
	case msgAction:
		matchID, seat, ok := c.binding()
		if !ok {
			h.replyError(c, "", errors.New("not seated in a match"))
			return
		}
		var action game.PlayerAction
		if err := json.Unmarshal(msg.Data, &action); err != nil {
			h.replyError(c, matchID, fmt.Errorf("decode action: %w", err))
			return
		}
		action.Seat = seat
		if action.ID == "" {
			action.ID = uuid.New().String()
		}
		h.submit(ctx, c, matchID, action)
	case msgLegalActions:
		matchID, seat, ok := c.binding()
		if !ok {
			h.replyError(c, "", errors.New("not seated in a match"))
			return
		}
		actions, err := h.manager.LegalActions(matchID, seat)
		if err != nil {
			h.replyError(c, matchID, err)
			return
		}
		h.reply(c, serverMessage{Type: msgLegal, MatchID: matchID, Data: actions})
	case msgConcede:
		matchID, seat, ok := c.binding()
		if !ok {
			h.replyError(c, "", errors.New("not seated in a match"))
			return
		}
		gs, err := h.manager.Concede(ctx, matchID, seat)
		if err != nil {
			h.replyError(c, matchID, err)
			return
		}
		h.changed(ctx, matchID, gs, nil)
	default:
		h.replyError(c, msg.MatchID, fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (h *Hub) createMatch(ctx context.Context, c *Client, msg WSMessage) {
	var data createMatchData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			h.replyError(c, "", fmt.Errorf("decode create_match: %w", err))
			return
		}
	}
	if data.Opponent == "" {
		data.Opponent = aiPlayerID
	}
	seed := time.Now().UnixNano()
	if data.Seed != nil {
		seed = *data.Seed
	}

	matchID := uuid.New().String()
	seats := [2]game.Seat{
		{PlayerID: msg.PlayerID, Deck: h.deck},
		{PlayerID: data.Opponent, Deck: h.deck},
	}
	gs, err := h.manager.StartMatch(ctx, matchID, seats, seed)
	if err != nil {
		h.replyError(c, "", err)
		return
	}
	if data.Opponent == aiPlayerID {
		h.mu.Lock()
		h.aiSeats[matchID] = 1
		h.mu.Unlock()
	}
	c.bind(msg.PlayerID, matchID, 0)
	h.reply(c, stateMessage(matchID, gs, nil))
	h.changed(ctx, matchID, gs, nil)
}

func (h *Hub) joinMatch(ctx context.Context, c *Client, msg WSMessage) {
	gs, err := h.manager.State(msg.MatchID)
	if errors.Is(err, game.ErrMatchNotFound) {
		gs, err = h.manager.Resume(ctx, msg.MatchID)
		if err == nil {
			h.resetTimer(msg.MatchID, gs)
		}
	}
	if err != nil {
		h.replyError(c, msg.MatchID, err)
		return
	}
	for seat, p := range gs.Players {
		if p.ID == msg.PlayerID {
			c.bind(msg.PlayerID, msg.MatchID, seat)
			h.reply(c, stateMessage(msg.MatchID, gs, nil))
			return
		}
	}
	h.replyError(c, msg.MatchID, fmt.Errorf("player %s has no seat in match %s", msg.PlayerID, msg.MatchID))
}

func (h *Hub) submit(ctx context.Context, c *Client, matchID string, action game.PlayerAction) {
	gs, events, err := h.manager.Submit(ctx, matchID, action)
	if err != nil {
		if c != nil {
			h.replyError(c, matchID, err)
		}
		return
	}
	h.changed(ctx, matchID, gs, events)
}

// changed broadcasts a new state and then lets timers and the computer
// opponent react to it.
func (h *Hub) changed(ctx context.Context, matchID string, gs state.GameState, events []rules.Event) {
	h.publish(matchID, stateMessage(matchID, gs, events))
	if gs.Over {
		h.finish(matchID)
		return
	}
	h.resetTimer(matchID, gs)
	h.driveAI(ctx, matchID)
}

func (h *Hub) finish(matchID string) {
	h.mu.Lock()
	if t, ok := h.timers[matchID]; ok {
		t.timer.Stop()
		delete(h.timers, matchID)
	}
	delete(h.aiSeats, matchID)
	h.mu.Unlock()

	if err := h.manager.EndMatch(matchID); err != nil && !errors.Is(err, game.ErrMatchNotFound) {
		h.logger.Warn("failed to end match", zap.String("match_id", matchID), zap.Error(err))
	}
}

// driveAI lets the computer act for as long as it has something to do.
func (h *Hub) driveAI(ctx context.Context, matchID string) {
	h.mu.Lock()
	seat, ok := h.aiSeats[matchID]
	h.mu.Unlock()
	if !ok {
		return
	}

	for i := 0; i < maxAISteps; i++ {
		gs, err := h.manager.State(matchID)
		if err != nil || gs.Over {
			return
		}
		h.deciderMu.Lock()
		action, err := ai.Choose(ctx, h.manager.Engine(), h.decider, gs, seat)
		h.deciderMu.Unlock()
		if errors.Is(err, ai.ErrNoLegalActions) {
			return
		}
		if err != nil {
			h.logger.Warn("computer failed to decide", zap.String("match_id", matchID), zap.Error(err))
			return
		}
		next, events, err := h.manager.Submit(ctx, matchID, action)
		if err != nil {
			// Another goroutine moved the match on; try again from the new state.
			h.logger.Debug("computer action rejected", zap.String("match_id", matchID), zap.Error(err))
			continue
		}
		h.publish(matchID, stateMessage(matchID, next, events))
		if next.Over {
			h.finish(matchID)
			return
		}
		h.resetTimer(matchID, next)
	}
	h.logger.Warn("computer hit its step limit", zap.String("match_id", matchID))
}

// timeoutAction is the action synthesized for whoever is holding up gs.
func timeoutAction(gs state.GameState) (game.PlayerAction, bool) {
	if gs.Over {
		return game.PlayerAction{}, false
	}
	if item, ok := gs.Stack.Awaiting(); ok {
		return game.PlayerAction{Type: game.ActionCancelTarget, Seat: item.SourcePlayer, StackItemID: item.ID}, true
	}
	if gs.Phase == rules.PhaseMulligan {
		for seat, p := range gs.Players {
			if !p.MulliganComplete {
				return game.PlayerAction{Type: game.ActionMulligan, Seat: seat}, true
			}
		}
		return game.PlayerAction{}, false
	}
	if gs.Phase.HasPriority() {
		return game.PlayerAction{Type: game.ActionPassPriority, Seat: gs.PriorityPlayer}, true
	}
	return game.PlayerAction{}, false
}

func (h *Hub) resetTimer(matchID string, gs state.GameState) {
	if h.cfg.TurnTimeout <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.timers[matchID]
	if !ok {
		t = &matchTimer{}
		h.timers[matchID] = t
	} else if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	turn, round := gs.Turn, gs.Round
	t.timer = time.AfterFunc(h.cfg.TurnTimeout, func() { h.expire(matchID, gen, round, turn) })
}

func (h *Hub) expire(matchID string, gen, round, turn int) {
	h.mu.Lock()
	t, ok := h.timers[matchID]
	current := ok && t.gen == gen
	h.mu.Unlock()
	if !current {
		return
	}

	gs, err := h.manager.State(matchID)
	if err != nil {
		return
	}
	action, ok := timeoutAction(gs)
	if !ok {
		return
	}
	action.ID = uuid.New().String()
	h.logger.Info("turn timer expired",
		zap.String("match_id", matchID),
		zap.Int("round", round),
		zap.Int("turn", turn),
		zap.Stringer("action", action),
	)
	h.submit(h.baseContext(), nil, matchID, action)
}

func (h *Hub) stopTimers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, t := range h.timers {
		if t.timer != nil {
			t.timer.Stop()
		}
		delete(h.timers, id)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.baseContext().Done():
		}
		c.conn.Close()
	}()

	if h.cfg.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		})
	}
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.replyError(c, "", fmt.Errorf("decode message: %w", err))
			continue
		}
		h.handleMessage(c, msg)
	}
}

func (c *Client) writePump(h *Hub) {
	var ping <-chan time.Time
	if h.cfg.ReadTimeout > 0 {
		ticker := time.NewTicker(h.cfg.ReadTimeout * 9 / 10)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.send:
			c.setWriteDeadline(h.cfg.WriteTimeout)
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ping:
			c.setWriteDeadline(h.cfg.WriteTimeout)
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) setWriteDeadline(d time.Duration) {
	if d > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(d))
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}
	select {
	case h.register <- client:
	case <-h.baseContext().Done():
		conn.Close()
		return
	}

	go client.writePump(h)
	go client.readPump(h)
}
