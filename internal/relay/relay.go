// Package relay broadcasts live blog edits between WebSocket connections
// joined to the same blog room.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/validation"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// Event names carried in the "event" field of a frame.
const (
	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventEditContent    = "editContent"
	EventReceiveContent = "receiveContent"
	EventRoomJoined     = "roomJoined"
	EventError          = "error"
)

var (
	ErrNotJoined     = errors.New("join the room before editing")
	ErrUnknownClient = errors.New("connection is not registered")
)

// Gate authorizes room operations for a user. Implementations re-read the
// user's role on every call.
type Gate interface {
	CanJoin(ctx context.Context, userID uint, room string) error
	CanEdit(ctx context.Context, userID uint, room string) error
}

// Frame is the JSON envelope of every websocket message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type editPayload struct {
	BlogID  roomRef `json:"blogId"`
	Content string  `json:"content"`
}

// CanonicalRoom returns the room key for a blog id. Decimal ids are
// normalised, so "007", " 7" and 7 all name room "7".
func CanonicalRoom(room string) string {
	room = strings.TrimSpace(room)
	if n, err := strconv.ParseUint(room, 10, 64); err == nil {
		return strconv.FormatUint(n, 10)
	}
	return room
}

// roomRef accepts a blog id sent either as a JSON string or a number and
// holds its canonical room key.
type roomRef string

func (r *roomRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = roomRef(CanonicalRoom(s))
		return nil
	}
	var n uint64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("room id must be a string or an integer: %w", err)
	}
	*r = roomRef(strconv.FormatUint(n, 10))
	return nil
}

// Relay owns the room table. Join, Leave, Disconnect and Deliver are its
// only mutators and readers; the table is guarded by mu.
type Relay struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}
	perUser map[uint]int

	gate Gate
	bus  Bus
	log  *observability.WSLogger
}

// New creates a relay. bus may be nil for a single-process deployment.
func New(gate Gate, bus Bus) *Relay {
	return &Relay{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
		perUser: make(map[uint]int),
		gate:    gate,
		bus:     bus,
		log:     observability.NewWSLogger("relay"),
	}
}

// Name returns a human-readable identifier for this relay.
func (r *Relay) Name() string { return "relay" }

// Register adds a connection for userID. Returns an error if limits are exceeded.
func (r *Relay) Register(ctx context.Context, userID uint, conn *websocket.Conn) (*Client, error) {
	r.mu.Lock()
	if len(r.clients) >= maxTotalConns {
		r.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}
	if r.perUser[userID] >= maxConnsPerUser {
		r.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := newClient(r, conn, userID)
	r.clients[client] = make(map[string]struct{})
	r.perUser[userID]++
	r.mu.Unlock()

	observability.RelayConnections.Inc()
	r.log.LogConnect(ctx, userID, client.ID)
	return client, nil
}

// Join adds c to room after the gate confirms the room exists.
// Joining a room twice is a no-op.
func (r *Relay) Join(ctx context.Context, c *Client, room string) error {
	room = CanonicalRoom(room)
	if err := r.gate.CanJoin(ctx, c.UserID, room); err != nil {
		return err
	}

	r.mu.Lock()
	joined, ok := r.clients[c]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownClient
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}
	joined[room] = struct{}{}
	rooms := len(r.rooms)
	r.mu.Unlock()

	observability.RelayRooms.Set(float64(rooms))
	return nil
}

// Leave removes c from room. Leaving a room that was never joined is a no-op.
func (r *Relay) Leave(c *Client, room string) {
	room = CanonicalRoom(room)
	r.mu.Lock()
	if joined, ok := r.clients[c]; ok {
		delete(joined, room)
	}
	r.removeFromRoomLocked(c, room)
	rooms := len(r.rooms)
	r.mu.Unlock()

	observability.RelayRooms.Set(float64(rooms))
}

// Disconnect removes c from every room and closes its outbound channel.
func (r *Relay) Disconnect(ctx context.Context, c *Client, reason string) {
	r.mu.Lock()
	joined, ok := r.clients[c]
	if !ok {
		r.mu.Unlock()
		return
	}
	for room := range joined {
		r.removeFromRoomLocked(c, room)
	}
	delete(r.clients, c)
	if r.perUser[c.UserID] <= 1 {
		delete(r.perUser, c.UserID)
	} else {
		r.perUser[c.UserID]--
	}
	rooms := len(r.rooms)
	c.close()
	r.mu.Unlock()

	observability.RelayRooms.Set(float64(rooms))
	observability.RelayConnections.Dec()
	r.log.LogDisconnect(ctx, c.UserID, c.ID, reason)
}

func (r *Relay) removeFromRoomLocked(c *Client, room string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Edit relays content to every other member of room. The sender must have
// joined the room and be allowed to mutate the blog.
func (r *Relay) Edit(ctx context.Context, c *Client, room, content string) error {
	room = CanonicalRoom(room)
	if len(content) > validation.MaxContentLength {
		return models.NewValidationError(fmt.Sprintf("content must not exceed %d bytes", validation.MaxContentLength))
	}
	if !r.isMember(c, room) {
		return ErrNotJoined
	}
	if err := r.gate.CanEdit(ctx, c.UserID, room); err != nil {
		return err
	}

	frame, err := encodeFrame(EventReceiveContent, content)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	r.Deliver(room, c.ID, frame)

	if r.bus != nil {
		if err := r.bus.Publish(ctx, Envelope{Origin: c.ID, Room: room, Frame: frame}); err != nil {
			return fmt.Errorf("publish edit: %w", err)
		}
	}
	return nil
}

// Deliver sends frame to the local members of room except the connection
// identified by originID. It never blocks on a slow receiver.
func (r *Relay) Deliver(room, originID string, frame []byte) {
	room = CanonicalRoom(room)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for member := range r.rooms[room] {
		if member.ID == originID {
			continue
		}
		member.TrySend(frame)
	}
}

// Members returns the number of local connections joined to room.
func (r *Relay) Members(room string) int {
	room = CanonicalRoom(room)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

func (r *Relay) isMember(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][c]
	return ok
}

// Handle decodes one inbound frame from c and dispatches it. Failures are
// reported to c alone as an error event.
func (r *Relay) Handle(ctx context.Context, c *Client, raw []byte) {
	var in Frame
	if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
		observability.RelayEvents.WithLabelValues("invalid").Inc()
		r.sendError(ctx, c, "", "invalid", models.NewValidationError("Malformed frame"))
		return
	}

	var (
		room string
		err  error
	)
	switch in.Event {
	case EventJoinRoom, EventLeaveRoom:
		var ref roomRef
		if err = json.Unmarshal(in.Data, &ref); err != nil || ref == "" {
			err = models.NewValidationError("Invalid blog id")
			break
		}
		room = string(ref)
	case EventEditContent:
		var p editPayload
		if err = json.Unmarshal(in.Data, &p); err != nil || p.BlogID == "" {
			err = models.NewValidationError("Invalid edit payload")
			break
		}
		room = string(p.BlogID)
		observability.RelayEvents.WithLabelValues(in.Event).Inc()
		err = r.traced(ctx, in.Event, room, func(ctx context.Context) error {
			return r.Edit(ctx, c, room, p.Content)
		})
		if err != nil {
			r.sendError(ctx, c, room, in.Event, err)
		}
		return
	default:
		err = models.NewValidationError("Unknown event: " + in.Event)
	}

	if err != nil {
		observability.RelayEvents.WithLabelValues("invalid").Inc()
		r.sendError(ctx, c, room, in.Event, err)
		return
	}

	observability.RelayEvents.WithLabelValues(in.Event).Inc()
	switch in.Event {
	case EventJoinRoom:
		err = r.traced(ctx, in.Event, room, func(ctx context.Context) error {
			return r.Join(ctx, c, room)
		})
		if err != nil {
			r.sendError(ctx, c, room, in.Event, err)
			return
		}
		r.send(ctx, c, room, EventRoomJoined, room)
	case EventLeaveRoom:
		r.Leave(c, room)
	}
}

func (r *Relay) traced(ctx context.Context, event, room string, fn func(context.Context) error) error {
	ctx, span := observability.StartRelaySpan(ctx, event, room)
	err := fn(ctx)
	observability.EndSpan(span, err)
	return err
}

func (r *Relay) send(ctx context.Context, c *Client, room, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		r.log.LogError(ctx, c.UserID, room, err, event)
		return
	}
	c.TrySend(frame)
}

func (r *Relay) sendError(ctx context.Context, c *Client, room, event string, err error) {
	r.log.LogError(ctx, c.UserID, room, err, event)
	r.send(ctx, c, room, EventError, errorMessage(err))
}

// errorMessage exposes AppError messages and relay sentinels; anything else
// is reported generically.
func errorMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, ErrNotJoined) || errors.Is(err, ErrUnknownClient) {
		return err.Error()
	}
	return "Failed to relay edit"
}

func encodeFrame(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: payload})
}

// Start subscribes to the bus so edits from other processes reach local
// members. It returns immediately when no bus is configured.
func (r *Relay) Start(ctx context.Context) error {
	if r.bus == nil {
		return nil
	}
	return r.bus.Subscribe(ctx, func(env Envelope) {
		r.Deliver(env.Room, env.Origin, env.Frame)
	})
}

// Shutdown disconnects every client. Closing a client's send channel makes its
// write pump send a close frame and drop the connection.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		r.Disconnect(ctx, c, "shutdown")
	}
	return nil
}
