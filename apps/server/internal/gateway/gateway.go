package gateway

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"yatzy-lite/apps/server/internal/auth"
	"yatzy-lite/apps/server/internal/lobby"
	"yatzy-lite/apps/server/internal/table"
	"yatzy-lite/codec"
)

const (
	readLimit    = 64 << 10
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
)

// Connection is one authenticated websocket client.
type Connection struct {
	ID       string
	UserID   uint64
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	LastPing atomic.Int64 // unix ms

	done     chan struct{}
	doneOnce sync.Once
	table    *table.Table
	log      *log.Entry
}

// Gateway routes websocket traffic between clients and their sessions. A user
// has at most one live connection; a newer one replaces the older.
type Gateway struct {
	mu        sync.RWMutex
	userConns map[uint64]*Connection

	lobby    *lobby.Lobby
	auth     auth.Service
	upgrader websocket.Upgrader
	log      *log.Entry
}

// New creates a gateway. An empty allowedOrigins accepts any origin.
func New(lby *lobby.Lobby, authService auth.Service, allowedOrigins []string) *Gateway {
	g := &Gateway{
		userConns: make(map[uint64]*Connection),
		lobby:     lby,
		auth:      authService,
		log:       log.WithField("component", "gateway"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o != "" {
			set[o] = true
		}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 || set["*"] {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}

// HandleWebSocket authenticates ?token= (or a bearer header), upgrades the
// connection and attaches it to the user's session.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	account, ok := g.auth.ResolveSession(r.Context(), token)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Warn("upgrade failed")
		return
	}

	c := &Connection{
		ID:       uuid.NewString(),
		UserID:   account.ID,
		Username: account.Username,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Gateway:  g,
		done:     make(chan struct{}),
	}
	c.log = g.log.WithFields(log.Fields{"user_id": account.ID, "conn_id": c.ID})
	c.LastPing.Store(time.Now().UnixMilli())

	g.mu.Lock()
	prev := g.userConns[account.ID]
	g.userConns[account.ID] = c
	total := len(g.userConns)
	g.mu.Unlock()
	if prev != nil {
		prev.log.Info("replaced by a newer connection")
		prev.close()
	}

	c.log.WithField("total", total).Info("client connected")

	go c.writePump()
	go c.readPump()
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.close()
	}()

	c.Conn.SetReadLimit(readLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.LastPing.Store(time.Now().UnixMilli())
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("read failed")
			}
			return
		}
		if messageType == websocket.BinaryMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	cmd, err := codec.DecodeCommand(data)
	if err != nil {
		c.sendError(err)
		return
	}
	c.log.WithField("cmd", cmd.Type).Debug("command")

	t, joined, err := c.session()
	if err != nil {
		c.sendError(err)
		return
	}
	if joined && cmd.Type == codec.CmdJoin {
		return
	}
	err = t.SubmitCommand(cmd)
	if errors.Is(err, table.ErrTableClosed) {
		// The session was reaped between lookups; open a fresh one.
		c.table = nil
		if t, _, err = c.session(); err == nil {
			err = t.SubmitCommand(cmd)
		}
	}
	// Game errors are already delivered by the session itself.
	if err != nil {
		c.log.WithError(err).Debug("command rejected")
	}
}

// session returns the user's table. joined is true when this call attached
// the connection, which also sends the client a snapshot.
func (c *Connection) session() (t *table.Table, joined bool, err error) {
	if c.table != nil && !c.table.IsClosed() {
		return c.table, false, nil
	}
	t, err = c.Gateway.lobby.Session(c.UserID, c.Username, c.Gateway.sendToUser)
	if err != nil {
		return nil, false, err
	}
	c.table = t
	if err := t.SubmitEvent(table.Event{Type: table.EventJoin}); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// sendError reports a failure that happened before reaching a session.
func (c *Connection) sendError(err error) {
	gameID := ""
	if c.table != nil {
		gameID = c.table.GameID()
	}
	env := codec.WrapServerEnvelope(gameID, 0, codec.TypeError, codec.ErrorToStruct(table.ErrorCode(err), err.Error()))
	data, merr := codec.Marshal(env)
	if merr != nil {
		c.log.WithError(merr).Error("marshal error envelope")
		return
	}
	c.enqueue(data)
}

func (c *Connection) enqueue(data []byte) {
	select {
	case c.Send <- data:
	case <-c.done:
	default:
		c.log.Warn("send buffer full, dropping message")
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// close stops the write pump, which sends a close frame and releases the
// socket; the read pump then fails and unregisters.
func (c *Connection) close() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	current := g.userConns[c.UserID] == c
	if current {
		delete(g.userConns, c.UserID)
	}
	total := len(g.userConns)
	g.mu.Unlock()

	if current && c.table != nil {
		if err := c.table.SubmitEvent(table.Event{Type: table.EventConnLost}); err != nil && !errors.Is(err, table.ErrTableClosed) {
			c.log.WithError(err).Warn("conn lost event failed")
		}
	}
	c.log.WithField("total", total).Info("client disconnected")
}

// sendToUser delivers a session message to the user's current connection.
func (g *Gateway) sendToUser(userID uint64, data []byte) {
	g.mu.RLock()
	c := g.userConns[userID]
	g.mu.RUnlock()

	if c != nil {
		c.enqueue(data)
	}
}

// Connections reports the number of connected users.
func (g *Gateway) Connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.userConns)
}

// CloseAll disconnects every client.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	conns := make([]*Connection, 0, len(g.userConns))
	for _, c := range g.userConns {
		conns = append(conns, c)
	}
	g.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}
