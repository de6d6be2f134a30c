// Package negotiator drives a client through the session-negotiation
// protocol over a websocket: Connecting → Waiting → Queued (repeating while
// discovery is pending) → SessionAssignment → Play. The connection closing
// is the sole cancellation signal.
package negotiator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"Momentum/internal/fleet"
	"Momentum/internal/matchmaking"
	"Momentum/internal/playlist"
	"Momentum/pkg/monitor"
	"Momentum/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultDiscoveryInterval = 10 * time.Second
	defaultAssignDelay       = 1 * time.Second
	identityFirstWait        = 1 * time.Second
	identityRetryWait        = 2 * time.Second
	identityMaxAttempts      = 5

	// placeholder some clients send instead of a playlist
	placeholderPlaylist = "mms-player"

	keepaliveRequest = "ping"
	keepaliveReply   = "pong"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Conn is the slice of a websocket connection the state machine needs;
// tests substitute a recording fake.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// lockedConn serializes writes between the state goroutine and the
// keepalive replies from the read pump.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *lockedConn) WriteJSON(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteJSON(v)
}

func (l *lockedConn) WriteMessage(messageType int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteMessage(messageType, data)
}

// Negotiator owns every in-flight negotiation: the concurrent-connection
// count and the registry of running discovery loops, keyed by
// account_ticket. Nothing here is global; the instance is injected where
// needed and its state dies with it.
type Negotiator struct {
	sessions *matchmaking.Sessions
	demand   *matchmaking.Demand
	fleet    *fleet.Service

	discoveryInterval time.Duration
	assignDelay       time.Duration
	identityFirstWait time.Duration
	identityRetryWait time.Duration

	clients atomic.Int64

	mu       sync.Mutex
	searches map[string]context.CancelFunc
}

func New(sessions *matchmaking.Sessions, demand *matchmaking.Demand, fleetSvc *fleet.Service) *Negotiator {
	return &Negotiator{
		sessions:          sessions,
		demand:            demand,
		fleet:             fleetSvc,
		discoveryInterval: defaultDiscoveryInterval,
		assignDelay:       defaultAssignDelay,
		identityFirstWait: identityFirstWait,
		identityRetryWait: identityRetryWait,
		searches:          make(map[string]context.CancelFunc),
	}
}

// SetIntervals overrides the discovery poll interval and the pause between
// SessionAssignment and Play; zero keeps the default.
func (n *Negotiator) SetIntervals(discovery, assignDelay time.Duration) {
	if discovery > 0 {
		n.discoveryInterval = discovery
	}
	if assignDelay > 0 {
		n.assignDelay = assignDelay
	}
}

// Clients returns the number of open negotiation connections.
func (n *Negotiator) Clients() int {
	return int(n.clients.Load())
}

func (n *Negotiator) registerSearch(key string, cancel context.CancelFunc) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.searches[key]; exists {
		return false
	}
	n.searches[key] = cancel
	return true
}

func (n *Negotiator) hasSearch(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.searches[key]
	return ok
}

func (n *Negotiator) cancelSearch(key string) {
	n.mu.Lock()
	cancel := n.searches[key]
	delete(n.searches, key)
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// HandleWS upgrades the connection and runs one negotiation to completion.
func (n *Negotiator) HandleWS(c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer wsConn.Close()

	sessionToken := c.Query("session")
	signature := c.Query("signature")

	n.Run(&lockedConn{conn: wsConn}, sessionToken, signature, func(onMessage func([]byte)) {
		for {
			_, message, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			onMessage(message)
		}
	})
}

// Run drives the protocol on an established connection. readLoop must call
// onMessage for each inbound frame and return when the connection closes;
// it runs on the caller's goroutine so returning from Run means the
// connection is finished and cleaned up.
func (n *Negotiator) Run(conn Conn, sessionToken, signature string, readLoop func(onMessage func([]byte))) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &negotiation{
		n:         n,
		conn:      conn,
		ctx:       ctx,
		ticketID:  utils.MakeID(),
		matchID:   utils.MakeID(),
		sessionID: utils.MakeID(),
	}

	n.clients.Add(1)
	monitor.NegotiationsGauge.Inc()
	defer func() {
		n.clients.Add(-1)
		monitor.NegotiationsGauge.Dec()
		cancel()
		n.cancelSearch(s.searchKey())
		// join the flow goroutines so a poll in flight cannot re-add the
		// demand hold after it is released
		s.wg.Wait()
		s.releaseDemand()
	}()

	s.resolveIdentity(sessionToken, signature)

	if s.identityComplete() {
		s.spawn(s.begin)
	} else {
		s.sendConnecting()
		s.spawn(s.awaitIdentity)
	}

	readLoop(s.handleMessage)
}

// negotiation is the per-connection state.
type negotiation struct {
	n    *Negotiator
	conn Conn
	ctx  context.Context

	ticketID  string
	matchID   string
	sessionID string

	wg sync.WaitGroup

	mu             sync.Mutex
	accountID      string
	playlistPath   string
	connectingSent bool
	started        bool
}

func (s *negotiation) searchKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountID + "_" + s.ticketID
}

func (s *negotiation) identity() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountID, s.playlistPath
}

func (s *negotiation) identityComplete() bool {
	account, pl := s.identity()
	return account != "" && pl != "" && pl != placeholderPlaylist
}

// resolveIdentity consumes the session token when present, else falls back
// to the legacy inline signature ("accountId playlist").
func (s *negotiation) resolveIdentity(sessionToken, signature string) {
	if sessionToken != "" {
		claims, ok, err := s.n.sessions.ConsumeToken(s.ctx, sessionToken)
		if err != nil {
			zap.L().Warn("session token consume failed", zap.Error(err))
		} else if ok {
			s.mu.Lock()
			s.accountID = claims.AccountID
			s.playlistPath = playlist.Resolve(claims.Playlist)
			s.mu.Unlock()
			return
		}
	}

	if signature != "" {
		if account, pl, ok := parseSignature(signature); ok {
			s.mu.Lock()
			if s.accountID == "" {
				s.accountID = account
			}
			if s.playlistPath == "" {
				s.playlistPath = playlist.Resolve(pl)
			}
			s.mu.Unlock()
		}
	}
}

func parseSignature(signature string) (accountID, playlistToken string, ok bool) {
	fields := strings.Fields(signature)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// awaitIdentity polls for identity the client may supply in-band, then
// forces a fallback so the flow always proceeds: a temporary account and
// the default solo playlist. Bounded by design; never hangs.
func (s *negotiation) awaitIdentity() {
	wait := s.n.identityFirstWait
	for attempt := 1; attempt <= identityMaxAttempts; attempt++ {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = s.n.identityRetryWait

		// the message handler starts the flow itself once identity lands
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			return
		}
	}

	s.mu.Lock()
	if s.accountID == "" {
		s.accountID = "temp_" + s.ticketID
	}
	if s.playlistPath == "" || s.playlistPath == placeholderPlaylist {
		s.playlistPath = playlist.DefaultSolo
	}
	s.playlistPath = playlist.Resolve(s.playlistPath)
	s.mu.Unlock()

	s.begin()
}

// handleMessage services the keepalive and late identity. Malformed frames
// and frames out of protocol are ignored; liveness beats strictness here.
func (s *negotiation) handleMessage(message []byte) {
	if string(message) == keepaliveRequest {
		if err := s.conn.WriteMessage(websocket.TextMessage, []byte(keepaliveReply)); err != nil {
			zap.L().Debug("keepalive reply failed", zap.Error(err))
		}
		return
	}

	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	s.mu.Lock()
	if msg.AccountID != "" && s.accountID == "" {
		s.accountID = msg.AccountID
	}
	if msg.Playlist != "" && (s.playlistPath == "" || s.playlistPath == placeholderPlaylist) {
		s.playlistPath = playlist.Resolve(msg.Playlist)
	}
	s.mu.Unlock()

	if s.identityComplete() && !s.n.hasSearch(s.searchKey()) {
		s.spawn(s.begin)
	}
}

// spawn runs a flow step on its own goroutine, tracked so connection
// teardown can join it.
func (s *negotiation) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// begin runs the ordered flow exactly once per connection.
func (s *negotiation) begin() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	account, _ := s.identity()

	s.sendConnecting()
	s.sendWaiting()
	s.sendQueued()

	// a private-match code binds the account straight to a server
	if binding, ok, err := s.n.sessions.CustomKey(s.ctx, account); err == nil && ok {
		s.assign(binding, true)
		return
	} else if err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Warn("custom key lookup failed", zap.String("account", account), zap.Error(err))
	}

	s.discover()
}

// discover polls the fleet registry until a server turns up or the
// connection closes. The loop is bound only by connection lifetime.
func (s *negotiation) discover() {
	key := s.searchKey()
	ctx, cancel := context.WithCancel(s.ctx)
	if !s.n.registerSearch(key, cancel) {
		cancel()
		return
	}
	defer s.n.cancelSearch(key)

	if s.checkForServer(ctx) {
		return
	}

	ticker := time.NewTicker(s.n.discoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.checkForServer(ctx) {
				return
			}
		}
	}
}

// checkForServer runs one discovery attempt. Transient registry errors are
// "nothing found this attempt": the client stays Queued and the next tick
// retries; an infrastructure blip must not kill a healthy negotiation.
func (s *negotiation) checkForServer(ctx context.Context) bool {
	account, playlistPath := s.identity()

	rec, err := s.n.fleet.PickEligible(ctx, playlistPath)
	if err != nil {
		if errors.Is(err, fleet.ErrNoServer) {
			s.n.demand.AddSearchingOnce(ctx, account, playlistPath)
		} else if !errors.Is(err, context.Canceled) {
			zap.L().Warn("discovery attempt failed", zap.String("playlist", playlistPath), zap.Error(err))
		}
		s.sendQueued()
		return false
	}

	binding := &matchmaking.ServerBinding{IP: rec.IP, Port: rec.Port, Playlist: rec.Playlist}
	if err := s.n.sessions.SetChosenServer(ctx, account, *binding); err != nil {
		zap.L().Warn("chosen server cache write failed", zap.String("account", account), zap.Error(err))
	}
	s.assign(binding, false)
	return true
}

// assign hands the server off: release the demand hold, emit
// SessionAssignment, pause, emit Play.
func (s *negotiation) assign(binding *matchmaking.ServerBinding, viaCustomKey bool) {
	account, _ := s.identity()
	s.releaseDemand()

	if viaCustomKey {
		// keep session detail working after the binding is consumed
		if err := s.n.sessions.SetChosenServer(s.ctx, account, *binding); err != nil {
			zap.L().Warn("chosen server cache write failed", zap.String("account", account), zap.Error(err))
		}
		if err := s.n.sessions.ClearCustomKey(s.ctx, account); err != nil {
			zap.L().Warn("custom key clear failed", zap.String("account", account), zap.Error(err))
		}
	}

	s.send(statusUpdate(assignmentPayload{MatchID: s.matchID, State: "SessionAssignment"}))

	select {
	case <-s.ctx.Done():
		return
	case <-time.After(s.n.assignDelay):
	}

	s.send(playMessage(s.matchID, s.sessionID))
	zap.L().Info("session assigned",
		zap.String("account", account),
		zap.String("match", s.matchID),
		zap.String("session", s.sessionID))
}

// releaseDemand drops this connection's demand-counter hold, if any. Runs
// with its own context because it is also called after the connection
// context is cancelled.
func (s *negotiation) releaseDemand() {
	account, playlistPath := s.identity()
	if account == "" || playlistPath == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.n.demand.ReleaseSearching(ctx, account, playlistPath)
}

func (s *negotiation) send(msg envelope) {
	if err := s.conn.WriteJSON(msg); err != nil {
		zap.L().Debug("negotiation send failed", zap.Error(err))
	}
}

func (s *negotiation) sendConnecting() {
	s.mu.Lock()
	if s.connectingSent {
		s.mu.Unlock()
		return
	}
	s.connectingSent = true
	s.mu.Unlock()
	s.send(statusUpdate(connectingPayload{State: "Connecting"}))
}

func (s *negotiation) sendWaiting() {
	count := s.n.Clients()
	s.send(statusUpdate(waitingPayload{
		TotalPlayers:     count,
		ConnectedPlayers: count,
		State:            "Waiting",
	}))
}

func (s *negotiation) sendQueued() {
	count := s.n.Clients()
	s.send(statusUpdate(queuedPayload{
		TicketID:         s.ticketID,
		QueuedPlayers:    count,
		EstimatedWaitSec: estimatedWaitSec(count),
		State:            "Queued",
	}))
}
