// Package matchmaking brokers the handshake between the HTTP ticket step
// and the websocket negotiation: session tokens, per-account bindings,
// demand counters and the client-facing HTTP endpoints.
package matchmaking

import (
	"context"
	"encoding/json"
	"time"

	"Momentum/internal/kv"
	"Momentum/pkg/utils"
)

// Shared-store key prefixes. The HTTP side writes under these keys and the
// negotiator reads them; both sides must agree on the layout.
const (
	keySessionPrefix  = "matchmakingSession:"
	keyPlayerPlaylist = "playerPlaylist:"
	keyMatchStatus    = "playerMatchmaking:"
	keyCustomKey      = "playerCustomKey:"
	keyPlayerServer   = "playerServer:"
	keyBuildID        = "playerBuildId:"
)

// SessionClaims is what a single-use session token resolves to.
type SessionClaims struct {
	AccountID string `json:"accountId"`
	Playlist  string `json:"playlist"`
	IssuedAt  int64  `json:"issuedAt"`
}

// ServerBinding points an account at a concrete server.
type ServerBinding struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Playlist string `json:"playlist"`
}

// matchStatus is the observability marker written at ticket time.
type matchStatus struct {
	Status    string `json:"status"`
	Playlist  string `json:"playlist"`
	StartedAt int64  `json:"startedAt,omitempty"`
	Server    string `json:"server,omitempty"`
}

// Sessions wraps the shared store with the session-state vocabulary.
type Sessions struct {
	store    kv.Store
	tokenTTL time.Duration
}

func NewSessions(store kv.Store, tokenTTL time.Duration) *Sessions {
	if tokenTTL <= 0 {
		tokenTTL = 5 * time.Minute
	}
	return &Sessions{store: store, tokenTTL: tokenTTL}
}

// MintToken creates a single-use session token binding an account to its
// resolved playlist. Tokens expire if never consumed.
func (s *Sessions) MintToken(ctx context.Context, accountID, playlistPath string) (string, error) {
	token := utils.MakeID()
	claims, err := json.Marshal(SessionClaims{
		AccountID: accountID,
		Playlist:  playlistPath,
		IssuedAt:  time.Now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	if err := s.store.SetTTL(ctx, keySessionPrefix+token, string(claims), s.tokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeToken resolves a token and deletes it, so a token is usable at most
// once. The second call for the same token reports absent.
func (s *Sessions) ConsumeToken(ctx context.Context, token string) (*SessionClaims, bool, error) {
	raw, ok, err := s.store.Get(ctx, keySessionPrefix+token)
	if err != nil || !ok {
		return nil, false, err
	}
	if _, err := s.store.Delete(ctx, keySessionPrefix+token); err != nil {
		return nil, false, err
	}
	var claims SessionClaims
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		return nil, false, err
	}
	return &claims, true, nil
}

func (s *Sessions) SetPlaylist(ctx context.Context, accountID, playlistPath string) error {
	return s.store.Set(ctx, keyPlayerPlaylist+accountID, playlistPath)
}

func (s *Sessions) Playlist(ctx context.Context, accountID string) (string, bool, error) {
	return s.store.Get(ctx, keyPlayerPlaylist+accountID)
}

// MarkSearching records that a ticket was issued and the account entered the
// searching state. Observability only; nothing branches on it.
func (s *Sessions) MarkSearching(ctx context.Context, accountID, playlistPath string) error {
	raw, err := json.Marshal(matchStatus{
		Status:    "searching",
		Playlist:  playlistPath,
		StartedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return s.store.Set(ctx, keyMatchStatus+accountID, string(raw))
}

// MarkFound records that a custom key bound the account to a server.
func (s *Sessions) MarkFound(ctx context.Context, accountID, playlistPath string, binding ServerBinding) error {
	server, err := json.Marshal(binding)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(matchStatus{
		Status:   "found",
		Playlist: playlistPath,
		Server:   string(server),
	})
	if err != nil {
		return err
	}
	return s.store.Set(ctx, keyMatchStatus+accountID, string(raw))
}

func (s *Sessions) SetCustomKey(ctx context.Context, accountID string, binding ServerBinding) error {
	return s.setBinding(ctx, keyCustomKey+accountID, binding)
}

func (s *Sessions) CustomKey(ctx context.Context, accountID string) (*ServerBinding, bool, error) {
	return s.getBinding(ctx, keyCustomKey+accountID)
}

// ClearCustomKey consumes the binding once the assignment is handed off.
func (s *Sessions) ClearCustomKey(ctx context.Context, accountID string) error {
	_, err := s.store.Delete(ctx, keyCustomKey+accountID)
	return err
}

// SetChosenServer caches the server discovery picked for an account, read
// later by session detail.
func (s *Sessions) SetChosenServer(ctx context.Context, accountID string, binding ServerBinding) error {
	return s.setBinding(ctx, keyPlayerServer+accountID, binding)
}

func (s *Sessions) ChosenServer(ctx context.Context, accountID string) (*ServerBinding, bool, error) {
	return s.getBinding(ctx, keyPlayerServer+accountID)
}

func (s *Sessions) SetBuildID(ctx context.Context, accountID, buildID string) error {
	return s.store.Set(ctx, keyBuildID+accountID, buildID)
}

func (s *Sessions) BuildID(ctx context.Context, accountID string) (string, bool, error) {
	return s.store.Get(ctx, keyBuildID+accountID)
}

func (s *Sessions) setBinding(ctx context.Context, key string, binding ServerBinding) error {
	raw, err := json.Marshal(binding)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, key, string(raw))
}

func (s *Sessions) getBinding(ctx context.Context, key string) (*ServerBinding, bool, error) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var binding ServerBinding
	if err := json.Unmarshal([]byte(raw), &binding); err != nil {
		return nil, false, err
	}
	return &binding, true, nil
}
