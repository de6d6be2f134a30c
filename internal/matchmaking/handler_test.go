package matchmaking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"Momentum/internal/codes"
	"Momentum/internal/fleet"
	"Momentum/internal/kv"
	"Momentum/internal/playlist"
	"Momentum/pkg/middleware"
	"Momentum/pkg/utils"

	"github.com/gin-gonic/gin"
)

type testEnv struct {
	engine   *gin.Engine
	sessions *Sessions
	demand   *Demand
	codes    *codes.MemRepo
	fleet    *fleet.Service
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	store := kv.NewMemory()
	sessions := NewSessions(store, time.Minute)
	demand := NewDemand(store)
	codeRepo := codes.NewMemRepo()
	fleetSvc := fleet.NewService(fleet.NewMemStore())

	h := NewHandler(sessions, demand, codeRepo, fleetSvc, "127.0.0.1:8080/ws")

	engine := gin.New()
	engine.GET("/ticket/player/:accountId", middleware.JWTAuthMiddleware(), h.Ticket)
	engine.GET("/session/:sessionId", middleware.JWTAuthMiddleware(), h.SessionDetail)
	engine.GET("/serverInfo", h.ServerInfo)

	return &testEnv{engine: engine, sessions: sessions, demand: demand, codes: codeRepo, fleet: fleetSvc}
}

func (e *testEnv) do(t *testing.T, path string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authed {
		token, err := utils.GenToken("acct-1")
		if err != nil {
			t.Fatalf("GenToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return body
}

func TestTicketRequiresAuth(t *testing.T) {
	env := newTestEnv()
	if w := env.do(t, "/ticket/player/acct-1?bucketId=1:1:1:2", false); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated ticket = %d, want 401", w.Code)
	}
}

func TestTicketRejectsMalformedBucket(t *testing.T) {
	env := newTestEnv()
	for _, bucket := range []string{"", "1:1:1", "1:1:1:2:extra"} {
		w := env.do(t, "/ticket/player/acct-1?bucketId="+url.QueryEscape(bucket), true)
		if w.Code != http.StatusBadRequest {
			t.Errorf("bucketId %q = %d, want 400", bucket, w.Code)
		}
	}
}

func TestTicketRejectsBlankPlaylist(t *testing.T) {
	env := newTestEnv()
	w := env.do(t, "/ticket/player/acct-1?bucketId="+url.QueryEscape("1:1:1: "), true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("blank playlist = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "playlist.not_found") {
		t.Fatalf("body = %s, want playlist.not_found error code", w.Body.String())
	}
}

func TestTicketMintsSingleUseToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	w := env.do(t, "/ticket/player/acct-1?bucketId=1:1:1:2", true)
	if w.Code != http.StatusOK {
		t.Fatalf("ticket = %d (%s), want 200", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)

	if body["ticketType"] != "mms-player" || body["payload"] != "account" {
		t.Fatalf("descriptor = %+v", body)
	}
	if body["signature"] != "acct-1 "+playlist.DefaultSolo {
		t.Fatalf("signature = %q", body["signature"])
	}

	serviceURL, _ := body["serviceUrl"].(string)
	if !strings.HasPrefix(serviceURL, "ws://") {
		t.Fatalf("serviceUrl = %q, want ws:// scheme", serviceURL)
	}
	i := strings.Index(serviceURL, "?session=")
	if i < 0 {
		t.Fatalf("serviceUrl %q carries no session token", serviceURL)
	}
	token := serviceURL[i+len("?session="):]

	claims, ok, err := env.sessions.ConsumeToken(ctx, token)
	if err != nil || !ok {
		t.Fatalf("minted token does not resolve: ok=%v err=%v", ok, err)
	}
	if claims.AccountID != "acct-1" || claims.Playlist != playlist.DefaultSolo {
		t.Fatalf("claims = %+v", claims)
	}
	if _, ok, _ := env.sessions.ConsumeToken(ctx, token); ok {
		t.Fatal("token resolved twice")
	}

	// the numeric alias must be persisted in canonical form
	stored, _, _ := env.sessions.Playlist(ctx, "acct-1")
	if stored != playlist.DefaultSolo {
		t.Fatalf("persisted playlist = %q", stored)
	}
}

func TestTicketUnknownCustomCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	w := env.do(t, "/ticket/player/acct-1?bucketId=1:1:1:2&player.option.customKey=NOPE", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown code = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "code.not_found") {
		t.Fatalf("body = %s, want code.not_found error code", w.Body.String())
	}
	// the failed lookup must not leave a partial binding behind
	if _, ok, _ := env.sessions.CustomKey(ctx, "acct-1"); ok {
		t.Fatal("rejected code still wrote a custom key binding")
	}
}

func TestTicketCustomCodeBindsServer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.codes.Put(codes.Code{Code: "Duo-Cup", IP: "5.6.7.8", Port: 9999})

	// lookup is case-insensitive
	w := env.do(t, "/ticket/player/acct-1?bucketId=1:1:1:2&player.option.customKey=duo-cup", true)
	if w.Code != http.StatusOK {
		t.Fatalf("ticket with code = %d (%s), want 200", w.Code, w.Body.String())
	}

	binding, ok, err := env.sessions.CustomKey(ctx, "acct-1")
	if err != nil || !ok {
		t.Fatalf("custom key binding missing: ok=%v err=%v", ok, err)
	}
	if binding.IP != "5.6.7.8" || binding.Port != 9999 {
		t.Fatalf("binding = %+v", binding)
	}
}

func TestSessionDetailFromRegistry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	if _, _, err := env.fleet.Register(ctx, "1.2.3.4", 7777, "solo"); err != nil {
		t.Fatalf("register server: %v", err)
	}
	if w := env.do(t, "/ticket/player/acct-1?bucketId=1:1:1:solo", true); w.Code != http.StatusOK {
		t.Fatalf("ticket = %d", w.Code)
	}

	w := env.do(t, "/session/session-abc", true)
	if w.Code != http.StatusOK {
		t.Fatalf("session detail = %d (%s), want 200", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)

	if body["id"] != "session-abc" {
		t.Errorf("id = %v", body["id"])
	}
	if body["serverAddress"] != "1.2.3.4" {
		t.Errorf("serverAddress = %v, want 1.2.3.4", body["serverAddress"])
	}
	if port, _ := body["serverPort"].(float64); int(port) != 7777 {
		t.Errorf("serverPort = %v, want 7777", body["serverPort"])
	}
	if body["buildUniqueId"] != "1" {
		t.Errorf("buildUniqueId = %v, want the bucket's build id", body["buildUniqueId"])
	}
	if body["started"] != false {
		t.Errorf("started = %v, want false", body["started"])
	}
	attrs, _ := body["attributes"].(map[string]interface{})
	if attrs["PLAYLISTNAME_s"] != "solo" {
		t.Errorf("PLAYLISTNAME_s = %v", attrs["PLAYLISTNAME_s"])
	}
}

func TestSessionDetailNoServer(t *testing.T) {
	env := newTestEnv()

	if w := env.do(t, "/ticket/player/acct-1?bucketId=1:1:1:2", true); w.Code != http.StatusOK {
		t.Fatalf("ticket = %d", w.Code)
	}
	w := env.do(t, "/session/session-abc", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("detail without servers = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no_server_found") {
		t.Fatalf("body = %s, want no_server_found error code", w.Body.String())
	}
}

func TestSessionDetailPrefersNegotiatedServer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	// registry has a server, but the negotiation already picked another one
	if _, _, err := env.fleet.Register(ctx, "1.2.3.4", 7777, "solo"); err != nil {
		t.Fatalf("register server: %v", err)
	}
	if w := env.do(t, "/ticket/player/acct-1?bucketId=1:1:1:solo", true); w.Code != http.StatusOK {
		t.Fatalf("ticket = %d", w.Code)
	}
	chosen := ServerBinding{IP: "9.9.9.9", Port: 1111, Playlist: "solo"}
	if err := env.sessions.SetChosenServer(ctx, "acct-1", chosen); err != nil {
		t.Fatalf("SetChosenServer: %v", err)
	}

	w := env.do(t, "/session/session-abc", true)
	body := decodeBody(t, w)
	if body["serverAddress"] != "9.9.9.9" {
		t.Fatalf("serverAddress = %v, want the negotiated server", body["serverAddress"])
	}
}

func TestServerInfoIdle(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, "/serverInfo", false)
	if w.Code != http.StatusOK {
		t.Fatalf("serverInfo = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["server_scaling_required"] != false {
		t.Errorf("server_scaling_required = %v, want false", body["server_scaling_required"])
	}
	if body["gamemode"] != nil {
		t.Errorf("gamemode = %v, want null", body["gamemode"])
	}
}

func TestServerInfoScalingSignal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.demand.AddSearchingOnce(ctx, "acct-1", "solo")
	env.demand.AddSearchingOnce(ctx, "acct-2", "solo")
	env.demand.AddSearchingOnce(ctx, "acct-3", "duos")

	body := decodeBody(t, env.do(t, "/serverInfo", false))
	if body["server_scaling_required"] != true {
		t.Fatalf("no eligible servers but scaling_required = %v", body["server_scaling_required"])
	}
	if body["gamemode"] != "solo" {
		t.Fatalf("gamemode = %v, want the busiest playlist", body["gamemode"])
	}

	// once an eligible server exists the signal clears
	if _, _, err := env.fleet.Register(ctx, "1.2.3.4", 7777, "solo"); err != nil {
		t.Fatalf("register server: %v", err)
	}
	body = decodeBody(t, env.do(t, "/serverInfo", false))
	if body["server_scaling_required"] != false {
		t.Fatalf("eligible server present but scaling_required = %v", body["server_scaling_required"])
	}
}
