package fleet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newHandlerTestRouter(authKey string) (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemStore())
	h := NewHandler(svc, authKey)

	r := gin.New()
	r.POST("/addserver", h.Register)
	r.POST("/heartbeat", h.Heartbeat)
	r.POST("/removeserver", h.Remove)
	r.GET("/serverlist", h.List)
	return r, svc
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRejectsBadAuthKey(t *testing.T) {
	r, _ := newHandlerTestRouter("fleet-secret")

	w := post(r, "/addserver", `{"ip":"1.2.3.4","port":7777,"playlist":"solo","serverKey":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("register with wrong key = %d, want 401", w.Code)
	}
}

func TestRegisterStatusCodesDistinguishCreateFromUpdate(t *testing.T) {
	r, _ := newHandlerTestRouter("fleet-secret")
	body := `{"ip":"1.2.3.4","port":7777,"playlist":"solo","serverKey":"fleet-secret"}`

	w := post(r, "/addserver", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("first register = %d (%s), want 201", w.Code, w.Body.String())
	}
	var first map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	secret, _ := first["serverSecretKey"].(string)
	if secret == "" {
		t.Fatal("register response carries no serverSecretKey")
	}

	w = post(r, "/addserver", body)
	if w.Code != http.StatusOK {
		t.Fatalf("re-register = %d, want 200", w.Code)
	}
	var second map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &second)
	if second["serverSecretKey"] != secret {
		t.Fatal("re-registration rotated the secret key")
	}
	if second["serverId"] != first["serverId"] {
		t.Fatal("re-registration changed the server id")
	}
}

func TestHeartbeatEndpoint(t *testing.T) {
	r, _ := newHandlerTestRouter("")

	w := post(r, "/addserver", `{"ip":"1.2.3.4","port":7777,"playlist":"solo","serverKey":"anything"}`)
	var created map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	secret, _ := created["serverSecretKey"].(string)

	// joinable:false must bind; it is a value, not a missing field
	w = post(r, "/heartbeat", `{"serverKey":"`+secret+`","ip":"1.2.3.4","port":7777,"joinable":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("heartbeat = %d (%s), want 200", w.Code, w.Body.String())
	}

	w = post(r, "/heartbeat", `{"serverKey":"bogus","ip":"1.2.3.4","port":7777,"joinable":true}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("heartbeat with unknown key = %d, want 404", w.Code)
	}

	w = post(r, "/heartbeat", `{"serverKey":"x","ip":"1.2.3.4","port":7777}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("heartbeat without joinable = %d, want 400", w.Code)
	}
}

func TestRemoveEndpoint(t *testing.T) {
	r, _ := newHandlerTestRouter("")

	w := post(r, "/addserver", `{"ip":"1.2.3.4","port":7777,"playlist":"solo","serverKey":"anything"}`)
	var created map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	secret, _ := created["serverSecretKey"].(string)

	if w = post(r, "/removeserver", `{"serverKey":"`+secret+`","ip":"1.2.3.4","port":7777}`); w.Code != http.StatusOK {
		t.Fatalf("remove = %d, want 200", w.Code)
	}
	if w = post(r, "/removeserver", `{"serverKey":"`+secret+`","ip":"1.2.3.4","port":7777}`); w.Code != http.StatusNotFound {
		t.Fatalf("second remove = %d, want 404", w.Code)
	}
}

func TestServerListNeverNull(t *testing.T) {
	r, _ := newHandlerTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/serverlist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("serverlist = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) == "null" {
		t.Fatal("empty registry must serialize as [], not null")
	}
}
