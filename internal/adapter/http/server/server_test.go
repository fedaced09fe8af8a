package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/droply/config"
	"github.com/Temutjin2k/droply/internal/adapter/http/handler"
	"github.com/Temutjin2k/droply/internal/adapter/memory"
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/internal/service/auth"
	"github.com/Temutjin2k/droply/internal/service/lifecycle"
	"github.com/Temutjin2k/droply/internal/service/mapview"
	"github.com/Temutjin2k/droply/internal/service/resolver"
	"github.com/Temutjin2k/droply/internal/service/tracker"
	"github.com/Temutjin2k/droply/pkg/logger"
	"github.com/Temutjin2k/droply/pkg/trm"
	ws "github.com/Temutjin2k/droply/pkg/wsHub"
)

type testEnv struct {
	srv    *httptest.Server
	store  *memory.PackageStore
	tokens *auth.TokenService
}

func newPackageEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewPackageStore()
	res := resolver.New(nil, resolver.DefaultDefaults, logger.Nop())
	proj := mapview.NewProjector(res, 2, logger.Nop())
	svc := lifecycle.New(store, store, nil, nil, res, proj, trm.Nop{}, logger.Nop())
	tokens := auth.NewTokenService("secret", time.Hour, logger.Nop())

	api, err := New(config.Config{Mode: types.PackageService}, Options{Auth: tokens, Packages: svc}, logger.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: store, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.tokens.Issue(context.Background(), &models.User{ID: userID, Name: userID})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func createBody() map[string]any {
	return map[string]any{
		"title":           "documents",
		"pickup_address":  "1 Rue Didouche Mourad",
		"dropoff_address": "Bab Ezzouar",
		"recipient_phone": "+213 555 12 34 56",
	}
}

func TestHealth(t *testing.T) {
	env := newPackageEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "available", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCreatePackage(t *testing.T) {
	env := newPackageEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/packages", "", createBody(), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/packages", "alice", map[string]any{"pickup_address": "x"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "dropoff_address")

	resp, _ = env.do(t, http.MethodPost, "/packages", "alice", map[string]any{"title": "x", "unknown": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/packages", "alice", createBody(), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pkg, ok := body["package"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pending", pkg["status"])
	assert.Equal(t, "alice", pkg["sender_id"])
}

func TestLifecycleOverHTTP(t *testing.T) {
	env := newPackageEnv(t)

	_, body := env.do(t, http.MethodPost, "/packages", "alice", createBody(), nil)
	id := int64(body["package"].(map[string]any)["id"].(float64))
	path := "/packages/" + jsonNumber(id)

	resp, _ := env.do(t, http.MethodPost, path+"/accept", "bob", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, path+"/accept", "carol", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, path+"/start", "alice", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, path+"/start", "bob", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in_transit", body["package"].(map[string]any)["status"])

	resp, body = env.do(t, http.MethodGet, path, "alice", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	details := body["details"].(map[string]any)
	assert.NotNil(t, details["tracking"])

	resp, body = env.do(t, http.MethodGet, "/packages?view=deliveries", "bob", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["active_count"])

	resp, _ = env.do(t, http.MethodGet, "/packages?view=bogus", "bob", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/packages/abc", "bob", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/packages/999", "bob", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMapETag(t *testing.T) {
	env := newPackageEnv(t)
	env.do(t, http.MethodPost, "/packages", "alice", createBody(), nil)

	resp, body := env.do(t, http.MethodGet, "/map", "bob", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)
	markers := body["markers"].([]any)
	require.Len(t, markers, 1)
	assert.Equal(t, "available", markers[0].(map[string]any)["category"])

	resp, _ = env.do(t, http.MethodGet, "/map", "bob", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	// the sender sees a different projection
	resp, _ = env.do(t, http.MethodGet, "/map", "alice", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidToken(t *testing.T) {
	env := newPackageEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/packages", "", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeviceStream(t *testing.T) {
	store := memory.NewPackageStore()
	bob := "bob"
	_, err := store.Insert(context.Background(), &models.Package{
		SenderID:       "alice",
		DelivererID:    &bob,
		Title:          "documents",
		PickupAddress:  "a",
		DropoffAddress: "b",
		Status:         types.StatusInTransit,
	})
	require.NoError(t, err)

	registry := tracker.NewRegistry(store, tracker.DefaultConfig, logger.Nop())
	t.Cleanup(registry.Close)
	hub := ws.NewConnHub(logger.Nop())
	tokens := auth.NewTokenService("secret", time.Hour, logger.Nop())

	api, err := New(config.Config{Mode: types.TrackerService}, Options{
		Auth:    tokens,
		Tracker: handler.NewTracker(registry, hub, logger.Nop()),
	}, logger.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	token, err := tokens.Issue(context.Background(), &models.User{ID: bob})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/devices?location_permission=granted&access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "location_request", msg["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "location_update", "latitude": 36.72, "longitude": 3.08}))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "tracking", msg["type"])
	assert.Equal(t, true, msg["enabled"])

	require.Eventually(t, func() bool {
		pkg, err := store.FindOne(context.Background(), models.PackageFilter{DelivererID: &bob})
		return err == nil && pkg.CurrentLatitude != nil && *pkg.CurrentLatitude == 36.72
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		st, ok := registry.Status(bob)
		return ok && st.State == tracker.StateActive
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeviceStream_RequiresAuth(t *testing.T) {
	registry := tracker.NewRegistry(memory.NewPackageStore(), tracker.DefaultConfig, logger.Nop())
	t.Cleanup(registry.Close)

	api, err := New(config.Config{Mode: types.TrackerService}, Options{
		Auth:    auth.NewTokenService("secret", time.Hour, logger.Nop()),
		Tracker: handler.NewTracker(registry, ws.NewConnHub(logger.Nop()), logger.Nop()),
	}, logger.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/devices", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
