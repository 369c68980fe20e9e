package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thermocloud/core/internal/auth"
	"github.com/thermocloud/core/internal/identity"
	"github.com/thermocloud/core/internal/infrastructure/config"
	"github.com/thermocloud/core/internal/infrastructure/logging"
	"github.com/thermocloud/core/internal/thermo"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// setupTestServer builds a server over an in-memory database and returns
// it with its router and user repository.
func setupTestServer(t *testing.T) (*Server, http.Handler, auth.UserRepository) {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_staff INTEGER NOT NULL DEFAULT 0 CHECK (is_staff IN (0, 1)),
			is_active INTEGER NOT NULL DEFAULT 1 CHECK (is_active IN (0, 1)),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE thermometers (
			id TEXT PRIMARY KEY,
			owner_id TEXT REFERENCES users(id) ON DELETE CASCADE,
			display_name TEXT NOT NULL DEFAULT 'Thermometer Name Not Provided',
			registered INTEGER NOT NULL DEFAULT 0 CHECK (registered IN (0, 1)),
			registered_at TEXT,
			created_at TEXT NOT NULL,
			CHECK (
				(registered = 0 AND owner_id IS NULL AND registered_at IS NULL) OR
				(registered = 1 AND owner_id IS NOT NULL AND registered_at IS NOT NULL)
			)
		) STRICT;

		CREATE TABLE temperature_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thermometer_id TEXT NOT NULL REFERENCES thermometers(id) ON DELETE CASCADE,
			degrees_micro INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	users := auth.NewUserRepository(db)
	repo := thermo.NewSQLiteRepository(db)
	policy := thermo.Policy{}

	server, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS: config.WebSocketConfig{
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    60,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testJWTSecret, AccessTokenTTL: 15},
		},
		Logger:       logging.Default(),
		Users:        users,
		Thermometers: thermo.NewThermometerService(repo, policy),
		Readings:     thermo.NewReadingService(repo, policy),
		Version:      "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	server.hub = NewHub(server.wsCfg, server.logger)

	return server, server.buildRouter(), users
}

// createTestUser inserts a user and returns a bearer token for it.
func createTestUser(t *testing.T, users auth.UserRepository, username string, staff bool) (string, string) {
	t.Helper()

	hash, err := auth.HashPassword("secret-" + username)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	user := &auth.User{
		Username:     username,
		PasswordHash: hash,
		Staff:        staff,
		IsActive:     true,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}

	token, err := auth.GenerateAccessToken(user, testJWTSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return user.ID, token
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	_, router, _ := setupTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["status"] != "ok" {
		t.Errorf("health body = %v", body)
	}
}

func TestLogin(t *testing.T) {
	_, router, users := setupTestServer(t)
	createTestUser(t, users, "alice", false)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret-alice",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[map[string]any](t, rec)
	if body["access_token"] == "" || body["token_type"] != "Bearer" {
		t.Errorf("login body = %v", body)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "nobody",
		"password": "whatever",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d, want 401", rec.Code)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	_, router, _ := setupTestServer(t)

	for _, path := range []string{"/api/v1/thermometers", "/api/v1/temperature-readings"} {
		rec := doRequest(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("GET %s without token = %d, want 403", path, rec.Code)
		}
	}

	rec := doRequest(t, router, http.MethodPost, "/api/v1/thermometers", "garbage-token", map[string]any{})
	if rec.Code != http.StatusForbidden {
		t.Errorf("POST with bad token = %d, want 403", rec.Code)
	}
}

func TestCreateThermometer(t *testing.T) {
	_, router, users := setupTestServer(t)
	aliceID, aliceToken := createTestUser(t, users, "alice", false)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/thermometers", aliceToken, map[string]any{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[map[string]any](t, rec)
	if body["display_name"] != thermo.DefaultDisplayName {
		t.Errorf("display_name = %v, want default", body["display_name"])
	}
	if body["registered"] != true {
		t.Errorf("registered = %v, want true", body["registered"])
	}
	owner, _ := body["owner"].(string)
	if !strings.HasSuffix(owner, "/users/"+aliceID) {
		t.Errorf("owner = %q, want URL ending /users/%s", owner, aliceID)
	}
	thermID, _ := body["therm_id"].(string)
	if url, _ := body["url"].(string); url != "/api/v1/thermometers/"+thermID {
		t.Errorf("url = %q, want /api/v1/thermometers/%s", url, thermID)
	}
}

func TestCreateThermometerWithReadingsRejected(t *testing.T) {
	_, router, users := setupTestServer(t)
	_, token := createTestUser(t, users, "alice", false)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/thermometers", token, map[string]any{
		"temperatures": []map[string]any{{"degrees_c": 21.5}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create with readings = %d, want 400", rec.Code)
	}
}

func TestThermometerOwnershipIsolation(t *testing.T) {
	_, router, users := setupTestServer(t)
	_, aliceToken := createTestUser(t, users, "alice", false)
	_, bobToken := createTestUser(t, users, "bob", false)
	_, rootToken := createTestUser(t, users, "root", true)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/thermometers", aliceToken, map[string]any{
		"display_name": "Greenhouse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	created := decodeBody[map[string]any](t, rec)
	thermID := created["therm_id"].(string)

	// Owner sees it in the list and in detail.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/thermometers", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if list := decodeBody[[]map[string]any](t, rec); len(list) != 1 {
		t.Errorf("alice's list = %d items, want 1", len(list))
	}

	// Another user's list is empty and detail access is denied.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/thermometers", bobToken, nil)
	if list := decodeBody[[]map[string]any](t, rec); len(list) != 0 {
		t.Errorf("bob's list = %d items, want 0", len(list))
	}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/thermometers/"+thermID, bobToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("bob's get = %d, want 403", rec.Code)
	}

	// Staff sees everything.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/thermometers/"+thermID, rootToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("root's get = %d, want 200", rec.Code)
	}

	// Unknown id is a 404, not a 403.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/thermometers/f47ac10b-58cc-4372-a567-0e02b2c3d400", aliceToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing get = %d, want 404", rec.Code)
	}
}

func TestUpdateThermometerAppendsReadings(t *testing.T) {
	_, router, users := setupTestServer(t)
	_, token := createTestUser(t, users, "alice", false)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/thermometers", token, map[string]any{})
	created := decodeBody[map[string]any](t, rec)
	thermID := created["therm_id"].(string)

	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		rec = doRequest(t, router, method, "/api/v1/thermometers/"+thermID, token, map[string]any{
			"display_name": "Cellar",
			"temperatures": []map[string]any{{"degrees_c": 28.000001}},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body = %s", method, rec.Code, rec.Body.String())
		}
	}

	body := decodeBody[map[string]any](t, rec)
	if body["display_name"] != "Cellar" {
		t.Errorf("display_name = %v, want Cellar", body["display_name"])
	}
	temps, _ := body["temperatures"].([]any)
	if len(temps) != 2 {
		t.Fatalf("temperatures = %d, want 2", len(temps))
	}

	// Six-decimal precision survives the full HTTP round-trip.
	if !bytes.Contains(rec.Body.Bytes(), []byte("28.000001")) {
		t.Errorf("response lost reading precision: %s", rec.Body.String())
	}

	// Over-long display names are rejected.
	rec = doRequest(t, router, http.MethodPatch, "/api/v1/thermometers/"+thermID, token, map[string]any{
		"display_name": strings.Repeat("x", 76),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("over-long name = %d, want 400", rec.Code)
	}
}

func TestDeleteThermometer(t *testing.T) {
	_, router, users := setupTestServer(t)
	_, aliceToken := createTestUser(t, users, "alice", false)
	_, bobToken := createTestUser(t, users, "bob", false)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/thermometers", aliceToken, map[string]any{})
	thermID := decodeBody[map[string]any](t, rec)["therm_id"].(string)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/thermometers/"+thermID, bobToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("bob's delete = %d, want 403", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/thermometers/"+thermID, aliceToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/thermometers/"+thermID, aliceToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestRegisterEndpointConflict(t *testing.T) {
	_, router, users := setupTestServer(t)
	_, aliceToken := createTestUser(t, users, "alice", false)
	_, bobToken := createTestUser(t, users, "bob", false)

	// Service-created thermometers are born registered, so a register
	// attempt is a permanent conflict.
	rec := doRequest(t, router, http.MethodPost, "/api/v1/thermometers", aliceToken, map[string]any{})
	thermID := decodeBody[map[string]any](t, rec)["therm_id"].(string)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/thermometers/"+thermID+"/register", bobToken, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("register on registered = %d, want 409", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/thermometers/f47ac10b-58cc-4372-a567-0e02b2c3d400/register", bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("register on missing = %d, want 404", rec.Code)
	}
}

func TestReadingsReadOnly(t *testing.T) {
	_, router, users := setupTestServer(t)
	_, token := createTestUser(t, users, "alice", false)

	// Seed a reading through the only legal path.
	rec := doRequest(t, router, http.MethodPost, "/api/v1/thermometers", token, map[string]any{
		"display_name": "Attic",
	})
	thermID := decodeBody[map[string]any](t, rec)["therm_id"].(string)
	rec = doRequest(t, router, http.MethodPatch, "/api/v1/thermometers/"+thermID, token, map[string]any{
		"temperatures": []map[string]any{{"degrees_c": 19.25}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("append status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/temperature-readings", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list readings = %d", rec.Code)
	}
	list := decodeBody[[]map[string]any](t, rec)
	if len(list) != 1 {
		t.Fatalf("readings = %d, want 1", len(list))
	}
	if list[0]["thermometer"] != "Attic" {
		t.Errorf("thermometer = %v, want parent display name", list[0]["thermometer"])
	}
	readingID := int64(list[0]["id"].(float64))

	rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/v1/temperature-readings/%d", readingID), token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get reading = %d, want 200", rec.Code)
	}

	// Every write method is structurally forbidden.
	writeMethods := []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	for _, method := range writeMethods {
		rec = doRequest(t, router, method, "/api/v1/temperature-readings", token, map[string]any{"degrees_c": 1})
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s collection = %d, want 405", method, rec.Code)
		}
		rec = doRequest(t, router, method, fmt.Sprintf("/api/v1/temperature-readings/%d", readingID), token, map[string]any{"degrees_c": 1})
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s detail = %d, want 405", method, rec.Code)
		}
	}
}

func TestWSTicketFlow(t *testing.T) {
	server, router, users := setupTestServer(t)
	_, token := createTestUser(t, users, "alice", false)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/auth/ws-ticket", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ws-ticket status = %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	ticket, _ := body["ticket"].(string)
	if ticket == "" {
		t.Fatal("no ticket in response")
	}

	// Single use: first validation consumes it.
	entry, ok := server.validateTicket(ticket)
	if !ok {
		t.Fatal("fresh ticket did not validate")
	}
	if entry.principal.ID == "" {
		t.Error("ticket carries no principal")
	}
	if _, ok := server.validateTicket(ticket); ok {
		t.Error("ticket validated twice")
	}
}

func TestGetUser(t *testing.T) {
	_, router, users := setupTestServer(t)
	aliceID, aliceToken := createTestUser(t, users, "alice", false)
	bobID, _ := createTestUser(t, users, "bob", false)
	_, rootToken := createTestUser(t, users, "root", true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/users/"+aliceID, aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("self get = %d, want 200", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/users/"+bobID, aliceToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-user get = %d, want 403", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/users/"+aliceID, rootToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("staff get = %d, want 200", rec.Code)
	}
}

func TestBroadcastScopedToOwner(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{
		MaxMessageSize: 4096,
		PingInterval:   30,
		PongTimeout:    60,
	}, logging.Default())

	newClient := func(p identity.Principal) *WSClient {
		c := &WSClient{
			hub:  hub,
			send: make(chan []byte, 4),
			subscriptions: map[string]struct{}{
				thermo.EventReadingRecorded:    {},
				thermo.EventThermometerDeleted: {},
			},
			principal: p,
		}
		hub.Register(c)
		return c
	}
	owner := newClient(identity.Principal{ID: "alice"})
	other := newClient(identity.Principal{ID: "bob"})
	staff := newClient(identity.Principal{ID: "root", Staff: true})

	hub.Broadcast(thermo.EventReadingRecorded, map[string]any{
		"therm_id":  "t-1",
		"owner":     "alice",
		"degrees_c": "21.500000",
	})

	if got := len(owner.send); got != 1 {
		t.Errorf("owner received %d messages, want 1", got)
	}
	if got := len(other.send); got != 0 {
		t.Errorf("non-owner received %d messages, want 0", got)
	}
	if got := len(staff.send); got != 1 {
		t.Errorf("staff received %d messages, want 1", got)
	}

	// An event without an owner (staff acting on a placeholder) stays
	// staff-only.
	hub.Broadcast(thermo.EventThermometerDeleted, map[string]any{
		"therm_id": "t-2",
		"owner":    "",
	})

	if got := len(owner.send); got != 1 {
		t.Errorf("owner received %d messages after placeholder event, want 1", got)
	}
	if got := len(staff.send); got != 2 {
		t.Errorf("staff received %d messages after placeholder event, want 2", got)
	}
}
