package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmcdole/permtree/pkg/permevents"
	"github.com/mmcdole/permtree/pkg/permguard"
	"github.com/mmcdole/permtree/pkg/permid"
	"github.com/mmcdole/permtree/pkg/registry"
)

const testSigningKey = "test-signing-key"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.New(permid.StringIdentity())
	guard := permguard.New(reg)
	bus := permevents.NewBus()
	broadcaster := permevents.NewWebSocketBroadcaster(bus)
	broadcaster.Run()
	t.Cleanup(broadcaster.Stop)
	return New(guard, bus, broadcaster, []byte(testSigningKey))
}

func signToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"})
	signed, err := token.SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestHealthzReturnsStats(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "user_count") {
		t.Errorf("expected healthz body to contain stats fields, got %q", rec.Body.String())
	}
}

func TestAssignUserPermissionRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/users/alice/permissions", strings.NewReader(`{"permission":"a.b"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAssignUserPermissionWithValidToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/users/alice/permissions", strings.NewReader(`{"permission":"a.b"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusNoContent, rec.Body.String())
	}

	checkReq := httptest.NewRequest(http.MethodGet, "/users/alice/has?path=a.b", nil)
	checkRec := httptest.NewRecorder()
	s.ServeHTTP(checkRec, checkReq)
	if !strings.Contains(checkRec.Body.String(), "true") {
		t.Errorf("expected alice to have a.b after the authenticated assignment, got %q", checkRec.Body.String())
	}
}

func TestGroupStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/groups/admins/permissions", strings.NewReader(`{"permission":"a.b:room1"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	statusReq := httptest.NewRequest(http.MethodGet, "/groups/admins/status?path=a.b", nil)
	statusRec := httptest.NewRecorder()
	s.ServeHTTP(statusRec, statusReq)
	if !strings.Contains(statusRec.Body.String(), "room1") {
		t.Errorf("expected the group status to include the argument, got %q", statusRec.Body.String())
	}
}

func TestDefaultHasEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/default/has?path=a.b", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "false") {
		t.Errorf("expected default has=false before any default permission is assigned, got %q", rec.Body.String())
	}
}

func TestMeHasReadsSubjectFromToken(t *testing.T) {
	s := newTestServer(t)
	assignReq := httptest.NewRequest(http.MethodPost, "/users/alice/permissions", strings.NewReader(`{"permission":"a.b"}`))
	assignReq.Header.Set("Authorization", "Bearer "+signToken(t))
	assignRec := httptest.NewRecorder()
	s.ServeHTTP(assignRec, assignReq)
	if assignRec.Code != http.StatusNoContent {
		t.Fatalf("assign status = %d, want %d", assignRec.Code, http.StatusNoContent)
	}

	req := httptest.NewRequest(http.MethodGet, "/me/has?path=a.b", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "true") {
		t.Errorf("expected /me/has to reflect alice's permission from the token subject, got %q", rec.Body.String())
	}
}

func TestEventsWithoutBroadcasterReturnsNotFound(t *testing.T) {
	reg := registry.New(permid.StringIdentity())
	guard := permguard.New(reg)
	bus := permevents.NewBus()
	s := New(guard, bus, nil, []byte(testSigningKey))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRejectsTokenWithWrongSigningKey(t *testing.T) {
	s := newTestServer(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"})
	signed, err := token.SignedString([]byte("wrong-key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/users/alice/permissions", strings.NewReader(`{"permission":"a.b"}`))
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
