package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
	"github.com/KreatechIT/mrs-sub000/internal/client/token"
	"github.com/KreatechIT/mrs-sub000/internal/shared/logger"
	"github.com/KreatechIT/mrs-sub000/internal/shared/models"
)

func tokenResponse(access, refresh string) models.TokenResponse {
	return models.TokenResponse{AccessToken: access, RefreshToken: refresh}
}

// staticTokens satisfies api.TokenProvider without hitting any auth backend.
type staticTokens struct {
	access string
}

func (s *staticTokens) ValidAccessToken(context.Context) string { return s.access }

func (s *staticTokens) Refresh(context.Context) (token.AuthTokens, error) {
	return token.AuthTokens{Access: s.access}, nil
}

// newTestClient wires an api.Client against an in-process server whose hit
// count the tests can assert on.
func newTestClient(t *testing.T, handler http.Handler) (*api.Client, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return api.New(srv.URL, &staticTokens{access: "test-token"}, logger.Nop()), &calls
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestDecodeListEnvelopes(t *testing.T) {
	bare := json.RawMessage(`[{"uuid":"a"},{"uuid":"b"}]`)
	wrapped := json.RawMessage(`{"data":[{"uuid":"a"},{"uuid":"b"}]}`)

	type row struct {
		UUID string `json:"uuid"`
	}
	for name, data := range map[string]json.RawMessage{"bare": bare, "wrapped": wrapped} {
		got, err := decodeList[row](data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(got) != 2 || got[0].UUID != "a" {
			t.Errorf("%s: got %+v", name, got)
		}
	}

	if _, err := decodeList[row](json.RawMessage(`"nope"`)); err == nil {
		t.Error("expected error for non-list payload")
	}
}

func TestLooseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`50`, 50},
		{`"50"`, 50},
		{`"0.25"`, 0.25},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		var n looseNumber
		if err := json.Unmarshal([]byte(tt.in), &n); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if float64(n) != tt.want {
			t.Errorf("%s: got %v, want %v", tt.in, float64(n), tt.want)
		}
	}

	var n looseNumber
	if err := json.Unmarshal([]byte(`"abc"`), &n); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestLooseString(t *testing.T) {
	var s looseString
	if err := json.Unmarshal([]byte(`"  Gold Tier  "`), &s); err != nil {
		t.Fatal(err)
	}
	if string(s) != "Gold Tier" {
		t.Errorf("got %q", s)
	}
}
