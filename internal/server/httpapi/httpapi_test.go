package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/KreatechIT/mrs-sub000/internal/server/config"
	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/server/repository/sqlite"
	"github.com/KreatechIT/mrs-sub000/internal/server/service"
	"github.com/KreatechIT/mrs-sub000/internal/shared/logger"
)

type testServer struct {
	handler  http.Handler
	repo     *sqlite.Repository
	services *service.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	repo, err := sqlite.New("file:" + filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	cfg := config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		MediaDir:        filepath.Join(dir, "media"),
		CORSOrigins:     []string{"*"},
	}
	svcs := service.NewServices(repo, cfg, logger.Nop())
	return &testServer{
		handler:  NewRouter(svcs, cfg, logger.Nop()),
		repo:     repo,
		services: svcs,
	}
}

func (ts *testServer) seedAdmin(t *testing.T) map[string]string {
	t.Helper()
	if _, err := ts.services.Auth.RegisterAdmin(context.Background(), "admin", "secret123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	rr := doJSON(t, ts.handler, "POST", "/login/admin-access-token/",
		map[string]string{"username": "admin", "password": "secret123"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin login: %d %s", rr.Code, rr.Body.String())
	}
	var tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &tokens)
	if tokens.Access == "" || tokens.Refresh == "" {
		t.Fatalf("tokens empty: %s", rr.Body.String())
	}
	return map[string]string{"Authorization": "Bearer " + tokens.Access, "refresh": tokens.Refresh}
}

func (ts *testServer) seedMember(t *testing.T, loginCode string) models.Member {
	t.Helper()
	m, err := ts.repo.CreateMember(context.Background(), models.Member{
		Username:  "alice",
		Tier:      "gold",
		LoginCode: loginCode,
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return m
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	buf := &bytes.Buffer{}
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	}
	req, _ := http.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		if k == "refresh" {
			continue
		}
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func doItemForm(t *testing.T, h http.Handler, method, path string, fields map[string]string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		if k == "refresh" {
			continue
		}
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rr := doJSON(t, ts.handler, "GET", "/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health: %d", rr.Code)
	}
}

func TestAdminLoginAndTokenLifecycle(t *testing.T) {
	ts := newTestServer(t)
	authz := ts.seedAdmin(t)

	// Verify the issued access token.
	token := authz["Authorization"][len("Bearer "):]
	rr := doJSON(t, ts.handler, "POST", "/login/verify-token/", map[string]string{"token": token}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rr.Code, rr.Body.String())
	}

	// Refresh rotates the pair.
	rr = doJSON(t, ts.handler, "POST", "/login/refresh-token/", map[string]string{"refresh": authz["refresh"]}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rr.Code, rr.Body.String())
	}
	var rotated struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &rotated)
	if rotated.Access == "" || rotated.Refresh == "" {
		t.Fatalf("rotated tokens empty: %s", rr.Body.String())
	}

	// The spent refresh token is gone.
	rr = doJSON(t, ts.handler, "POST", "/login/refresh-token/", map[string]string{"refresh": authz["refresh"]}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("spent refresh accepted: %d", rr.Code)
	}

	// Logout kills the rotated refresh token.
	rr = doJSON(t, ts.handler, "POST", "/login/logout/", map[string]string{"refresh": rotated.Refresh}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: %d", rr.Code)
	}
	rr = doJSON(t, ts.handler, "POST", "/login/refresh-token/", map[string]string{"refresh": rotated.Refresh}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: %d", rr.Code)
	}
}

func TestWrongPasswordRejected(t *testing.T) {
	ts := newTestServer(t)
	if _, err := ts.services.Auth.RegisterAdmin(context.Background(), "admin", "secret123"); err != nil {
		t.Fatal(err)
	}
	rr := doJSON(t, ts.handler, "POST", "/login/admin-access-token/",
		map[string]string{"username": "admin", "password": "wrong"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rr.Code)
	}
}

func TestItemsCRUDAndArchive(t *testing.T) {
	ts := newTestServer(t)
	authz := ts.seedAdmin(t)

	rr := doItemForm(t, ts.handler, "POST", "/lucky-spin/lucky-spin-items/", map[string]string{
		"reward_name": "Free Spin",
		"probability": "30",
		"unlimited":   "true",
		"quantity":    "0",
	}, authz)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	var item struct {
		UUID        string  `json:"uuid"`
		RewardName  string  `json:"reward_name"`
		Probability float64 `json:"probability"`
		Archived    bool    `json:"archived"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &item)
	if item.UUID == "" || item.RewardName != "Free Spin" {
		t.Fatalf("bad item: %s", rr.Body.String())
	}

	// Update.
	rr = doItemForm(t, ts.handler, "PUT", "/lucky-spin/lucky-spin-items/"+item.UUID+"/", map[string]string{
		"reward_name": "Mega Spin",
		"probability": "10",
		"unlimited":   "false",
		"quantity":    "5",
	}, authz)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}

	// Archive drops it from the default listing.
	rr = doJSON(t, ts.handler, "PATCH", "/lucky-spin/lucky-spin-items/"+item.UUID+"/archive/", nil, authz)
	if rr.Code != http.StatusOK {
		t.Fatalf("archive: %d %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, ts.handler, "GET", "/lucky-spin/lucky-spin-items/", nil, authz)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
	var list struct {
		Data []json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list.Data) != 0 {
		t.Fatalf("archived item still listed: %s", rr.Body.String())
	}

	// Delete.
	rr = doJSON(t, ts.handler, "DELETE", "/lucky-spin/lucky-spin-items/"+item.UUID+"/", nil, authz)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: %d", rr.Code)
	}
	rr = doJSON(t, ts.handler, "GET", "/lucky-spin/lucky-spin-items/"+item.UUID+"/", nil, authz)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted item still found: %d", rr.Code)
	}
}

func TestItemValidationRejected(t *testing.T) {
	ts := newTestServer(t)
	authz := ts.seedAdmin(t)

	rr := doItemForm(t, ts.handler, "POST", "/lucky-spin/lucky-spin-items/", map[string]string{
		"reward_name": "Bad",
		"probability": "150",
		"unlimited":   "true",
	}, authz)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid probability accepted: %d", rr.Code)
	}
}

func TestSequencesAndReorder(t *testing.T) {
	ts := newTestServer(t)
	authz := ts.seedAdmin(t)

	createItem := func(name string) string {
		rr := doItemForm(t, ts.handler, "POST", "/lucky-spin/lucky-spin-items/", map[string]string{
			"reward_name": name,
			"probability": "50",
			"unlimited":   "true",
		}, authz)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create %s: %d %s", name, rr.Code, rr.Body.String())
		}
		var it struct {
			UUID string `json:"uuid"`
		}
		_ = json.Unmarshal(rr.Body.Bytes(), &it)
		return it.UUID
	}
	a, b := createItem("A"), createItem("B")

	addSeq := func(itemUUID string) string {
		rr := doJSON(t, ts.handler, "POST", "/lucky-spin/lucky-spin-sequences/",
			map[string]string{"item_uuid": itemUUID}, authz)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create sequence: %d %s", rr.Code, rr.Body.String())
		}
		var s struct {
			UUID string `json:"uuid"`
		}
		_ = json.Unmarshal(rr.Body.Bytes(), &s)
		return s.UUID
	}
	seqA, seqB := addSeq(a), addSeq(b)

	// Swap orders in one batch.
	rr := doJSON(t, ts.handler, "POST", "/lucky-spin/lucky-spin-sequences/change-spin-sequences/",
		map[string]any{"sequences": []map[string]any{
			{"item_order": 1, "sequence_uuid": seqA},
			{"item_order": 0, "sequence_uuid": seqB},
		}}, authz)
	if rr.Code != http.StatusOK {
		t.Fatalf("reorder: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, ts.handler, "GET", "/lucky-spin/lucky-spin-sequences/", nil, authz)
	var list struct {
		Data []struct {
			UUID      string `json:"uuid"`
			ItemOrder int64  `json:"item_order"`
			ItemName  string `json:"item_name"`
		} `json:"data"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list.Data) != 2 || list.Data[0].UUID != seqB || list.Data[1].UUID != seqA {
		t.Fatalf("order not applied: %s", rr.Body.String())
	}
	if list.Data[0].ItemName != "B" {
		t.Fatalf("item_name not joined: %s", rr.Body.String())
	}

	// Duplicate order in the batch is rejected before any change.
	rr = doJSON(t, ts.handler, "POST", "/lucky-spin/lucky-spin-sequences/change-spin-sequences/",
		map[string]any{"sequences": []map[string]any{
			{"item_order": 0, "sequence_uuid": seqA},
			{"item_order": 0, "sequence_uuid": seqB},
		}}, authz)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("duplicate order accepted: %d", rr.Code)
	}
}

func TestMemberLoginAndSpin(t *testing.T) {
	ts := newTestServer(t)
	authz := ts.seedAdmin(t)
	member := ts.seedMember(t, "CODE42")

	// Put one unlimited item on the wheel.
	rr := doItemForm(t, ts.handler, "POST", "/lucky-spin/lucky-spin-items/", map[string]string{
		"reward_name": "Free Spin",
		"probability": "100",
		"unlimited":   "true",
	}, authz)
	var it struct {
		UUID string `json:"uuid"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &it)
	rr = doJSON(t, ts.handler, "POST", "/lucky-spin/lucky-spin-sequences/",
		map[string]string{"item_uuid": it.UUID}, authz)
	if rr.Code != http.StatusCreated {
		t.Fatalf("sequence: %d", rr.Code)
	}

	// Member logs in with their code.
	rr = doJSON(t, ts.handler, "POST", "/login/member-code/", map[string]string{"login_code": "CODE42"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("member login: %d %s", rr.Code, rr.Body.String())
	}
	var tokens struct {
		Access string `json:"access"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &tokens)
	memberAuthz := map[string]string{"Authorization": "Bearer " + tokens.Access}

	// One spin.
	rr = doJSON(t, ts.handler, "POST", "/member/"+member.UUID+"/one-spin/", nil, memberAuthz)
	if rr.Code != http.StatusOK {
		t.Fatalf("one-spin: %d %s", rr.Code, rr.Body.String())
	}
	var result struct {
		RewardName string `json:"reward_name"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &result)
	if result.RewardName != "Free Spin" {
		t.Fatalf("bad result: %s", rr.Body.String())
	}

	// Ten spins.
	rr = doJSON(t, ts.handler, "POST", "/member/"+member.UUID+"/ten-spin/", nil, memberAuthz)
	if rr.Code != http.StatusOK {
		t.Fatalf("ten-spin: %d %s", rr.Code, rr.Body.String())
	}
	var batch struct {
		Data []struct {
			RewardName string `json:"reward_name"`
		} `json:"data"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &batch)
	if len(batch.Data) != 10 {
		t.Fatalf("ten-spin returned %d results", len(batch.Data))
	}

	// History records the spins.
	rr = doJSON(t, ts.handler, "GET", "/member/"+member.UUID+"/spin-history/", nil, memberAuthz)
	if rr.Code != http.StatusOK {
		t.Fatalf("history: %d", rr.Code)
	}

	// A member cannot spin for somebody else.
	rr = doJSON(t, ts.handler, "POST", "/member/"+fmt.Sprintf("%s-other", member.UUID)+"/one-spin/", nil, memberAuthz)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cross-member spin: %d", rr.Code)
	}
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	ts := newTestServer(t)
	ts.seedMember(t, "CODE7")

	rr := doJSON(t, ts.handler, "POST", "/login/member-code/", map[string]string{"login_code": "CODE7"}, nil)
	var tokens struct {
		Access string `json:"access"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &tokens)
	memberAuthz := map[string]string{"Authorization": "Bearer " + tokens.Access}

	rr = doJSON(t, ts.handler, "GET", "/lucky-spin/lucky-spin-items/", nil, memberAuthz)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("member reached admin endpoint: %d", rr.Code)
	}
	rr = doJSON(t, ts.handler, "GET", "/member/members/", nil, memberAuthz)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("member listed members: %d", rr.Code)
	}
}

func TestMissingBearerUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	rr := doJSON(t, ts.handler, "GET", "/lucky-spin/lucky-spin-items/", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 got %d", rr.Code)
	}
}
