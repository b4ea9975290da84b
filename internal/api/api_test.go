package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blog-content-api/internal/api"
	"github.com/blog-content-api/internal/config"
	"github.com/blog-content-api/internal/mocks"
	"github.com/blog-content-api/internal/monitor"
	"github.com/blog-content-api/internal/service"
	"github.com/blog-content-api/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router *gin.Engine
	repos  *mocks.MockRepositories
	health *mocks.MockHealthChecker
}

func setupTestRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
		Wallet: config.WalletConfig{
			CoinsPerUnit: 10,
			BonusPercent: 15,
			VIPPrice:     300,
			BonusPolicy:  config.BonusZeroBalance,
		},
		Upload: config.UploadConfig{
			AvatarDir:     t.TempDir(),
			MaxAvatarSize: 1024,
		},
		Monitor: config.MonitorConfig{
			Sink:           config.SinkMemory,
			Window:         time.Minute,
			SampleInterval: time.Minute,
		},
	}

	log := zerolog.Nop()
	repos := mocks.NewMockRepositories()
	sink := monitor.NewMemorySink(cfg.Monitor.Window)
	avatars := upload.NewAvatarStore(cfg.Upload.AvatarDir, cfg.Upload.MaxAvatarSize, log)
	services := service.NewServices(repos.Repositories(), cfg, sink, avatars, log)
	health := &mocks.MockHealthChecker{}

	return &testServer{
		router: api.NewRouter(services, cfg, sink, health, log),
		repos:  repos,
		health: health,
	}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signup registers a user and returns a session token
func (s *testServer) signup(t *testing.T, username string) string {
	t.Helper()
	w := s.do("POST", "/v1/auth/register", "", map[string]string{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, w.Code, w.Body.String())
	}

	w = s.do("POST", "/v1/auth/login", "", map[string]string{"username": username, "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, w.Code, w.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &session)
	return session.Token
}

func (s *testServer) postArticle(t *testing.T, token string, body map[string]interface{}) string {
	t.Helper()
	w := s.do("POST", "/v1/articles", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create article: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var article struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &article)
	return article.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestRouter(t)

	w := srv.do("GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "blog-content-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}

	srv.health.Err = errors.New("connection refused")
	w = srv.do("GET", "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 when the database is down, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestRouter(t)
	token := srv.signup(t, "alice")
	srv.postArticle(t, token, map[string]interface{}{"title": "Hello", "body": "World"})

	w := srv.do("GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	db := decode(t, w)["database"].(map[string]interface{})
	if db["users"].(float64) != 1 || db["articles"].(float64) != 1 {
		t.Errorf("Unexpected counts: %v", db)
	}
}

func TestAuthFlow(t *testing.T) {
	srv := setupTestRouter(t)
	srv.signup(t, "alice")

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "duplicate handle",
			method: "POST", path: "/v1/auth/register",
			body:           map[string]string{"username": "alice", "email": "x@example.com", "password": "secret1", "confirm_password": "secret1"},
			expectedStatus: http.StatusConflict,
			expectedCode:   "duplicate_handle",
		},
		{
			name:   "invalid registration",
			method: "POST", path: "/v1/auth/register",
			body:           map[string]string{"username": "b", "email": "nope", "password": "1", "confirm_password": "2"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_input",
		},
		{
			name:   "wrong password",
			method: "POST", path: "/v1/auth/login",
			body:           map[string]string{"username": "alice", "password": "wrong"},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "invalid_credentials",
		},
		{
			name:   "unknown user",
			method: "POST", path: "/v1/auth/login",
			body:           map[string]string{"username": "nobody", "password": "secret1"},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "invalid_credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(tt.method, tt.path, "", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if code := decode(t, w)["code"]; code != tt.expectedCode {
				t.Errorf("Expected code %s, got %v", tt.expectedCode, code)
			}
		})
	}
}

func TestLoginRequiredRoutes(t *testing.T) {
	srv := setupTestRouter(t)

	routes := []struct {
		method string
		path   string
	}{
		{"PUT", "/v1/auth/password"},
		{"PUT", "/v1/users/me/avatar"},
		{"POST", "/v1/articles"},
		{"POST", "/v1/articles/00000000-0000-0000-0000-000000000000/like"},
		{"POST", "/v1/articles/00000000-0000-0000-0000-000000000000/comments"},
		{"GET", "/v1/wallet"},
		{"POST", "/v1/wallet/topup"},
		{"POST", "/v1/wallet/vip"},
		{"GET", "/v1/network/stats"},
	}

	for _, r := range routes {
		for _, token := range []string{"", "not-a-token"} {
			w := srv.do(r.method, r.path, token, nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s %s (token %q): expected 401, got %d", r.method, r.path, token, w.Code)
			}
		}
	}
}

func TestGatedArticleFlow(t *testing.T) {
	srv := setupTestRouter(t)
	author := srv.signup(t, "author")
	reader := srv.signup(t, "reader")

	id := srv.postArticle(t, author, map[string]interface{}{
		"title":       "Members only",
		"body":        "secret body",
		"tags":        "go, vip",
		"is_private":  true,
		"require_vip": true,
		"password":    "open",
	})
	path := "/v1/articles/" + id

	// Anonymous
	w := srv.do("GET", path, "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for anonymous, got %d", w.Code)
	}
	response := decode(t, w)
	if response["remediation"] != "login" {
		t.Errorf("Expected login remediation, got %v", response["remediation"])
	}
	if article := response["article"].(map[string]interface{}); article["body"] != nil {
		t.Error("Denied response must not include the body")
	}

	// Non-VIP with the correct password still hears about VIP only
	w = srv.do("GET", path+"?password=open", reader, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", w.Code)
	}
	response = decode(t, w)
	if response["code"] != "vip_required" || response["remediation"] != "vip_purchase" {
		t.Errorf("Expected vip_required/vip_purchase, got %v/%v", response["code"], response["remediation"])
	}

	// Buy VIP: 30 money at zero balance is 345 coins
	w = srv.do("POST", "/v1/wallet/topup", reader, map[string]int{"amount": 30})
	if w.Code != http.StatusOK {
		t.Fatalf("Top-up failed: %d %s", w.Code, w.Body.String())
	}
	if balance := decode(t, w)["balance_after"].(float64); balance != 345 {
		t.Errorf("Expected balance 345, got %v", balance)
	}
	w = srv.do("POST", "/v1/wallet/vip", reader, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("VIP purchase failed: %d %s", w.Code, w.Body.String())
	}

	// VIP applies immediately; the password is next
	w = srv.do("GET", path, reader, nil)
	if w.Code != http.StatusForbidden || decode(t, w)["code"] != "password_required" {
		t.Errorf("Expected password_required, got %d %s", w.Code, w.Body.String())
	}
	w = srv.do("GET", path+"?password=nope", reader, nil)
	if w.Code != http.StatusForbidden || decode(t, w)["code"] != "password_incorrect" {
		t.Errorf("Expected password_incorrect, got %d %s", w.Code, w.Body.String())
	}

	w = srv.do("GET", path+"?password=open", reader, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d %s", w.Code, w.Body.String())
	}
	article := decode(t, w)["article"].(map[string]interface{})
	if article["body"] != "secret body" || article["view_count"].(float64) != 1 {
		t.Errorf("Unexpected article: %v", article)
	}
	if _, leaked := article["password"]; leaked {
		t.Error("Article password must never be returned")
	}
}

func TestDeniedArticleRevealsOnlyTheFailingGate(t *testing.T) {
	srv := setupTestRouter(t)
	author := srv.signup(t, "author")
	reader := srv.signup(t, "reader")

	id := srv.postArticle(t, author, map[string]interface{}{
		"title":       "Members only",
		"body":        "secret body",
		"summary":     "hidden summary",
		"category":    "go",
		"tags":        "go, vip",
		"is_private":  true,
		"require_vip": true,
		"password":    "pw",
	})
	path := "/v1/articles/" + id

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantCode   string
		wantVIP    bool
	}{
		{"anonymous", "", http.StatusUnauthorized, "login_required", false},
		{"non-VIP", reader, http.StatusForbidden, "vip_required", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do("GET", path+"?password=pw", tt.token, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d %s", tt.wantStatus, w.Code, w.Body.String())
			}
			response := decode(t, w)
			if response["code"] != tt.wantCode {
				t.Errorf("Expected code %s, got %v", tt.wantCode, response["code"])
			}

			article := response["article"].(map[string]interface{})
			if article["title"] != "Members only" {
				t.Errorf("Expected the title in the teaser, got %v", article)
			}
			for _, field := range []string{"has_password", "body", "summary", "category", "tags"} {
				if _, leaked := article[field]; leaked {
					t.Errorf("Denied teaser must not include %q: %v", field, article)
				}
			}
			if _, ok := article["require_vip"]; ok != tt.wantVIP {
				t.Errorf("require_vip present=%t, want %t", ok, tt.wantVIP)
			}
		})
	}
}

func TestArticleNotFound(t *testing.T) {
	srv := setupTestRouter(t)

	for _, path := range []string{
		"/v1/articles/not-a-uuid",
		"/v1/articles/00000000-0000-0000-0000-000000000000",
		"/v1/articles/00000000-0000-0000-0000-000000000000/comments",
	} {
		w := srv.do("GET", path, "", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestCommentsAndLikes(t *testing.T) {
	srv := setupTestRouter(t)
	token := srv.signup(t, "alice")
	id := srv.postArticle(t, token, map[string]interface{}{"title": "Hello", "body": "World"})
	base := "/v1/articles/" + id

	w := srv.do("POST", base+"/comments", token, map[string]string{"body": "first"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %s", w.Code, w.Body.String())
	}
	rootID := decode(t, w)["id"].(string)

	w = srv.do("POST", base+"/comments", token, map[string]string{"body": "reply", "parent_id": rootID})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for reply, got %d %s", w.Code, w.Body.String())
	}

	w = srv.do("POST", base+"/comments", token, map[string]string{"body": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty comment, got %d", w.Code)
	}

	w = srv.do("GET", base+"/comments?view=thread", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	comments := decode(t, w)["comments"].([]interface{})
	if len(comments) != 1 {
		t.Fatalf("Expected one root, got %d", len(comments))
	}
	if replies := comments[0].(map[string]interface{})["replies"].([]interface{}); len(replies) != 1 {
		t.Errorf("Expected one nested reply, got %d", len(replies))
	}

	w = srv.do("GET", base+"/comments?view=flat", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown view, got %d", w.Code)
	}

	w = srv.do("POST", base+"/like", token, nil)
	response := decode(t, w)
	if response["action"] != "liked" || response["like_count"].(float64) != 1 {
		t.Errorf("Expected liked/1, got %v", response)
	}
	w = srv.do("POST", base+"/like", token, nil)
	response = decode(t, w)
	if response["action"] != "unliked" || response["like_count"].(float64) != 0 {
		t.Errorf("Expected unliked/0, got %v", response)
	}
}

func TestListingEndpoints(t *testing.T) {
	srv := setupTestRouter(t)
	token := srv.signup(t, "alice")
	srv.postArticle(t, token, map[string]interface{}{"title": "Go tips", "body": "x", "category": "dev"})
	srv.postArticle(t, token, map[string]interface{}{"title": "Hidden", "body": "x", "category": "dev", "is_private": true})

	w := srv.do("GET", "/v1/articles?q=go", "", nil)
	response := decode(t, w)
	if response["total"].(float64) != 1 {
		t.Errorf("Expected 1 match, got %v", response["total"])
	}

	w = srv.do("GET", "/v1/categories", "", nil)
	categories := decode(t, w)["categories"].([]interface{})
	if len(categories) != 1 || categories[0].(map[string]interface{})["count"].(float64) != 1 {
		t.Errorf("Expected one public dev article, got %v", categories)
	}

	w = srv.do("GET", "/v1/articles/popular", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	w = srv.do("GET", "/v1/users/alice", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if articles := decode(t, w)["articles"].([]interface{}); len(articles) != 1 {
		t.Errorf("Profile should list public articles only, got %d", len(articles))
	}

	w = srv.do("GET", "/v1/users/nobody", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestWalletEndpoints(t *testing.T) {
	srv := setupTestRouter(t)
	token := srv.signup(t, "alice")

	w := srv.do("POST", "/v1/wallet/vip", token, nil)
	if w.Code != http.StatusPaymentRequired {
		t.Errorf("Expected 402, got %d", w.Code)
	}

	w = srv.do("POST", "/v1/wallet/topup", token, map[string]int{"amount": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for zero amount, got %d", w.Code)
	}

	srv.do("POST", "/v1/wallet/topup", token, map[string]int{"amount": 40})
	srv.do("POST", "/v1/wallet/vip", token, nil)

	w = srv.do("POST", "/v1/wallet/vip", token, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 when already VIP, got %d", w.Code)
	}

	w = srv.do("GET", "/v1/wallet", token, nil)
	wallet := decode(t, w)
	if wallet["balance"].(float64) != 160 || wallet["is_vip"] != true {
		t.Errorf("Expected 160 coins and VIP, got %v", wallet)
	}

	w = srv.do("GET", "/v1/wallet/ledger", token, nil)
	if entries := decode(t, w)["entries"].([]interface{}); len(entries) != 2 {
		t.Errorf("Expected 2 ledger entries, got %d", len(entries))
	}

	w = srv.do("GET", "/v1/wallet/ledger?format=csv", token, nil)
	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Expected text/csv, got %s", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "vip_purchase") {
		t.Errorf("CSV should contain the VIP purchase, got: %s", w.Body.String())
	}

	w = srv.do("GET", "/v1/wallet/ledger?format=xml", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown format, got %d", w.Code)
	}
}

func TestAvatarUpload(t *testing.T) {
	srv := setupTestRouter(t)
	token := srv.signup(t, "alice")

	upload := func(filename string, size int) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("file", filename)
		part.Write(bytes.Repeat([]byte("x"), size))
		writer.Close()

		req := httptest.NewRequest("POST", "/v1/users/me/avatar", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		return w
	}

	w := upload("me.png", 100)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d %s", w.Code, w.Body.String())
	}
	avatar := decode(t, w)["avatar"].(string)

	w = srv.do("GET", avatar, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Uploaded avatar should be served, got %d", w.Code)
	}

	if w := upload("me.exe", 10); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unsupported type, got %d", w.Code)
	}
	if w := upload("big.png", 4096); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized file, got %d", w.Code)
	}
}

func TestNetworkCurrent(t *testing.T) {
	srv := setupTestRouter(t)

	for i := 0; i < 4; i++ {
		srv.do("GET", "/health", "", nil)
	}

	w := srv.do("GET", "/v1/network/current", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["throughput"].(float64) != 5 {
		t.Errorf("Expected throughput 5 including this request, got %v", response["throughput"])
	}
	if response["latency"].(float64) != 50 {
		t.Errorf("Expected base latency below the busy threshold, got %v", response["latency"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := setupTestRouter(t)

	w := srv.do("OPTIONS", "/v1/articles", "", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for OPTIONS, got %d", w.Code)
	}

	if allowOrigin := w.Header().Get("Access-Control-Allow-Origin"); allowOrigin != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin '*', got '%s'", allowOrigin)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Error("Expected Authorization in allowed headers")
	}
}
