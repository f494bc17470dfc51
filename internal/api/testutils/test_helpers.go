package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/expense-tracker-server/internal/api"
	"github.com/rongwang/expense-tracker-server/internal/config"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/rongwang/expense-tracker-server/internal/repository"
	"github.com/rongwang/expense-tracker-server/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	TestUserEmail    = "testuser@example.com"
	TestUserName     = "testuser"
	TestUserPassword = "testpassword"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Repository  repository.Repository
	Service     service.Service
	JWTSecret   []byte
	DB          *sqlx.DB
	TestUserID  string
	TestUserJWT string
}

// SetupTestContext creates a new test context against the test database.
// The test is skipped when no database is reachable.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	cfg, err := config.LoadConfig()
	require.NoError(t, err, "Failed to load config")

	// Always point at the test database
	cfg.Database.DBName = cfg.Database.TestDBName
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "expenses_test"
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "test-secret-key"
	}

	db, err := config.SetupDatabase(cfg)
	if err != nil {
		t.Skipf("Skipping: test database unavailable: %v", err)
	}

	repo := repository.NewPostgresRepository(db)
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret, service.WithBcryptCost(bcrypt.MinCost))

	require.NoError(t, api.RegisterValidators())
	handler := api.NewHandler(svc)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.JWTSecret(cfg.Auth.JWTSecret))
	handler.SetupRoutes(router)

	testUserID, token := createTestUser(t, repo, cfg.Auth.JWTSecret)

	return &TestContext{
		Router:      router,
		Repository:  repo,
		Service:     svc,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		DB:          db,
		TestUserID:  testUserID,
		TestUserJWT: token,
	}
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(t *TestContext) {
	if t.DB != nil {
		cleanupTestDatabase(nil, t.DB)
		t.DB.Close()
	}
}

// cleanupTestDatabase removes user data. Seeded categories stay; categories
// created by tests are removed by name prefix.
func cleanupTestDatabase(t *testing.T, db *sqlx.DB) {
	statements := []string{
		"DELETE FROM transactions",
		"DELETE FROM expenses",
		"DELETE FROM budgets",
		"DELETE FROM user_settings",
		"DELETE FROM wallets",
		"DELETE FROM users",
		"DELETE FROM categories WHERE name LIKE 'test-%'",
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil && t != nil {
			t.Logf("Warning: cleanup %q failed: %v", stmt, err)
		}
	}
}

func createTestUser(t *testing.T, repo *repository.PostgresRepository, jwtSecret string) (string, string) {
	// Clean up any existing test users first
	cleanupTestDatabase(t, repo.GetDB())

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestUserPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:        uuid.New().String(),
		Name:      "Test User",
		Username:  TestUserName,
		Email:     TestUserEmail,
		Password:  string(hashedPassword),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user), "Failed to create test user")

	return user.ID, SignToken(t, jwtSecret, user.ID, user.Username)
}

// SignToken issues a day-long token for userID
func SignToken(t *testing.T, jwtSecret, userID, username string) string {
	claims := service.Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err, "Failed to generate JWT token")
	return token
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// DecodeData unmarshals the data field of a success envelope into out
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.Equal(t, "success", envelope.Status, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// DecodeError returns the error envelope of a failed request
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.Equal(t, "error", resp.Status)
	return resp
}
