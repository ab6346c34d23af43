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
	"github.com/mru-images/immune-child-tracker-app-final/internal/api"
	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
	"github.com/mru-images/immune-child-tracker-app-final/internal/notify"
	"github.com/mru-images/immune-child-tracker-app-final/internal/repository"
	"github.com/mru-images/immune-child-tracker-app-final/internal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-key"

// TestContext holds all dependencies for API tests. The stack runs on the
// in-memory repository so the tests need no database.
type TestContext struct {
	Router         *gin.Engine
	Repository     *repository.MemoryRepository
	Service        *service.DefaultService
	Hub            *notify.Hub
	JWTSecret      []byte
	TestAccountID  string
	TestAccountJWT string
}

// SetupTestContext creates a new test context with initialized dependencies.
func SetupTestContext(t *testing.T) *TestContext {
	repo := repository.NewMemoryRepository()
	hub := notify.NewHub()
	svc := service.NewDefaultService(repo, hub, testJWTSecret)
	handler := api.NewHandler(svc, zap.NewNop())

	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(testJWTSecret))
		c.Next()
	})

	handler.SetupRoutes(router)

	accountID, token := createTestAccount(t, repo)

	return &TestContext{
		Router:         router,
		Repository:     repo,
		Service:        svc,
		Hub:            hub,
		JWTSecret:      []byte(testJWTSecret),
		TestAccountID:  accountID,
		TestAccountJWT: token,
	}
}

// CreateSecondAccount registers another account directly in the repository
// and returns its id and a valid token. Used by ownership tests.
func (tc *TestContext) CreateSecondAccount(t *testing.T) (string, string) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("otherpassword"), bcrypt.DefaultCost)

	account := &models.Account{
		ID:        uuid.New().String(),
		Email:     fmt.Sprintf("other-%s@example.com", uuid.New().String()[:8]),
		FirstName: "Other",
		LastName:  "Parent",
		Password:  string(hashedPassword),
	}
	err := tc.Repository.CreateAccount(context.Background(), account)
	assert.NoError(t, err, "Failed to create second account")

	return account.ID, signToken(t, account.ID)
}

func createTestAccount(t *testing.T, repo repository.Repository) (string, string) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)

	account := &models.Account{
		ID:        uuid.New().String(),
		Email:     "testparent@example.com",
		FirstName: "Test",
		LastName:  "Parent",
		Password:  string(hashedPassword),
	}

	err := repo.CreateAccount(context.Background(), account)
	assert.NoError(t, err, "Failed to create test account")

	return account.ID, signToken(t, account.ID)
}

func signToken(t *testing.T, accountID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": accountID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(testJWTSecret))
	assert.NoError(t, err, "Failed to generate JWT token")
	return tokenString
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
