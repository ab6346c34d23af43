package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mru-images/immune-child-tracker-app-final/internal/api/testutils"
	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Successful registration
	registerReq := models.RegisterRequest{
		Email:     "newparent@example.com",
		Password:  "Password123",
		FirstName: "New",
		LastName:  "Parent",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/register",
		registerReq,
		nil,
	)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.AccountID)
	assert.NotEmpty(t, resp.Token)

	// Test case 2: Duplicate email
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/register",
		registerReq,
		nil,
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 3: Invalid request (missing required fields)
	invalidReq := models.RegisterRequest{
		Email: "invalid@example.com",
		// Missing password and names
	}

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/register",
		invalidReq,
		nil,
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Successful login
	loginReq := models.LoginRequest{
		Email:    "testparent@example.com",
		Password: "testpassword",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		loginReq,
		nil,
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testCtx.TestAccountID, resp.AccountID)
	assert.NotEmpty(t, resp.Token)

	// Test case 2: Invalid credentials
	invalidLoginReq := models.LoginRequest{
		Email:    "testparent@example.com",
		Password: "wrongpassword",
	}

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		invalidLoginReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 3: Account not found
	nonExistentReq := models.LoginRequest{
		Email:    "nonexistent@example.com",
		Password: "testpassword",
	}

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		nonExistentReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Missing Authorization header
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/children",
		nil,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 2: Malformed header
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/children",
		nil,
		map[string]string{"Authorization": "not-a-bearer-token"},
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 3: Garbage token
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/children",
		nil,
		testutils.AuthHeaders("garbage.token.value"),
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 4: Valid token passes through
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/children",
		nil,
		testutils.AuthHeaders(testCtx.TestAccountJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	phone := "0400000000"
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPut,
		"/api/profile",
		models.UpdateProfileRequest{Phone: &phone},
		testutils.AuthHeaders(testCtx.TestAccountJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)
}
