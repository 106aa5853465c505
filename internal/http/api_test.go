package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/buildleft/site-backend/internal/captcha"
	"github.com/buildleft/site-backend/internal/password"
	"github.com/buildleft/site-backend/internal/relay"
	"github.com/buildleft/site-backend/internal/repository/sqlite"
	"github.com/buildleft/site-backend/internal/service"
	"github.com/buildleft/site-backend/internal/token"
)

type testEnv struct {
	router *gin.Engine
	tokens *token.Issuer
}

func newTestEnv(t *testing.T, captchaResponse string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	contactRepo := sqlite.NewContactRepository(db)
	require.NoError(t, userRepo.Init(context.Background()))
	require.NoError(t, contactRepo.Init(context.Background()))

	captchaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(captchaResponse))
	}))
	t.Cleanup(captchaSrv.Close)

	webhookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "success"}`))
	}))
	t.Cleanup(webhookSrv.Close)

	issuer := token.NewIssuer("test-jwt-secret", time.Hour)

	handler := NewHandler(
		service.NewUserService(userRepo, password.NewHasherWithCost(bcrypt.MinCost)),
		service.NewContactService(contactRepo, nil, logger),
		captcha.NewVerifier("test-captcha-secret", captchaSrv.URL, 0.5, logger),
		issuer,
		relay.NewClient(logger),
		webhookSrv.URL,
		"", // second webhook deliberately unconfigured
		"http://localhost:3000",
		logger,
	)

	router := gin.New()
	handler.RegisterRoutes(router)

	return &testEnv{router: router, tokens: issuer}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

const passingCaptcha = `{"success": true, "score": 0.9}`

func TestRegisterLoginProfileFlow(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	reg := env.do(t, http.MethodPost, "/register", gin.H{
		"email":    "new@x.com",
		"password": "secret1",
		"captcha":  "client-token",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)

	regBody := decodeBody(t, reg)
	require.Equal(t, true, regBody["success"])
	regToken := regBody["token"].(string)
	require.NotEmpty(t, regToken)

	regUser := regBody["user"].(map[string]any)
	require.Equal(t, "new@x.com", regUser["email"])
	require.NotEmpty(t, regUser["id"])
	require.NotEmpty(t, regUser["createdAt"])
	require.NotContains(t, reg.Body.String(), "password")

	login := env.do(t, http.MethodPost, "/login", gin.H{
		"email":    "new@x.com",
		"password": "secret1",
		"captcha":  "client-token",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)

	loginBody := decodeBody(t, login)
	loginToken := loginBody["token"].(string)
	require.NotEqual(t, regToken, loginToken)

	// Both tokens are independently valid.
	for _, tok := range []string{regToken, loginToken} {
		subject, err := env.tokens.Verify(tok)
		require.NoError(t, err)
		require.Equal(t, regUser["id"], subject)
	}

	profile := env.do(t, http.MethodGet, "/profile", nil, http.Header{
		"Authorization": {"Bearer " + loginToken},
	})
	require.Equal(t, http.StatusOK, profile.Code)

	profileBody := decodeBody(t, profile)
	profileUser := profileBody["user"].(map[string]any)
	require.Equal(t, regUser["id"], profileUser["id"])
	require.Equal(t, "new@x.com", profileUser["email"])
	require.NotEmpty(t, profileUser["createdAt"])
	require.NotContains(t, profile.Body.String(), "password")
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	first := env.do(t, http.MethodPost, "/register", gin.H{
		"email":    "A@B.com",
		"password": "secret1",
		"captcha":  "client-token",
	}, nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := env.do(t, http.MethodPost, "/register", gin.H{
		"email":    "a@b.com",
		"password": "secret1",
		"captcha":  "client-token",
	}, nil)
	require.Equal(t, http.StatusBadRequest, second.Code)
	require.Equal(t, "User already exists", decodeBody(t, second)["error"])
}

func TestRegisterInvalidInput(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	w := env.do(t, http.MethodPost, "/register", gin.H{
		"email":    "not-an-email",
		"password": "123",
		"captcha":  "client-token",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])
	require.Contains(t, body["error"], "email must be a valid address")
	require.Contains(t, body["error"], "password must be at least 6 characters")
}

func TestRegisterCaptchaLowScore(t *testing.T) {
	env := newTestEnv(t, `{"success": true, "score": 0.4}`)

	w := env.do(t, http.MethodPost, "/register", gin.H{
		"email":    "new@x.com",
		"password": "secret1",
		"captcha":  "client-token",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decodeBody(t, w)["error"], "below the acceptance threshold")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	reg := env.do(t, http.MethodPost, "/register", gin.H{
		"email":    "user@example.com",
		"password": "secret1",
		"captcha":  "client-token",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)

	wrongPassword := env.do(t, http.MethodPost, "/login", gin.H{
		"email":    "user@example.com",
		"password": "wrong-password",
		"captcha":  "client-token",
	}, nil)
	unknownEmail := env.do(t, http.MethodPost, "/login", gin.H{
		"email":    "nobody@example.com",
		"password": "secret1",
		"captcha":  "client-token",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	require.Equal(t, wrongPassword.Body.Bytes(), unknownEmail.Body.Bytes())
}

func TestLoginRequiresCaptcha(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	w := env.do(t, http.MethodPost, "/login", gin.H{
		"email":    "user@example.com",
		"password": "secret1",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Captcha token is required", decodeBody(t, w)["error"])
}

func TestProfileRequiresToken(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	missing := env.do(t, http.MethodGet, "/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, missing.Code)

	garbage := env.do(t, http.MethodGet, "/profile", nil, http.Header{
		"Authorization": {"Bearer garbage"},
	})
	require.Equal(t, http.StatusUnauthorized, garbage.Code)
	require.Equal(t, "Invalid token", decodeBody(t, garbage)["error"])
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	reg := env.do(t, http.MethodPost, "/register", gin.H{
		"email":    "user@example.com",
		"password": "secret1",
		"captcha":  "client-token",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)
	regToken := decodeBody(t, reg)["token"].(string)

	refreshed := env.do(t, http.MethodPost, "/refresh", gin.H{"token": regToken}, nil)
	require.Equal(t, http.StatusOK, refreshed.Code)

	body := decodeBody(t, refreshed)
	newToken := body["token"].(string)
	require.NotEqual(t, regToken, newToken)

	subject, err := env.tokens.Verify(newToken)
	require.NoError(t, err)
	require.NotEmpty(t, subject)
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	malformed := env.do(t, http.MethodPost, "/refresh", gin.H{"token": "garbage"}, nil)
	require.Equal(t, http.StatusUnauthorized, malformed.Code)
	require.Equal(t, "Invalid token", decodeBody(t, malformed)["error"])

	expiredTok, err := token.NewIssuer("test-jwt-secret", -time.Minute).Issue("some-user")
	require.NoError(t, err)

	expired := env.do(t, http.MethodPost, "/refresh", gin.H{"token": expiredTok}, nil)
	require.Equal(t, http.StatusUnauthorized, expired.Code)
	require.Equal(t, "Token expired", decodeBody(t, expired)["error"])
}

func TestContactEndpoints(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	ok := env.do(t, http.MethodPost, "/contact", gin.H{
		"fname":   "Ada",
		"lname":   "Lovelace",
		"email":   "ada@example.com",
		"service": "web-design",
		"message": "Please call me back.",
	}, nil)
	require.Equal(t, http.StatusCreated, ok.Code)
	require.Equal(t, true, decodeBody(t, ok)["success"])

	invalid := env.do(t, http.MethodPost, "/contact", gin.H{"email": "bad"}, nil)
	require.Equal(t, http.StatusBadRequest, invalid.Code)

	quick := env.do(t, http.MethodPost, "/qcontact", gin.H{
		"Yname": "Grace",
		"email": "grace@example.com",
	}, nil)
	require.Equal(t, http.StatusCreated, quick.Code)
}

func TestWebhookRelay(t *testing.T) {
	env := newTestEnv(t, passingCaptcha)

	ok := env.do(t, http.MethodPost, "/trigger-zap", gin.H{"lead": "ada@example.com"}, nil)
	require.Equal(t, http.StatusOK, ok.Code)

	body := decodeBody(t, ok)
	require.Equal(t, true, body["success"])
	require.Equal(t, map[string]any{"status": "success"}, body["zapierResponse"])

	unconfigured := env.do(t, http.MethodPost, "/trigger-zap-two", gin.H{"lead": "x"}, nil)
	require.Equal(t, http.StatusInternalServerError, unconfigured.Code)
	require.Equal(t, "Failed to trigger Zap", decodeBody(t, unconfigured)["error"])
}
