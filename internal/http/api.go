package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/buildleft/site-backend/internal/captcha"
	"github.com/buildleft/site-backend/internal/domain"
	"github.com/buildleft/site-backend/internal/relay"
	"github.com/buildleft/site-backend/internal/service"
	"github.com/buildleft/site-backend/internal/token"
)

const userIDKey = "userID"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users         service.UserService
	contacts      service.ContactService
	captcha       *captcha.Verifier
	tokens        *token.Issuer
	relay         *relay.Client
	webhookURL    string
	webhookURLTwo string
	clientURL     string
	logger        logrus.FieldLogger
}

func NewHandler(
	users service.UserService,
	contacts service.ContactService,
	verifier *captcha.Verifier,
	tokens *token.Issuer,
	relayClient *relay.Client,
	webhookURL, webhookURLTwo string,
	clientURL string,
	logger logrus.FieldLogger,
) *Handler {
	return &Handler{
		users:         users,
		contacts:      contacts,
		captcha:       verifier,
		tokens:        tokens,
		relay:         relayClient,
		webhookURL:    webhookURL,
		webhookURLTwo: webhookURLTwo,
		clientURL:     clientURL,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(h.clientURL))

	router.POST("/register", h.register)
	router.POST("/login", h.login)
	router.GET("/profile", h.requireAuth, h.profile)
	router.POST("/refresh", h.refresh)

	router.POST("/contact", h.contact)
	router.POST("/qcontact", h.quickContact)

	router.POST("/trigger-zap", h.triggerZap)
	router.POST("/trigger-zap-two", h.triggerZapTwo)

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

func corsMiddleware(clientURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type authResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	fail(c, http.StatusInternalServerError, "Internal server error")
}

// captchaFailure maps verifier errors onto responses. Misconfiguration is
// an operator problem and must not leak, everything else goes back to the
// client with the specific reason.
func (h *Handler) captchaFailure(c *gin.Context, err error) {
	if errors.Is(err, captcha.ErrNotConfigured) {
		h.internalError(c, err)
		return
	}
	if errors.Is(err, captcha.ErrMissingToken) {
		fail(c, http.StatusBadRequest, "Captcha token is required")
		return
	}

	var cErr *captcha.Error
	if errors.As(err, &cErr) {
		fail(c, http.StatusBadRequest, cErr.Reason)
		return
	}

	fail(c, http.StatusBadRequest, err.Error())
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.captcha.Verify(c.Request.Context(), req.Captcha, "register"); err != nil {
		h.captchaFailure(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			fail(c, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, service.ErrUserAlreadyExists):
			fail(c, http.StatusBadRequest, "User already exists")
		default:
			h.internalError(c, err)
		}
		return
	}

	signed, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, authResponse{
		Success: true,
		Token:   signed,
		User:    userToResponse(user),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if violations := service.ValidateCredentials(req.Email, req.Password); len(violations) > 0 {
		fail(c, http.StatusBadRequest, strings.Join(violations, ", "))
		return
	}

	if strings.TrimSpace(req.Captcha) == "" {
		fail(c, http.StatusBadRequest, "Captcha token is required")
		return
	}
	if _, err := h.captcha.Verify(c.Request.Context(), req.Captcha, "login"); err != nil {
		h.captchaFailure(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// Unknown email and wrong password answer identically.
		if errors.Is(err, service.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.internalError(c, err)
		return
	}

	signed, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Success: true,
		Token:   signed,
		User:    userToResponse(user),
	})
}

func (h *Handler) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		fail(c, http.StatusUnauthorized, "Authorization token is required")
		c.Abort()
		return
	}

	subject, err := h.tokens.Verify(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			fail(c, http.StatusUnauthorized, "Token expired")
		} else {
			fail(c, http.StatusUnauthorized, "Invalid token")
		}
		c.Abort()
		return
	}

	c.Set(userIDKey, subject)
	c.Next()
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userToResponse(user)})
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	signed, err := h.tokens.Refresh(req.Token)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			fail(c, http.StatusUnauthorized, "Token expired")
		} else {
			fail(c, http.StatusUnauthorized, "Invalid token")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": signed})
}

type contactRequest struct {
	FirstName  string `json:"fname"`
	LastName   string `json:"lname"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	Service    string `json:"service"`
	Timeline   string `json:"timeline"`
	Message    string `json:"message"`
	Consent    bool   `json:"consent"`
	Newsletter bool   `json:"newsletter"`
}

// quickContactRequest mirrors the field names the frontend already posts,
// capitalization included.
type quickContactRequest struct {
	Name    string `json:"Yname"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Message string `json:"message"`
}

func (h *Handler) contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := h.contacts.SubmitContact(c.Request.Context(), &domain.Contact{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Company:    req.Company,
		Service:    req.Service,
		Timeline:   req.Timeline,
		Message:    req.Message,
		Consent:    req.Consent,
		Newsletter: req.Newsletter,
	})
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			fail(c, http.StatusBadRequest, vErr.Error())
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Contact form submitted successfully"})
}

func (h *Handler) quickContact(c *gin.Context) {
	var req quickContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := h.contacts.SubmitQuickContact(c.Request.Context(), &domain.QuickContact{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Service: req.Service,
		Message: req.Message,
	})
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			fail(c, http.StatusBadRequest, vErr.Error())
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Quick contact submitted successfully"})
}

func (h *Handler) triggerZap(c *gin.Context) {
	h.forwardWebhook(c, h.webhookURL)
}

func (h *Handler) triggerZapTwo(c *gin.Context) {
	h.forwardWebhook(c, h.webhookURLTwo)
}

func (h *Handler) forwardWebhook(c *gin.Context, url string) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.relay.Forward(c.Request.Context(), url, payload)
	if err != nil {
		h.logger.Errorf("trigger webhook: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to trigger Zap")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "zapierResponse": resp})
}
