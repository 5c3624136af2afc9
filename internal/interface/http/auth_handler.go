package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-anon-feedback/internal/application"
	"github.com/oksasatya/go-anon-feedback/internal/interface/middleware"
	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
	"github.com/oksasatya/go-anon-feedback/pkg/response"
)

type AuthHandler struct {
	Svc     *application.AccountService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AccountService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyQuery struct {
	Username string `form:"uname" binding:"required"`
	Code     string `form:"code" binding:"required"`
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func tokenMeta(pair application.TokenPair) map[string]any {
	return map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry}
}

// Signup POST /api/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, 0)
		return
	}

	res, err := h.Svc.CreateAccount(c.Request.Context(), application.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}

	switch {
	case res.Resent:
		response.Success(c, http.StatusCreated, res, "Verification code re-sent. Please verify your account", nil)
	case !res.Delivered:
		response.Error[any](c, http.StatusInternalServerError, "Account created but the verification email could not be sent", gin.H{"user_id": res.UserID})
	default:
		response.Success(c, http.StatusCreated, res, "User registered successfully. Please verify your account", nil)
	}
}

// Verify GET /api/auth/verify?uname=&code=
func (h *AuthHandler) Verify(c *gin.Context) {
	var q verifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err, 0)
		return
	}
	if err := h.Svc.VerifyAccount(c.Request.Context(), q.Username, q.Code); err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verified": true}, "Account verified successfully", nil)
}

// CheckUsername GET /api/auth/check-username?u=
func (h *AuthHandler) CheckUsername(c *gin.Context) {
	available, err := h.Svc.CheckUsernameAvailable(c.Request.Context(), c.Query("u"))
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	msg := "Username is available"
	if !available {
		msg = "Username is already taken"
	}
	response.Success(c, http.StatusOK, gin.H{"available": available}, msg, nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, 0)
		return
	}
	view, pair, err := h.Svc.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, view, "login successful", tokenMeta(pair))
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, _ := c.Cookie(helpers.RefreshCookie)
	view, pair, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.Cookies.Clear(c)
		respondError(c, h.Logger, err, 0)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, view, "token refreshed", tokenMeta(pair))
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// Session GET /api/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	view, err := h.Svc.CurrentSession(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusOK, view, "session", nil)
}
