package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winslow-house/advising-api/internal/service"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/response"
)

// AuthHandler exposes the passwordless login endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RequestCode godoc
// @Summary Request a login verification code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.RequestCodeRequest true "Login email"
// @Success 200 {object} response.Envelope
// @Router /auth/request-code [post]
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req service.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.auth.RequestCode(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "verification code sent"}, nil)
}

// VerifyCode godoc
// @Summary Exchange a verification code for a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.VerifyCodeRequest true "Email and code"
// @Success 200 {object} response.Envelope
// @Router /auth/verify-code [post]
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req service.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	login, err := h.auth.VerifyCode(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, login, nil)
}

// Me godoc
// @Summary Current session info
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"email": claims.Email}, nil)
}
