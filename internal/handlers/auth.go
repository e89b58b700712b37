package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/hierarchy-api/internal/auth"
	"github.com/yukikurage/hierarchy-api/internal/constants"
	"github.com/yukikurage/hierarchy-api/internal/dto"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
	"github.com/yukikurage/hierarchy-api/internal/middleware"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	identity *services.IdentityService
	tokens   *auth.TokenIssuer
	resetURL string
}

// NewAuthHandler creates a new AuthHandler. resetURL is the public base of the
// reset password endpoint included in reset emails.
func NewAuthHandler(identity *services.IdentityService, tokens *auth.TokenIssuer, resetURL string) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		tokens:   tokens,
		resetURL: resetURL,
	}
}

// Register creates an admin account and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.identity.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Please provide an email and password")
		return
	}

	user, err := h.identity.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.identity.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ChangePassword replaces the password of the authenticated user and issues a fresh token.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type ChangePasswordRequest struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	if err := h.identity.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	user, err := h.identity.FindByID(ctx, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// ForgotPassword emails a reset token valid for ten minutes.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	type ForgotPasswordRequest struct {
		Email string `json:"email" binding:"required"`
	}

	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.identity.ForgotPassword(c.Request.Context(), req.Email, h.resetURL); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email sent",
	})
}

// ResetPassword redeems a reset token and signs the user in.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	type ResetPasswordRequest struct {
		Password string `json:"password" binding:"required"`
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.identity.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		apierrors.InternalError(c, "Failed to issue token")
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	session.Set(constants.SessionKeyToken, token)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(status, dto.AuthResponse{
		Token:     token,
		ExpiresAt: h.tokens.ExpiresAt(),
		User:      dto.ToUserDTO(*user),
	})
}
