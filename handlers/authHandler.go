package handlers

import (
	"net/http"
	"strconv"

	"PathLab/apperrors"
	"PathLab/middlewares"
	"PathLab/services"
	"PathLab/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	UserService services.UserService
	tokens      *utils.TokenMaker
	log         *zap.Logger
}

func NewAuthHandler(userService services.UserService, tokens *utils.TokenMaker, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		UserService: userService,
		tokens:      tokens,
		log:         log,
	}
}

// currentUserID is the numeric ID of the authenticated caller.
func currentUserID(c *gin.Context, log *zap.Logger) (int64, services.Actor, bool) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, log, err)
		return 0, actor, false
	}
	id, err := strconv.ParseInt(actor.UserID, 10, 64)
	if err != nil {
		middlewares.HttpError(c, log, apperrors.Unauthorized("invalid user in token"))
		return 0, actor, false
	}
	return id, actor, true
}

// Register creates a user. Super admins may create users in any lab,
// lab admins only in their own.
func (h *AuthHandler) Register(c *gin.Context) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	var input services.NewUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	user, err := h.UserService.CreateUser(c.Request.Context(), input, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login authenticates the user and returns tokens along with user info
func (h *AuthHandler) Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.UserService.AuthenticateUser(c.Request.Context(), credentials.Email, credentials.Password)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}

	accessToken, refreshToken, err := h.tokens.GenerateTokens(strconv.FormatInt(user.ID, 10), user.RoleName(), user.Lab())
	if err != nil {
		middlewares.HttpError(c, h.log, apperrors.Infrastructure(err, "failed to generate tokens"))
		return
	}
	utils.SetAuthCookies(c, accessToken, refreshToken)

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

// RefreshToken issues a new access token from the refresh cookie or a
// refreshToken in the body.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := utils.RefreshTokenFromCookie(c)
	if token == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = c.ShouldBindJSON(&body)
		token = body.RefreshToken
	}
	if token == "" {
		middlewares.HttpError(c, h.log, apperrors.Unauthorized("missing refresh token"))
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}

	accessToken, err := h.tokens.GenerateAccessToken(claims.UserID, claims.Role, claims.LabID)
	if err != nil {
		middlewares.HttpError(c, h.log, apperrors.Infrastructure(err, "failed to generate access token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

// Logoff logs the user out by clearing cookies
func (h *AuthHandler) Logoff(c *gin.Context) {
	utils.ClearAuthCookies(c)
	c.Status(http.StatusOK)
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middlewares.BadRequest(c, "Invalid user ID")
		return
	}
	if err := h.UserService.DeleteUser(c.Request.Context(), id, actor); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

// SendResetCode sends a password reset code to the user's email
func (h *AuthHandler) SendResetCode(c *gin.Context) {
	var data struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.UserService.SendResetCode(c.Request.Context(), data.Email); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *AuthHandler) ChangeEmail(c *gin.Context) {
	userID, _, ok := currentUserID(c, h.log)
	if !ok {
		return
	}
	var data struct {
		CurrentPassword string `json:"current_password"`
		NewEmail        string `json:"new_email"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.UserService.UpdateUserEmail(c.Request.Context(), userID, data.CurrentPassword, data.NewEmail); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

// GetUserProfile retrieves the current user's profile
func (h *AuthHandler) GetUserProfile(c *gin.Context) {
	userID, _, ok := currentUserID(c, h.log)
	if !ok {
		return
	}
	user, err := h.UserService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) UpdateUserProfile(c *gin.Context) {
	userID, _, ok := currentUserID(c, h.log)
	if !ok {
		return
	}
	var updateData struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.UserService.UpdateUserProfile(c.Request.Context(), userID, updateData.Username, updateData.Email); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

// ChangePassword sets a new password using an emailed reset code.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var data struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.UserService.ResetPassword(c.Request.Context(), data.Email, data.Code, data.NewPassword); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

// AdminManageUsers lists the users the caller may manage.
func (h *AuthHandler) AdminManageUsers(c *gin.Context) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	users, err := h.UserService.GetAllUsers(c.Request.Context(), actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AuthHandler) GetPermissions(c *gin.Context) {
	userID, actor, ok := currentUserID(c, h.log)
	if !ok {
		return
	}
	perms, err := h.UserService.GetUserPermissions(c.Request.Context(), userID)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": actor.Role, "permissions": perms})
}
