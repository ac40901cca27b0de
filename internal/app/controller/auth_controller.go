package controller

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func userResponse(user *model.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"phone": user.Phone,
		"role":  user.Role,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	user, tokens, err := ctrl.authService.Register(req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		log.Warn("Registration failed", map[string]interface{}{
			"email": req.Email,
			"error": err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "register user")
		return
	}

	log.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		log.Warn("Login failed", map[string]interface{}{
			"email": req.Email,
			"error": err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "login")
		return
	}

	log.Info("Login successful", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// GetMe returns current user information
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		log.Warn("Failed to get user information", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		if stderrors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.AuthUserNotFound, "User not found")
			return
		}
		apperrors.RespondWithServiceError(c, err, "get user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse(user),
	})
}

// Logout revokes the presented access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	claims, ok := middleware.GetClaims(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), claims); err != nil {
		log.Error("Logout failed", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		apperrors.RespondWithServiceError(c, err, "logout")
		return
	}

	log.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
