package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"aegis/models"
	"aegis/repositories"
	"aegis/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthMiddleware struct {
	jwtService *utils.JWTService
	userRepo   *repositories.UserRepository
}

func NewAuthMiddleware(jwtService *utils.JWTService, userRepo *repositories.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		userRepo:   userRepo,
	}
}

// RequireAuth validates the JWT token and sets user context
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Authentication token required",
				Code:    "AUTH_TOKEN_REQUIRED",
			})
			c.Abort()
			return
		}

		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			logrus.Warnf("Invalid token: %v", err)
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Invalid authentication token",
				Code:    "AUTH_TOKEN_INVALID",
			})
			c.Abort()
			return
		}

		if claims.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Authentication token expired",
				Code:    "AUTH_TOKEN_EXPIRED",
			})
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Invalid token type",
				Code:    "AUTH_TOKEN_INVALID_TYPE",
			})
			c.Abort()
			return
		}

		user, err := am.loadActiveUser(claims.UserID)
		if err != nil {
			if utils.IsErrorCode(err, utils.ErrCodeNotFound) {
				c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "User account not found",
					Code:    "AUTH_USER_NOT_FOUND",
				})
			} else if utils.IsErrorCode(err, "UNAUTHORIZED") {
				c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "User account is deactivated",
					Code:    "AUTH_USER_INACTIVE",
				})
			} else {
				logrus.Errorf("Error fetching user %s: %v", claims.UserID, err)
				c.JSON(http.StatusInternalServerError, models.ErrorResponse{
					Error:   "INTERNAL_ERROR",
					Message: "Failed to validate authentication",
					Code:    "AUTH_VALIDATION_ERROR",
				})
			}
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID.Hex())
		c.Set("userEmail", user.Email)

		go am.updateUserLastSeen(user)

		c.Next()
	})
}

// WebSocketAuth validates a token passed on the WebSocket upgrade request.
func (am *AuthMiddleware) WebSocketAuth(token string) (*models.User, error) {
	if token == "" {
		return nil, utils.NewValidationError("Authentication token required")
	}

	claims, err := am.jwtService.ValidateToken(token)
	if err != nil {
		return nil, utils.NewValidationError("Invalid authentication token")
	}

	if claims.ExpiresAt.Before(time.Now()) {
		return nil, utils.NewValidationError("Authentication token expired")
	}

	if claims.TokenType != "access" {
		return nil, utils.NewValidationError("Invalid token type")
	}

	user, err := am.loadActiveUser(claims.UserID)
	if err != nil {
		return nil, err
	}

	go am.updateUserLastSeen(user)

	return user, nil
}

func (am *AuthMiddleware) loadActiveUser(userID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := am.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, utils.NewUnauthorizedError("User account is deactivated")
	}

	return user, nil
}

// extractToken extracts the JWT token from the request
func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	if token := c.Query("token"); token != "" {
		return token
	}

	if token, err := c.Cookie("auth_token"); err == nil {
		return token
	}

	return ""
}

func (am *AuthMiddleware) updateUserLastSeen(user *models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := am.userRepo.UpdateLastSeen(ctx, user.ID); err != nil {
		logrus.Debugf("Failed to update last seen for user %s: %v", user.ID.Hex(), err)
	}
}

// GetCurrentUser returns the current authenticated user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		return nil, false
	}

	userModel, ok := user.(*models.User)
	return userModel, ok
}

// GetCurrentUserID returns the current authenticated user ID from context
func GetCurrentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok
}
