package services

import (
	"context"
	"strings"

	"aegis/models"
	"aegis/repositories"
	"aegis/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token refresh.
type AuthService struct {
	userRepo   *repositories.UserRepository
	jwtService *utils.JWTService
}

func NewAuthService(userRepo *repositories.UserRepository, jwtService *utils.JWTService) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
	}
}

func (as *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, _ := as.userRepo.GetByEmail(ctx, email); existing != nil {
		return nil, utils.NewConflictError("Email is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.NewInternalError("Failed to hash password")
	}

	user := &models.User{
		Name:     req.Name,
		Email:    email,
		Phone:    req.Phone,
		Password: string(hashed),
		IsActive: true,
	}

	if err := as.userRepo.Create(ctx, user); err != nil {
		return nil, utils.NewDatabaseError("create user", err)
	}

	return as.issueTokens(user)
}

func (as *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := as.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, utils.NewInvalidCredentialsError()
	}

	if !user.IsActive {
		return nil, utils.NewUnauthorizedError("User account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, utils.NewInvalidCredentialsError()
	}

	if err := as.userRepo.UpdateLastSeen(ctx, user.ID); err != nil {
		logrus.Debugf("Failed to update last seen for user %s: %v", user.ID.Hex(), err)
	}

	return as.issueTokens(user)
}

func (as *AuthService) Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	pair, err := as.jwtService.RefreshToken(refreshToken)
	if err != nil {
		return nil, utils.NewUnauthorizedError("Invalid refresh token")
	}
	return pair, nil
}

// RegisterDevice stores a push target for the authenticated user.
func (as *AuthService) RegisterDevice(ctx context.Context, userIDHex, deviceToken string) error {
	if err := as.userRepo.AddDeviceToken(ctx, userIDHex, deviceToken); err != nil {
		return utils.NewDatabaseError("register device token", err)
	}
	return nil
}

func (as *AuthService) issueTokens(user *models.User) (*models.AuthResponse, error) {
	pair, err := as.jwtService.GenerateTokenPair(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, utils.NewInternalError("Failed to generate tokens")
	}

	return &models.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}
