package dto

import (
	"time"

	"bankbang/internal/models"
)

// SendOTPRequest - запрос кода подтверждения
type SendOTPRequest struct {
	Email   string            `json:"email" binding:"required,email"`
	Purpose models.OTPPurpose `json:"purpose" binding:"required" validate:"is-otp-purpose"`
}

type SendOTPResponse struct {
	ExpiresIn   int `json:"expires_in"`
	ResendAfter int `json:"resend_after"`
}

// VerifySignupRequest - регистрация по коду
type VerifySignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
	Name     string `json:"name" binding:"required,max=50"`
	Password string `json:"password" binding:"omitempty,min=8,max=72"`
}

// LoginRequest - вход по паролю
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginOTPRequest - вход по коду
type LoginOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ResetPasswordRequest - сброс пароля по коду
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=50"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
}

// AuthResponse - ответ с токенами
type AuthResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
	User         UserDTO `json:"user"`
}

// UserDTO - публичная информация о пользователе
type UserDTO struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	Role          models.UserRole   `json:"role"`
	Status        models.UserStatus `json:"status"`
	EmailVerified bool              `json:"email_verified"`
	AvatarURL     string            `json:"avatar_url,omitempty"`
	HasPassword   bool              `json:"has_password"`
	LastLoginAt   *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func NewUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		AvatarURL:     u.AvatarURL,
		HasPassword:   u.HasPassword(),
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}
