package models

import "time"

type User struct {
	BaseModel
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	Name          string     `gorm:"type:varchar(100)" json:"name"`
	PasswordHash  *string    `json:"-"` // nil for users who only sign in with codes
	Role          UserRole   `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Status        UserStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	AvatarURL     string     `json:"avatar_url"`
	LastLoginAt   *time.Time `json:"last_login_at"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"not null;index"`
	Token     string    `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// Verification is a one-time email code. Only the bcrypt hash of the code is stored.
type Verification struct {
	BaseModel
	Email      string     `gorm:"not null;index:idx_verification_lookup"`
	Purpose    OTPPurpose `gorm:"type:varchar(20);not null;index:idx_verification_lookup"`
	CodeHash   string     `gorm:"not null"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	Attempts   int        `gorm:"not null;default:0"`
	ConsumedAt *time.Time
}

func (v *Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
