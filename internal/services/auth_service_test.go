package services

import (
	"context"
	"testing"
	"time"

	"bankbang/internal/auth"
	"bankbang/internal/email"
	"bankbang/internal/models"
	"bankbang/internal/ratelimit"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authFixture struct {
	db      *gorm.DB
	svc     AuthService
	mailbox *email.LogProvider
}

func newAuthFixture(t *testing.T) *authFixture {
	db := newTestDB(t)
	templates, err := email.NewDefaultTemplateManager()
	require.NoError(t, err)
	mailbox := email.NewLogProvider("noreply@bankbang.test", templates)

	svc := NewAuthService(
		repositories.NewUserRepository(),
		repositories.NewVerificationRepository(),
		repositories.NewRefreshTokenRepository(),
		mailbox,
		ratelimit.NewMemoryLimiter(),
		AuthConfig{
			OTPTTL:         10 * time.Minute,
			ResendInterval: time.Minute,
			IPPerHour:      10,
			MaxAttempts:    3,
			RefreshTTL:     24 * time.Hour,
		},
	)
	return &authFixture{db: db, svc: svc, mailbox: mailbox}
}

// seedCode stores a known code so tests do not depend on email contents.
func (f *authFixture) seedCode(t *testing.T, addr string, purpose models.OTPPurpose, code string) *models.Verification {
	t.Helper()
	hash, err := auth.HashOTP(code)
	require.NoError(t, err)
	v := &models.Verification{
		Email:     addr,
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, f.db.Create(v).Error)
	return v
}

func TestSendOTP_StoresHashedCodeAndSendsMail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SendOTP(ctx, f.db, &dto.SendOTPRequest{Email: " New@Example.com ", Purpose: models.OTPPurposeSignup}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 600, resp.ExpiresIn)
	assert.Equal(t, 60, resp.ResendAfter)

	var rows []models.Verification
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "new@example.com", rows[0].Email)
	assert.Len(t, rows[0].CodeHash, 60, "bcrypt hash, not the code")

	sent := f.mailbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"new@example.com"}, sent[0].To)
}

func TestSendOTP_ThrottlesSameEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	req := &dto.SendOTPRequest{Email: "a@example.com", Purpose: models.OTPPurposeSignup}

	_, err := f.svc.SendOTP(ctx, f.db, req, "10.0.0.1")
	require.NoError(t, err)

	_, err = f.svc.SendOTP(ctx, f.db, req, "10.0.0.2")
	appErr := requireAppCode(t, err, apperrors.CodeTooManyRequests)
	assert.Equal(t, 429, appErr.HTTPCode)
}

func TestSendOTP_EmailThrottleKeepsIPQuota(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	req := &dto.SendOTPRequest{Email: "a@example.com", Purpose: models.OTPPurposeSignup}

	_, err := f.svc.SendOTP(ctx, f.db, req, "10.0.0.9")
	require.NoError(t, err)
	// Квота IP = 10 в час; повторы того же адреса режутся раньше
	for i := 0; i < 12; i++ {
		_, err = f.svc.SendOTP(ctx, f.db, req, "10.0.0.9")
		requireAppCode(t, err, apperrors.CodeTooManyRequests)
	}

	_, err = f.svc.SendOTP(ctx, f.db, &dto.SendOTPRequest{Email: "other@example.com", Purpose: models.OTPPurposeSignup}, "10.0.0.9")
	require.NoError(t, err)
}

func TestSendOTP_NewCodeInvalidatesOlder(t *testing.T) {
	f := newAuthFixture(t)
	old := f.seedCode(t, "b@example.com", models.OTPPurposeSignup, "111111")

	_, err := f.svc.SendOTP(context.Background(), f.db, &dto.SendOTPRequest{Email: "b@example.com", Purpose: models.OTPPurposeSignup}, "")
	require.NoError(t, err)

	var reloaded models.Verification
	require.NoError(t, f.db.First(&reloaded, "id = ?", old.ID).Error)
	assert.NotNil(t, reloaded.ConsumedAt)
}

func TestSendOTP_UnknownAccountIsSilent(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.SendOTP(context.Background(), f.db, &dto.SendOTPRequest{Email: "ghost@example.com", Purpose: models.OTPPurposeLogin}, "")
	require.NoError(t, err)

	var count int64
	f.db.Model(&models.Verification{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, f.mailbox.Sent())
}

func TestSendOTP_SignupForVerifiedEmailConflicts(t *testing.T) {
	f := newAuthFixture(t)
	createUser(t, f.db, "taken@example.com", models.UserRoleUser)

	_, err := f.svc.SendOTP(context.Background(), f.db, &dto.SendOTPRequest{Email: "taken@example.com", Purpose: models.OTPPurposeSignup}, "")
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestVerifySignup_CreatesUserOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedCode(t, "c@example.com", models.OTPPurposeSignup, "123456")

	resp, err := f.svc.VerifySignup(ctx, f.db, &dto.VerifySignupRequest{
		Email: "c@example.com", Code: "123456", Name: "小陈", Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.User.EmailVerified)
	assert.True(t, resp.User.HasPassword)
	assert.Equal(t, models.UserRoleUser, resp.User.Role)

	claims, err := auth.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	// the code is single use
	_, err = f.svc.VerifySignup(ctx, f.db, &dto.VerifySignupRequest{Email: "c@example.com", Code: "123456", Name: "x"})
	assert.ErrorIs(t, err, apperrors.ErrOTPInvalid)
}

func TestVerifySignup_AttemptsAreCapped(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedCode(t, "d@example.com", models.OTPPurposeSignup, "123456")
	req := &dto.VerifySignupRequest{Email: "d@example.com", Code: "000000", Name: "d"}

	for i := 0; i < 3; i++ {
		_, err := f.svc.VerifySignup(ctx, f.db, req)
		assert.ErrorIs(t, err, apperrors.ErrOTPInvalid)
	}

	req.Code = "123456"
	_, err := f.svc.VerifySignup(ctx, f.db, req)
	assert.ErrorIs(t, err, apperrors.ErrOTPTooManyAttempts)
}

func TestVerifySignup_LastAttemptIsTakenOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	v := f.seedCode(t, "d2@example.com", models.OTPPurposeSignup, "123456")
	// Строка прочитана до записи счетчика: остается ровно одна попытка
	require.NoError(t, f.db.Model(v).UpdateColumn("attempts", 2).Error)

	repo := repositories.NewVerificationRepository()
	ok, err := repo.TryAttempt(f.db, v.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.TryAttempt(f.db, v.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok, "stale readers must not get past the cap")

	_, err = f.svc.VerifySignup(ctx, f.db, &dto.VerifySignupRequest{Email: "d2@example.com", Code: "123456", Name: "d"})
	assert.ErrorIs(t, err, apperrors.ErrOTPTooManyAttempts)

	var reloaded models.Verification
	require.NoError(t, f.db.First(&reloaded, "id = ?", v.ID).Error)
	assert.Equal(t, 3, reloaded.Attempts)
	assert.Nil(t, reloaded.ConsumedAt)
}

func TestVerifySignup_CorrectCodeOnLastAttempt(t *testing.T) {
	f := newAuthFixture(t)
	v := f.seedCode(t, "d3@example.com", models.OTPPurposeSignup, "123456")
	require.NoError(t, f.db.Model(v).UpdateColumn("attempts", 2).Error)

	_, err := f.svc.VerifySignup(context.Background(), f.db, &dto.VerifySignupRequest{Email: "d3@example.com", Code: "123456", Name: "d"})
	require.NoError(t, err)
}

func TestVerifySignup_ExpiredCode(t *testing.T) {
	f := newAuthFixture(t)
	v := f.seedCode(t, "e@example.com", models.OTPPurposeSignup, "123456")
	require.NoError(t, f.db.Model(v).Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err := f.svc.VerifySignup(context.Background(), f.db, &dto.VerifySignupRequest{Email: "e@example.com", Code: "123456", Name: "e"})
	assert.ErrorIs(t, err, apperrors.ErrOTPExpired)
}

func TestLoginAndRefreshRotation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := createUser(t, f.db, "f@example.com", models.UserRoleEditor)
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(user).Update("password_hash", hash).Error)

	_, err = f.svc.LoginWithPassword(ctx, f.db, &dto.LoginRequest{Email: "f@example.com", Password: "wrong-horse"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	login, err := f.svc.LoginWithPassword(ctx, f.db, &dto.LoginRequest{Email: "F@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotNil(t, login.User.LastLoginAt)
	assert.Equal(t, models.UserRoleEditor, login.User.Role)

	refreshed, err := f.svc.Refresh(ctx, f.db, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = f.svc.Refresh(ctx, f.db, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	require.NoError(t, f.svc.Logout(ctx, f.db, refreshed.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, f.db, refreshed.RefreshToken))
	_, err = f.svc.Refresh(ctx, f.db, refreshed.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestLoginWithPassword_OTPOnlyUserAndSuspended(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	createUser(t, f.db, "otp-only@example.com", models.UserRoleUser)

	_, err := f.svc.LoginWithPassword(ctx, f.db, &dto.LoginRequest{Email: "otp-only@example.com", Password: "anything"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	suspended := createUser(t, f.db, "s@example.com", models.UserRoleUser)
	require.NoError(t, f.db.Model(suspended).Update("status", models.UserStatusSuspended).Error)
	f.seedCode(t, "s@example.com", models.OTPPurposeLogin, "654321")
	_, err = f.svc.LoginWithOTP(ctx, f.db, &dto.LoginOTPRequest{Email: "s@example.com", Code: "654321"})
	assert.ErrorIs(t, err, apperrors.ErrUserSuspended)
}

func TestLoginWithOTP(t *testing.T) {
	f := newAuthFixture(t)
	createUser(t, f.db, "g@example.com", models.UserRoleUser)
	f.seedCode(t, "g@example.com", models.OTPPurposeLogin, "222222")

	resp, err := f.svc.LoginWithOTP(context.Background(), f.db, &dto.LoginOTPRequest{Email: "g@example.com", Code: "222222"})
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", resp.User.Email)
}

func TestResetPassword_RevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := createUser(t, f.db, "h@example.com", models.UserRoleUser)
	require.NoError(t, f.db.Create(&models.RefreshToken{UserID: user.ID, Token: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	err := f.svc.ResetPassword(ctx, f.db, &dto.ResetPasswordRequest{Email: "h@example.com", Code: "333333", NewPassword: "short"})
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

	f.seedCode(t, "h@example.com", models.OTPPurposeResetPassword, "333333")
	require.NoError(t, f.svc.ResetPassword(ctx, f.db, &dto.ResetPasswordRequest{Email: "h@example.com", Code: "333333", NewPassword: "brand-new-pass"}))

	var tokens int64
	f.db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&tokens)
	assert.Zero(t, tokens)

	_, err = f.svc.LoginWithPassword(ctx, f.db, &dto.LoginRequest{Email: "h@example.com", Password: "brand-new-pass"})
	assert.NoError(t, err)
}

func TestUpdateProfileAndSeedAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := createUser(t, f.db, "i@example.com", models.UserRoleUser)

	name := "  新名字 "
	me, err := f.svc.UpdateProfile(ctx, f.db, user.ID, &dto.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "新名字", me.Name)

	admin, err := f.svc.SeedAdmin(ctx, f.db, "i@example.com", "admin-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, admin.ID)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)
	assert.True(t, admin.HasPassword())
}
