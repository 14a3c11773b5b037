package services

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"bankbang/internal/auth"
	"bankbang/internal/config"
	"bankbang/internal/email"
	"bankbang/internal/logger"
	"bankbang/internal/metrics"
	"bankbang/internal/models"
	"bankbang/internal/ratelimit"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/pkg/apperrors"

	"gorm.io/gorm"
)

type AuthService interface {
	SendOTP(ctx context.Context, db *gorm.DB, req *dto.SendOTPRequest, clientIP string) (*dto.SendOTPResponse, error)
	VerifySignup(ctx context.Context, db *gorm.DB, req *dto.VerifySignupRequest) (*dto.AuthResponse, error)
	LoginWithPassword(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error)
	LoginWithOTP(ctx context.Context, db *gorm.DB, req *dto.LoginOTPRequest) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, db *gorm.DB, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, db *gorm.DB, refreshToken string) error
	ResetPassword(ctx context.Context, db *gorm.DB, req *dto.ResetPasswordRequest) error
	Me(ctx context.Context, db *gorm.DB, userID string) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserDTO, error)
	// SeedAdmin создает администратора или повышает существующего пользователя
	SeedAdmin(ctx context.Context, db *gorm.DB, email, password string) (*models.User, error)
}

// AuthConfig - параметры кодов и токенов
type AuthConfig struct {
	OTPTTL         time.Duration
	ResendInterval time.Duration
	IPPerHour      int
	MaxAttempts    int
	RefreshTTL     time.Duration
}

func AuthConfigFrom(cfg *config.Config) AuthConfig {
	return AuthConfig{
		OTPTTL:         cfg.OTP.TTL,
		ResendInterval: cfg.OTP.ResendInterval,
		IPPerHour:      cfg.OTP.IPPerHour,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		RefreshTTL:     cfg.JWT.RefreshTTL,
	}
}

type authService struct {
	userRepo         repositories.UserRepository
	verificationRepo repositories.VerificationRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	emailProvider    email.Provider
	limiter          ratelimit.Limiter
	cfg              AuthConfig
}

func NewAuthService(
	userRepo repositories.UserRepository,
	verificationRepo repositories.VerificationRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	emailProvider email.Provider,
	limiter ratelimit.Limiter,
	cfg AuthConfig,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		verificationRepo: verificationRepo,
		refreshTokenRepo: refreshTokenRepo,
		emailProvider:    emailProvider,
		limiter:          limiter,
		cfg:              cfg,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SendOTP - отправка одноразового кода
func (s *authService) SendOTP(ctx context.Context, db *gorm.DB, req *dto.SendOTPRequest, clientIP string) (*dto.SendOTPResponse, error) {
	emailAddr := normalizeEmail(req.Email)
	if !req.Purpose.Valid() {
		return nil, apperrors.NewBadRequestError("Unknown code purpose")
	}

	// Сначала email: отклоненный повтор не должен тратить квоту IP
	if err := s.throttle(ctx, "otp:email:"+emailAddr, 1, s.cfg.ResendInterval); err != nil {
		return nil, err
	}
	if clientIP != "" {
		if err := s.throttle(ctx, "otp:ip:"+clientIP, s.cfg.IPPerHour, time.Hour); err != nil {
			return nil, err
		}
	}

	resp := &dto.SendOTPResponse{
		ExpiresIn:   int(s.cfg.OTPTTL.Seconds()),
		ResendAfter: int(s.cfg.ResendInterval.Seconds()),
	}

	user, err := s.userRepo.FindByEmail(db, emailAddr)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, apperrors.InternalError(err)
	}
	switch req.Purpose {
	case models.OTPPurposeSignup:
		if user != nil && user.EmailVerified {
			return nil, apperrors.ErrEmailAlreadyExists
		}
	default:
		// Не раскрываем, есть ли такой аккаунт
		if user == nil {
			metrics.OTPSentTotal.WithLabelValues(string(req.Purpose), "skipped").Inc()
			logger.CtxInfo(ctx, "OTP requested for unknown account", "purpose", req.Purpose)
			return resp, nil
		}
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	codeHash, err := auth.HashOTP(code)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	now := time.Now()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.verificationRepo.InvalidateActive(tx, emailAddr, req.Purpose, now); err != nil {
			return err
		}
		return s.verificationRepo.Create(tx, &models.Verification{
			Email:     emailAddr,
			Purpose:   req.Purpose,
			CodeHash:  codeHash,
			ExpiresAt: now.Add(s.cfg.OTPTTL),
		})
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.emailProvider.SendOTP(emailAddr, code, string(req.Purpose), s.cfg.OTPTTL); err != nil {
		metrics.OTPSentTotal.WithLabelValues(string(req.Purpose), "error").Inc()
		logger.CtxWithError(ctx, "Failed to send OTP email", err, "purpose", req.Purpose)
		return nil, apperrors.Wrap(err, apperrors.CodeExternalServiceError, "otp",
			"Failed to send verification code", http.StatusBadGateway)
	}
	metrics.OTPSentTotal.WithLabelValues(string(req.Purpose), "ok").Inc()
	return resp, nil
}

func (s *authService) throttle(ctx context.Context, key string, limit int, window time.Duration) error {
	if s.limiter == nil || limit <= 0 || window <= 0 {
		return nil
	}
	allowed, retryAfter, err := s.limiter.Allow(ctx, key, limit, window)
	if err != nil {
		logger.CtxWarn(ctx, "Rate limiter unavailable", "key", key, "error", err)
		return nil
	}
	if !allowed {
		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		return apperrors.TooManyRequests("otp", "Too many code requests, please try again later", seconds)
	}
	return nil
}

// checkCode проверяет код, не помечая его использованным.
// Счетчик попыток пишется мимо транзакции вызывающего.
func (s *authService) checkCode(db *gorm.DB, emailAddr string, purpose models.OTPPurpose, code string) (*models.Verification, error) {
	v, err := s.verificationRepo.FindLatestActive(db, emailAddr, purpose)
	if err != nil {
		if errors.Is(err, repositories.ErrVerificationNotFound) {
			return nil, apperrors.ErrOTPInvalid
		}
		return nil, apperrors.InternalError(err)
	}
	if v.Expired(time.Now()) {
		return nil, apperrors.ErrOTPExpired
	}
	// Попытка списывается до сравнения хеша: параллельные запросы не обойдут лимит.
	ok, err := s.verificationRepo.TryAttempt(db, v.ID, s.cfg.MaxAttempts)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.ErrOTPTooManyAttempts
	}
	if !auth.CheckPasswordHash(code, v.CodeHash) {
		return nil, apperrors.ErrOTPInvalid
	}
	return v, nil
}

func (s *authService) consume(tx *gorm.DB, v *models.Verification) error {
	if err := s.verificationRepo.Consume(tx, v.ID, time.Now()); err != nil {
		if errors.Is(err, repositories.ErrVerificationNotFound) {
			return apperrors.ErrOTPInvalid
		}
		return err
	}
	return nil
}

// VerifySignup - подтверждение регистрации
func (s *authService) VerifySignup(ctx context.Context, db *gorm.DB, req *dto.VerifySignupRequest) (*dto.AuthResponse, error) {
	emailAddr := normalizeEmail(req.Email)

	var passwordHash *string
	if req.Password != "" {
		if err := auth.ValidatePassword(req.Password); err != nil {
			return nil, apperrors.ErrWeakPassword
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		passwordHash = &hash
	}

	v, err := s.checkCode(db.WithContext(ctx), emailAddr, models.OTPPurposeSignup, req.Code)
	if err != nil {
		return nil, err
	}

	var user *models.User
	var resp *dto.AuthResponse
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.consume(tx, v); err != nil {
			return err
		}

		existing, err := s.userRepo.FindByEmail(tx, emailAddr)
		switch {
		case err == nil:
			if existing.EmailVerified {
				return apperrors.ErrEmailAlreadyExists
			}
			existing.EmailVerified = true
			existing.Name = strings.TrimSpace(req.Name)
			if passwordHash != nil {
				existing.PasswordHash = passwordHash
			}
			if err := s.userRepo.Update(tx, existing); err != nil {
				return err
			}
			user = existing
		case errors.Is(err, repositories.ErrUserNotFound):
			user = &models.User{
				Email:         emailAddr,
				Name:          strings.TrimSpace(req.Name),
				PasswordHash:  passwordHash,
				Role:          models.UserRoleUser,
				Status:        models.UserStatusActive,
				EmailVerified: true,
			}
			if err := s.userRepo.Create(tx, user); err != nil {
				if errors.Is(err, repositories.ErrUserAlreadyExists) {
					return apperrors.ErrEmailAlreadyExists
				}
				return err
			}
		default:
			return err
		}

		resp, err = s.issueTokens(tx, user)
		return err
	})
	if err != nil {
		return nil, asAppError(err)
	}

	logger.CtxInfo(ctx, "User signed up", "user_id", user.ID)
	go func(to, name string) {
		if err := s.emailProvider.SendWelcome(to, name); err != nil {
			logger.Warn("Failed to send welcome email", "error", err)
		}
	}(user.Email, user.Name)

	return resp, nil
}

// LoginWithPassword - вход по паролю
func (s *authService) LoginWithPassword(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(db.WithContext(ctx), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	// Пользователи без пароля входят только по коду
	if !user.HasPassword() || !auth.CheckPasswordHash(req.Password, *user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := checkUserStatus(user); err != nil {
		return nil, err
	}

	return s.login(ctx, db, user, nil)
}

// LoginWithOTP - вход по одноразовому коду
func (s *authService) LoginWithOTP(ctx context.Context, db *gorm.DB, req *dto.LoginOTPRequest) (*dto.AuthResponse, error) {
	emailAddr := normalizeEmail(req.Email)
	user, err := s.userRepo.FindByEmail(db.WithContext(ctx), emailAddr)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrOTPInvalid
		}
		return nil, apperrors.InternalError(err)
	}
	if err := checkUserStatus(user); err != nil {
		return nil, err
	}

	v, err := s.checkCode(db.WithContext(ctx), emailAddr, models.OTPPurposeLogin, req.Code)
	if err != nil {
		return nil, err
	}
	return s.login(ctx, db, user, v)
}

func (s *authService) login(ctx context.Context, db *gorm.DB, user *models.User, v *models.Verification) (*dto.AuthResponse, error) {
	now := time.Now()
	var resp *dto.AuthResponse
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if v != nil {
			if err := s.consume(tx, v); err != nil {
				return err
			}
			// Код пришел на почту, значит адрес подтвержден
			if !user.EmailVerified {
				if err := s.userRepo.UpdateFields(tx, user.ID, map[string]interface{}{"email_verified": true}); err != nil {
					return err
				}
				user.EmailVerified = true
			}
		}
		if err := s.userRepo.TouchLastLogin(tx, user.ID, now); err != nil {
			return err
		}
		user.LastLoginAt = &now

		var err error
		resp, err = s.issueTokens(tx, user)
		return err
	})
	if err != nil {
		return nil, asAppError(err)
	}
	return resp, nil
}

// Refresh - ротация refresh token
func (s *authService) Refresh(ctx context.Context, db *gorm.DB, refreshToken string) (*dto.AuthResponse, error) {
	db = db.WithContext(ctx)
	token, err := s.refreshTokenRepo.FindByToken(db, refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if time.Now().After(token.ExpiresAt) {
		_ = s.refreshTokenRepo.DeleteByToken(db, refreshToken)
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(db, token.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if err := checkUserStatus(user); err != nil {
		return nil, err
	}

	var resp *dto.AuthResponse
	err = db.Transaction(func(tx *gorm.DB) error {
		// Параллельная ротация того же токена должна проиграть
		if err := s.refreshTokenRepo.DeleteByToken(tx, refreshToken); err != nil {
			if errors.Is(err, repositories.ErrRefreshTokenNotFound) {
				return apperrors.ErrInvalidToken
			}
			return err
		}
		var err error
		resp, err = s.issueTokens(tx, user)
		return err
	})
	if err != nil {
		return nil, asAppError(err)
	}
	return resp, nil
}

// Logout идемпотентен: неизвестный токен не ошибка
func (s *authService) Logout(ctx context.Context, db *gorm.DB, refreshToken string) error {
	err := s.refreshTokenRepo.DeleteByToken(db.WithContext(ctx), refreshToken)
	if err != nil && !errors.Is(err, repositories.ErrRefreshTokenNotFound) {
		return apperrors.InternalError(err)
	}
	return nil
}

// ResetPassword - новый пароль по коду; все сессии пользователя завершаются
func (s *authService) ResetPassword(ctx context.Context, db *gorm.DB, req *dto.ResetPasswordRequest) error {
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword
	}
	emailAddr := normalizeEmail(req.Email)

	user, err := s.userRepo.FindByEmail(db.WithContext(ctx), emailAddr)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrOTPInvalid
		}
		return apperrors.InternalError(err)
	}

	v, err := s.checkCode(db.WithContext(ctx), emailAddr, models.OTPPurposeResetPassword, req.Code)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.consume(tx, v); err != nil {
			return err
		}
		if err := s.userRepo.UpdateFields(tx, user.ID, map[string]interface{}{
			"password_hash":  hash,
			"email_verified": true,
		}); err != nil {
			return err
		}
		return s.refreshTokenRepo.DeleteByUserID(tx, user.ID)
	})
	if err != nil {
		return asAppError(err)
	}

	logger.CtxInfo(ctx, "Password reset", "user_id", user.ID)
	return nil
}

func (s *authService) Me(ctx context.Context, db *gorm.DB, userID string) (*dto.UserDTO, error) {
	user, err := s.userRepo.FindByID(db.WithContext(ctx), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	out := dto.NewUserDTO(user)
	return &out, nil
}

func (s *authService) UpdateProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserDTO, error) {
	fields := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.NewBadRequestError("Name must not be empty")
		}
		fields["name"] = name
	}
	if req.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(db.WithContext(ctx), userID, fields); err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil, apperrors.ErrUserNotFound
			}
			return nil, apperrors.InternalError(err)
		}
	}
	return s.Me(ctx, db, userID)
}

func (s *authService) SeedAdmin(ctx context.Context, db *gorm.DB, emailAddr, password string) (*models.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return nil, apperrors.NewBadRequestError("Admin email is required")
	}

	var passwordHash *string
	if password != "" {
		if err := auth.ValidatePassword(password); err != nil {
			return nil, apperrors.ErrWeakPassword
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		passwordHash = &hash
	}

	db = db.WithContext(ctx)
	user, err := s.userRepo.FindByEmail(db, emailAddr)
	switch {
	case err == nil:
		user.Role = models.UserRoleAdmin
		user.Status = models.UserStatusActive
		user.EmailVerified = true
		if passwordHash != nil {
			user.PasswordHash = passwordHash
		}
		if err := s.userRepo.Update(db, user); err != nil {
			return nil, apperrors.InternalError(err)
		}
	case errors.Is(err, repositories.ErrUserNotFound):
		user = &models.User{
			Email:         emailAddr,
			Name:          "admin",
			PasswordHash:  passwordHash,
			Role:          models.UserRoleAdmin,
			Status:        models.UserStatusActive,
			EmailVerified: true,
		}
		if err := s.userRepo.Create(db, user); err != nil {
			return nil, apperrors.InternalError(err)
		}
	default:
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Admin account ensured", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *authService) issueTokens(tx *gorm.DB, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	refreshToken, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokenRepo.Create(tx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(s.cfg.RefreshTTL),
	}); err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(auth.TokenTTL().Seconds()),
		User:         dto.NewUserDTO(user),
	}, nil
}

func checkUserStatus(user *models.User) error {
	switch user.Status {
	case models.UserStatusSuspended:
		return apperrors.ErrUserSuspended
	case models.UserStatusBanned:
		return apperrors.ErrUserBanned
	}
	return nil
}

// asAppError пропускает AppError как есть, остальное превращает в 500
func asAppError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.InternalError(err)
}
