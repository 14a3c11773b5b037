package apperrors

import "net/http"

// --- Auth ---

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already registered",
	http.StatusConflict,
)

var ErrWeakPassword = New(
	CodeValidationFailed,
	"auth",
	"Password must be at least 8 characters long",
	http.StatusBadRequest,
)

var ErrUserSuspended = New(
	CodeForbidden,
	"auth",
	"Your account has been suspended",
	http.StatusForbidden,
)

var ErrUserBanned = New(
	CodeForbidden,
	"auth",
	"Your account has been banned",
	http.StatusForbidden,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// --- One-time codes ---

var ErrOTPInvalid = New(
	CodeOTPInvalid,
	"otp",
	"Verification code is incorrect",
	http.StatusBadRequest,
)

var ErrOTPExpired = New(
	CodeOTPExpired,
	"otp",
	"Verification code has expired, please request a new one",
	http.StatusBadRequest,
)

var ErrOTPTooManyAttempts = New(
	CodeOTPTooManyAttempts,
	"otp",
	"Too many wrong attempts, please request a new code",
	http.StatusTooManyRequests,
)

// --- Content ---

var ErrJobNotFound = New(CodeNotFound, "job", "Job listing not found", http.StatusNotFound)

var ErrExperienceNotFound = New(CodeNotFound, "experience", "Experience not found", http.StatusNotFound)

var ErrReferralNotFound = New(CodeNotFound, "referral", "Referral not found", http.StatusNotFound)

var ErrCompanyNotFound = New(CodeNotFound, "company", "Company not found", http.StatusNotFound)

var ErrUserNotFound = New(CodeNotFound, "user", "User not found", http.StatusNotFound)

var ErrTargetNotFound = New(CodeNotFound, "interaction", "Target not found", http.StatusNotFound)

var ErrInvalidTargetType = New(
	CodeValidationFailed,
	"interaction",
	"Unknown target type",
	http.StatusBadRequest,
)

var ErrEmptySearchQuery = New(
	CodeValidationFailed,
	"search",
	"Search query must not be empty",
	http.StatusBadRequest,
)

// --- Uploads ---

var ErrFileTooLarge = New(
	CodeLimitExceeded,
	"upload",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"upload",
	"The provided file type is not allowed",
	http.StatusUnsupportedMediaType,
)

var ErrUploadNotFound = New(CodeNotFound, "upload", "Upload not found", http.StatusNotFound)

var ErrUploadMissingObject = New(
	CodeInvalidStatus,
	"upload",
	"File has not been uploaded yet",
	http.StatusBadRequest,
)

var ErrPresignUnsupported = New(
	CodeInvalidOperation,
	"upload",
	"Direct upload is not available for this storage backend",
	http.StatusBadRequest,
)
