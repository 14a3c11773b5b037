package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/internal/storage"
	"bankbang/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(storage.Config{
		Type:      "local",
		BasePath:  t.TempDir(),
		BaseURL:   "http://localhost:8080/api/v1/files",
		UploadURL: "http://localhost:8080/api/v1/uploads/local",
	})
	require.NoError(t, err)
	return store
}

func newUploadService(store storage.Storage) UploadService {
	return NewUploadService(repositories.NewUploadRepository(), store, UploadConfig{
		MaxSize:      1024,
		AllowedTypes: []string{"image/png", "image/jpeg"},
		PresignTTL:   15 * time.Minute,
		LocalStorage: true,
	})
}

func TestUpload_PresignPutConfirm(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := newLocalStorage(t)
	svc := newUploadService(store)
	owner := createUser(t, db, "owner@example.com", models.UserRoleUser)
	other := createUser(t, db, "other@example.com", models.UserRoleUser)

	presign, err := svc.CreatePresigned(ctx, db, owner.ID, &dto.PresignRequest{
		Purpose: models.UploadPurposeAvatar, ContentType: "IMAGE/PNG", Size: 10, Filename: "me.png",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(presign.Key, "avatar/"+owner.ID+"/"))
	assert.True(t, strings.HasSuffix(presign.Key, ".png"))
	assert.Equal(t, "PUT", presign.Method)
	assert.Equal(t, "http://localhost:8080/api/v1/uploads/local/"+presign.Key, presign.UploadURL)
	assert.Equal(t, "http://localhost:8080/api/v1/files/"+presign.Key, presign.PublicURL)

	// объект ещё не загружен
	_, err = svc.Confirm(ctx, db, owner.ID, presign.UploadID)
	assert.ErrorIs(t, err, apperrors.ErrUploadMissingObject)

	err = svc.PutLocal(ctx, db, other.ID, presign.Key, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrUploadNotFound)

	err = svc.PutLocal(ctx, db, owner.ID, presign.Key, "image/jpeg", strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)

	require.NoError(t, svc.PutLocal(ctx, db, owner.ID, presign.Key, "image/png", strings.NewReader("png-bytes")))

	_, err = svc.Confirm(ctx, db, other.ID, presign.UploadID)
	assert.ErrorIs(t, err, apperrors.ErrUploadNotFound)

	upload, err := svc.Confirm(ctx, db, owner.ID, presign.UploadID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusConfirmed, upload.Status)
	assert.EqualValues(t, len("png-bytes"), upload.Size)
	require.NotNil(t, upload.ConfirmedAt)

	rc, contentType, err := svc.OpenLocal(ctx, presign.Key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "image/png", contentType)
}

func TestUpload_RejectsBadRequests(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newUploadService(newLocalStorage(t))
	owner := createUser(t, db, "owner@example.com", models.UserRoleUser)

	_, err := svc.CreatePresigned(ctx, db, owner.ID, &dto.PresignRequest{
		Purpose: models.UploadPurposeAvatar, ContentType: "application/pdf", Size: 10,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)

	_, err = svc.CreatePresigned(ctx, db, owner.ID, &dto.PresignRequest{
		Purpose: models.UploadPurposeAvatar, ContentType: "image/png", Size: 4096,
	})
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)

	presign, err := svc.CreatePresigned(ctx, db, owner.ID, &dto.PresignRequest{
		Purpose: models.UploadPurposeExperienceCover, ContentType: "image/png", Size: 10,
	})
	require.NoError(t, err)
	err = svc.PutLocal(ctx, db, owner.ID, presign.Key, "", bytes.NewReader(make([]byte, 2048)))
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)

	_, _, err = svc.OpenLocal(ctx, "../etc/passwd")
	requireAppCode(t, err, apperrors.CodeValidationFailed)
}

func TestMaintenance_Cleanup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := newLocalStorage(t)
	uploads := newUploadService(store)
	owner := createUser(t, db, "owner@example.com", models.UserRoleUser)
	now := time.Now()

	require.NoError(t, db.Create(&models.Verification{Email: "x@example.com", Purpose: models.OTPPurposeLogin, CodeHash: "h", ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.Verification{Email: "y@example.com", Purpose: models.OTPPurposeLogin, CodeHash: "h", ExpiresAt: now.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&models.RefreshToken{UserID: owner.ID, Token: "old", ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.RefreshToken{UserID: owner.ID, Token: "live", ExpiresAt: now.Add(time.Hour)}).Error)

	presign, err := uploads.CreatePresigned(ctx, db, owner.ID, &dto.PresignRequest{
		Purpose: models.UploadPurposeAvatar, ContentType: "image/png", Size: 3,
	})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, presign.Key, strings.NewReader("abc"), "image/png"))

	svc := NewMaintenanceService(repositories.NewVerificationRepository(), repositories.NewRefreshTokenRepository(), uploads, time.Hour)

	stats, err := svc.Cleanup(ctx, db, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Verifications)
	assert.EqualValues(t, 1, stats.RefreshTokens)
	assert.Zero(t, stats.Uploads)

	stats, err = svc.Cleanup(ctx, db, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Uploads)

	exists, err := store.Exists(ctx, presign.Key)
	require.NoError(t, err)
	assert.False(t, exists)
}
