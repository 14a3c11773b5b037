package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"bankbang/internal/config"
	"bankbang/internal/logger"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/internal/storage"
	"bankbang/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ============================================
// UPLOAD SERVICE (прямая загрузка в хранилище)
// ============================================

type UploadService interface {
	// CreatePresigned выдает URL для PUT и создает запись в статусе pending
	CreatePresigned(ctx context.Context, db *gorm.DB, userID string, req *dto.PresignRequest) (*dto.PresignResponse, error)
	// Confirm проверяет, что объект загружен, и фиксирует реальный размер
	Confirm(ctx context.Context, db *gorm.DB, userID, uploadID string) (*models.Upload, error)
	// PutLocal принимает тело файла для локального хранилища (dev)
	PutLocal(ctx context.Context, db *gorm.DB, userID, key, contentType string, body io.Reader) error
	// OpenLocal отдает файл из локального хранилища
	OpenLocal(ctx context.Context, key string) (io.ReadCloser, string, error)
	CleanupPending(ctx context.Context, db *gorm.DB, olderThan time.Time) (*dto.CleanupResult, error)
}

type UploadConfig struct {
	MaxSize      int64
	AllowedTypes []string
	PresignTTL   time.Duration
	LocalStorage bool
}

func UploadConfigFrom(cfg *config.Config) UploadConfig {
	return UploadConfig{
		MaxSize:      cfg.Upload.MaxSize,
		AllowedTypes: cfg.Upload.AllowedTypes,
		PresignTTL:   cfg.Upload.PresignTTL,
		LocalStorage: cfg.Storage.Type == "local",
	}
}

const cleanupBatchSize = 500

var extensionByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type uploadService struct {
	uploadRepo repositories.UploadRepository
	storage    storage.Storage
	config     UploadConfig
}

func NewUploadService(uploadRepo repositories.UploadRepository, storage storage.Storage, cfg UploadConfig) UploadService {
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	return &uploadService{
		uploadRepo: uploadRepo,
		storage:    storage,
		config:     cfg,
	}
}

func (s *uploadService) CreatePresigned(ctx context.Context, db *gorm.DB, userID string, req *dto.PresignRequest) (*dto.PresignResponse, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !s.isAllowedType(contentType) {
		return nil, apperrors.ErrInvalidFileType
	}
	if req.Size > s.config.MaxSize {
		return nil, apperrors.ErrFileTooLarge.WithDetails(map[string]int64{"max_size": s.config.MaxSize})
	}
	if !req.Purpose.Valid() {
		return nil, apperrors.NewBadRequestError("Unknown upload purpose")
	}

	ext, ok := extensionByType[contentType]
	if !ok {
		ext = path.Ext(req.Filename)
	}
	key := string(req.Purpose) + "/" + userID + "/" + uuid.NewString() + ext

	uploadURL, err := s.storage.PresignPut(ctx, key, contentType, s.config.PresignTTL)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	publicURL, err := s.storage.GetURL(ctx, key)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	expiresAt := time.Now().Add(s.config.PresignTTL)
	meta, _ := json.Marshal(map[string]interface{}{
		"declared_size":      req.Size,
		"presign_expires_at": expiresAt.UTC().Format(time.RFC3339),
	})

	upload := &models.Upload{
		UserID:       userID,
		Key:          key,
		Purpose:      req.Purpose,
		ContentType:  contentType,
		Size:         req.Size,
		OriginalName: req.Filename,
		PublicURL:    publicURL,
		Status:       models.UploadStatusPending,
		Metadata:     datatypes.JSON(meta),
	}
	if err := s.uploadRepo.Create(db.WithContext(ctx), upload); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.PresignResponse{
		UploadID:  upload.ID,
		Key:       key,
		Method:    http.MethodPut,
		UploadURL: uploadURL,
		Headers:   map[string]string{"Content-Type": contentType},
		PublicURL: publicURL,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *uploadService) Confirm(ctx context.Context, db *gorm.DB, userID, uploadID string) (*models.Upload, error) {
	db = db.WithContext(ctx)
	upload, err := s.uploadRepo.FindByID(db, uploadID)
	if err != nil {
		return nil, s.mapError(err)
	}
	// Чужие загрузки не раскрываем
	if upload.UserID != userID {
		return nil, apperrors.ErrUploadNotFound
	}
	if upload.Status == models.UploadStatusConfirmed {
		return upload, nil
	}

	size, err := s.storage.GetSize(ctx, upload.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperrors.ErrUploadMissingObject
		}
		return nil, apperrors.InternalError(err)
	}
	if size > s.config.MaxSize {
		if err := s.storage.Delete(ctx, upload.Key); err != nil {
			logger.CtxWarn(ctx, "Failed to delete oversized object", "key", upload.Key, "error", err)
		}
		return nil, apperrors.ErrFileTooLarge
	}

	now := time.Now()
	upload.Size = size
	upload.Status = models.UploadStatusConfirmed
	upload.ConfirmedAt = &now
	if err := s.uploadRepo.Update(db, upload); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Upload confirmed", "upload_id", upload.ID, "size", size)
	return upload, nil
}

func (s *uploadService) PutLocal(ctx context.Context, db *gorm.DB, userID, key, contentType string, body io.Reader) error {
	if !s.config.LocalStorage {
		return apperrors.ErrPresignUnsupported
	}
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return apperrors.NewBadRequestError("Invalid object key")
	}

	upload, err := s.uploadRepo.FindByKey(db.WithContext(ctx), cleaned)
	if err != nil {
		return s.mapError(err)
	}
	if upload.UserID != userID || upload.Status != models.UploadStatusPending {
		return apperrors.ErrUploadNotFound
	}
	if time.Since(upload.CreatedAt) > s.config.PresignTTL {
		return apperrors.ErrInvalidOperation("upload", "Upload URL has expired")
	}
	if ct := strings.ToLower(strings.TrimSpace(contentType)); ct != "" && ct != upload.ContentType {
		return apperrors.ErrInvalidFileType
	}

	data, err := io.ReadAll(io.LimitReader(body, s.config.MaxSize+1))
	if err != nil {
		return apperrors.InternalError(err)
	}
	if int64(len(data)) > s.config.MaxSize {
		return apperrors.ErrFileTooLarge
	}

	if err := s.storage.Save(ctx, cleaned, bytes.NewReader(data), upload.ContentType); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *uploadService) OpenLocal(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !s.config.LocalStorage {
		return nil, "", apperrors.ErrInvalidOperation("upload", "Files are served by the storage provider")
	}
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return nil, "", apperrors.NewBadRequestError("Invalid object key")
	}
	rc, err := s.storage.Get(ctx, cleaned)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", apperrors.ErrNotFound(err, "file")
		}
		return nil, "", apperrors.InternalError(err)
	}

	contentType := "application/octet-stream"
	for ct, ext := range extensionByType {
		if strings.EqualFold(path.Ext(cleaned), ext) {
			contentType = ct
			break
		}
	}
	return rc, contentType, nil
}

func (s *uploadService) CleanupPending(ctx context.Context, db *gorm.DB, olderThan time.Time) (*dto.CleanupResult, error) {
	db = db.WithContext(ctx)
	stale, err := s.uploadRepo.FindStalePending(db, olderThan, cleanupBatchSize)
	if err != nil {
		return nil, err
	}

	result := &dto.CleanupResult{}
	for _, u := range stale {
		if err := s.storage.Delete(ctx, u.Key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			logger.CtxWarn(ctx, "Failed to delete stale object", "key", u.Key, "error", err)
			result.Failed++
			continue
		}
		if err := s.uploadRepo.Delete(db, u.ID); err != nil {
			logger.CtxWarn(ctx, "Failed to delete stale upload", "upload_id", u.ID, "error", err)
			result.Failed++
			continue
		}
		result.Deleted++
	}
	return result, nil
}

func (s *uploadService) isAllowedType(contentType string) bool {
	for _, t := range s.config.AllowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

func (s *uploadService) mapError(err error) error {
	if errors.Is(err, repositories.ErrUploadNotFound) {
		return apperrors.ErrUploadNotFound
	}
	return asAppError(err)
}
