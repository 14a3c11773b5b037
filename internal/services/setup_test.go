package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"bankbang/internal/auth"
	"bankbang/internal/models"
	"bankbang/pkg/apperrors"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	auth.Init("test-secret-test-secret-test-secret", time.Hour)
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{
		Email:         email,
		Name:          strings.Split(email, "@")[0],
		Role:          role,
		Status:        models.UserStatusActive,
		EmailVerified: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func requireAppCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Error())
	return appErr
}
