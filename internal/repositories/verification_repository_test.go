package repositories

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"bankbang/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestVerification_TryAttemptStopsAtCap(t *testing.T) {
	db := newTestDB(t)
	repo := NewVerificationRepository()
	v := &models.Verification{
		Email:     "a@example.com",
		Purpose:   models.OTPPurposeLogin,
		CodeHash:  "x",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, repo.Create(db, v))

	for i := 0; i < 2; i++ {
		ok, err := repo.TryAttempt(db, v.ID, 2)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	// Вызывающий мог прочитать строку до двух записей выше; лимит держит сама БД
	ok, err := repo.TryAttempt(db, v.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindLatestActive(db, "a@example.com", models.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)

	ok, err = repo.TryAttempt(db, "missing", 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerification_ConsumeOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewVerificationRepository()
	v := &models.Verification{
		Email:     "b@example.com",
		Purpose:   models.OTPPurposeSignup,
		CodeHash:  "x",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, repo.Create(db, v))

	require.NoError(t, repo.Consume(db, v.ID, time.Now()))
	assert.ErrorIs(t, repo.Consume(db, v.ID, time.Now()), ErrVerificationNotFound)

	_, err := repo.FindLatestActive(db, "b@example.com", models.OTPPurposeSignup)
	assert.ErrorIs(t, err, ErrVerificationNotFound)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `c:\\tmp`, EscapeLike(`c:\tmp`))
	assert.Equal(t, "招商", EscapeLike("招商"))
}
