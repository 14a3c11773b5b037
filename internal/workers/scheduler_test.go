package workers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"bankbang/internal/config"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/scraper"
	"bankbang/internal/services"
	"bankbang/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
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

func newTestScheduler(t *testing.T, db *gorm.DB, cfg *config.Config) *Scheduler {
	t.Helper()
	local, err := storage.NewLocalStorage(storage.Config{Type: "local", BasePath: t.TempDir()})
	require.NoError(t, err)

	interactionRepo := repositories.NewInteractionRepository()
	uploadService := services.NewUploadService(repositories.NewUploadRepository(), local, services.UploadConfig{
		MaxSize:      1024,
		AllowedTypes: []string{"image/png"},
		LocalStorage: true,
	})
	svc := &services.ServiceContainer{
		JobService: services.NewJobService(repositories.NewJobRepository(), repositories.NewCompanyRepository(), interactionRepo),
		ReferralService: services.NewReferralService(repositories.NewReferralRepository(), interactionRepo,
			nil, scraper.Selectors{}, 30),
		UploadService: uploadService,
		MaintenanceService: services.NewMaintenanceService(repositories.NewVerificationRepository(),
			repositories.NewRefreshTokenRepository(), uploadService, time.Hour),
	}
	return NewScheduler(db, cfg, svc)
}

func TestScheduler_RunNowClosesExpiredJobs(t *testing.T) {
	db := newTestDB(t)
	s := newTestScheduler(t, db, config.Default())

	yesterday := time.Now().Add(-24 * time.Hour)
	tomorrow := time.Now().Add(24 * time.Hour)
	for i, deadline := range []*time.Time{&yesterday, &tomorrow, nil} {
		require.NoError(t, db.Create(&models.JobListing{
			CompanyName: "中信证券",
			Title:       fmt.Sprintf("投行部实习生 %d", i),
			Category:    models.JobCategoryIntern,
			Status:      models.JobStatusOpen,
			Deadline:    deadline,
			PublishedAt: time.Now(),
		}).Error)
	}

	require.NoError(t, s.RunNow(context.Background(), JobCloseExpiredJobs))

	var closed int64
	require.NoError(t, db.Model(&models.JobListing{}).Where("status = ?", models.JobStatusClosed).Count(&closed).Error)
	assert.EqualValues(t, 1, closed)
}

func TestScheduler_RunNowExpiresReferrals(t *testing.T) {
	db := newTestDB(t)
	s := newTestScheduler(t, db, config.Default())

	old := time.Now().AddDate(0, 0, -45)
	fresh := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Create(&models.Referral{SourceURL: "https://bbs.example.com/t/1", Title: "【华泰】内推", PostedAt: &old}).Error)
	require.NoError(t, db.Create(&models.Referral{SourceURL: "https://bbs.example.com/t/2", Title: "【中金】内推", PostedAt: &fresh}).Error)

	require.NoError(t, s.RunNow(context.Background(), JobExpireReferrals))

	var expired []models.Referral
	require.NoError(t, db.Where("status = ?", models.ReferralStatusExpired).Find(&expired).Error)
	require.Len(t, expired, 1)
	assert.Equal(t, "https://bbs.example.com/t/1", expired[0].SourceURL)
}

func TestScheduler_RunNowCleanup(t *testing.T) {
	db := newTestDB(t)
	s := newTestScheduler(t, db, config.Default())

	require.NoError(t, s.RunNow(context.Background(), JobCleanup))
	assert.Error(t, s.RunNow(context.Background(), "unknown"))
}

func TestScheduler_StartStop(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	cfg.Scheduler.ExpireReferrals = ""
	s := newTestScheduler(t, db, cfg)

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	cfg.Scheduler.Cleanup = "every now and then"
	s := newTestScheduler(t, db, cfg)

	assert.Error(t, s.Start(context.Background()))
}
