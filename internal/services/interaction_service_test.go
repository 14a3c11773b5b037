package services

import (
	"context"
	"testing"
	"time"

	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newInteractionService() InteractionService {
	return NewInteractionService(
		repositories.NewInteractionRepository(),
		repositories.NewJobRepository(),
		repositories.NewExperienceRepository(),
		repositories.NewReferralRepository(),
	)
}

func createExperience(t *testing.T, db *gorm.DB, authorID string, status models.ExperienceStatus) *models.Experience {
	t.Helper()
	exp := &models.Experience{
		AuthorID: authorID,
		Title:    "招行总行面经",
		Content:  "一面群面，二面单面。",
		Category: models.ExperienceCategoryInterview,
		Status:   status,
	}
	require.NoError(t, db.Create(exp).Error)
	return exp
}

func createJob(t *testing.T, db *gorm.DB, company, title string) *models.JobListing {
	t.Helper()
	job := &models.JobListing{
		CompanyName: company,
		Title:       title,
		City:        "上海",
		Category:    models.JobCategoryCampus,
		Status:      models.JobStatusOpen,
		PublishedAt: time.Now(),
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

func TestToggleLike_FlipsAndCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newInteractionService()
	alice := createUser(t, db, "alice@example.com", models.UserRoleUser)
	bob := createUser(t, db, "bob@example.com", models.UserRoleUser)
	exp := createExperience(t, db, alice.ID, models.ExperienceStatusPublished)

	resp, err := svc.ToggleLike(ctx, db, alice.ID, models.TargetTypeExperience, exp.ID)
	require.NoError(t, err)
	assert.True(t, resp.Active)
	assert.EqualValues(t, 1, resp.Count)

	resp, err = svc.ToggleLike(ctx, db, bob.ID, models.TargetTypeExperience, exp.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Count)

	resp, err = svc.ToggleLike(ctx, db, alice.ID, models.TargetTypeExperience, exp.ID)
	require.NoError(t, err)
	assert.False(t, resp.Active)
	assert.EqualValues(t, 1, resp.Count)

	var reloaded models.Experience
	require.NoError(t, db.First(&reloaded, "id = ?", exp.ID).Error)
	assert.EqualValues(t, 1, reloaded.LikeCount)
	assert.Zero(t, reloaded.CollectCount)

	state, err := svc.State(ctx, db, bob.ID, models.TargetTypeExperience, exp.ID)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.False(t, state.Collected)
	assert.EqualValues(t, 1, state.LikeCount)
}

func TestToggleCollect_JobCountsRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newInteractionService()
	user := createUser(t, db, "c@example.com", models.UserRoleUser)
	job := createJob(t, db, "中信证券", "投行部实习生")

	resp, err := svc.ToggleCollect(ctx, db, user.ID, models.TargetTypeJob, job.ID)
	require.NoError(t, err)
	assert.True(t, resp.Active)
	assert.EqualValues(t, 1, resp.Count)

	resp, err = svc.ToggleCollect(ctx, db, user.ID, models.TargetTypeJob, job.ID)
	require.NoError(t, err)
	assert.False(t, resp.Active)
	assert.Zero(t, resp.Count)
}

func TestToggle_UnknownTarget(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newInteractionService()

	_, err := svc.ToggleLike(ctx, db, "u1", models.TargetTypeReferral, "missing")
	assert.ErrorIs(t, err, apperrors.ErrTargetNotFound)

	_, err = svc.ToggleLike(ctx, db, "u1", models.TargetType("post"), "x")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTargetType)
}

func TestListCollections_SkipsDeletedTargets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newInteractionService()
	user := createUser(t, db, "d@example.com", models.UserRoleUser)
	kept := createJob(t, db, "招商银行", "管培生")
	gone := createJob(t, db, "平安银行", "柜员")

	for _, id := range []string{kept.ID, gone.ID} {
		_, err := svc.ToggleCollect(ctx, db, user.ID, models.TargetTypeJob, id)
		require.NoError(t, err)
	}
	require.NoError(t, db.Delete(&models.JobListing{}, "id = ?", gone.ID).Error)

	page, err := svc.ListCollections(ctx, db, user.ID, models.TargetTypeJob, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	var withTarget int
	for _, item := range page.Data.([]dto.CollectionItem) {
		if item.Target != nil {
			withTarget++
		}
	}
	assert.Equal(t, 1, withTarget)
}

func TestRecountAll_RepairsDrift(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newInteractionService()
	user := createUser(t, db, "e@example.com", models.UserRoleUser)
	exp := createExperience(t, db, user.ID, models.ExperienceStatusPublished)
	stale := createExperience(t, db, user.ID, models.ExperienceStatusPublished)

	_, err := svc.ToggleLike(ctx, db, user.ID, models.TargetTypeExperience, exp.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Experience{}).Where("id = ?", exp.ID).UpdateColumn("like_count", 7).Error)
	require.NoError(t, db.Model(&models.Experience{}).Where("id = ?", stale.ID).UpdateColumn("collect_count", 3).Error)

	result, err := svc.RecountAll(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Experiences)

	var a, b models.Experience
	require.NoError(t, db.First(&a, "id = ?", exp.ID).Error)
	require.NoError(t, db.First(&b, "id = ?", stale.ID).Error)
	assert.EqualValues(t, 1, a.LikeCount)
	assert.Zero(t, b.CollectCount)
}
