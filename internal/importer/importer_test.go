package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bankbang/internal/models"
	"bankbang/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, chinaTZ)

var header = []string{"公司", "岗位", "城市", "类别", "学历", "专业", "截止日期", "投递链接", "备注"}

func TestFindHeader_SkipsTitleBlock(t *testing.T) {
	rows := [][]string{
		{"2025 金融校招汇总"},
		{},
		{" 公司名称 ", "职位", "工作地点", "截止时间", "网申链接"},
	}
	h, err := FindHeader(rows)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Row)
	assert.Equal(t, 0, h.Columns[FieldCompany])
	assert.Equal(t, 4, h.Columns[FieldApplyURL])

	_, err = FindHeader([][]string{{"foo", "bar"}})
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestParse_NormalisesRow(t *testing.T) {
	rows := [][]string{
		header,
		{"招商银行", "总行管培生", "深圳/上海、深圳", "校园招聘", "硕士", "金融", "2025/3/31", "www.cmbchina.com/campus", "  备注  文本 "},
	}

	jobs, res, err := Parse(rows, Options{Now: testNow, Source: "sheet-2025"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	j := jobs[0].Job
	assert.Equal(t, 2, jobs[0].Line)
	assert.Equal(t, "深圳/上海", j.City)
	assert.Equal(t, models.JobCategoryCampus, j.Category)
	assert.Equal(t, "https://www.cmbchina.com/campus", j.ApplyURL)
	assert.Equal(t, "备注 文本", j.Description)
	assert.Equal(t, "sheet-2025", j.Source)
	require.NotNil(t, j.Deadline)
	assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 0, chinaTZ), *j.Deadline)
	assert.Equal(t, models.JobStatusOpen, j.Status)
	require.NotNil(t, j.SourceID)
	assert.Len(t, *j.SourceID, 32)
	assert.Equal(t, 0, res.Shifted)
	assert.Empty(t, res.Warnings)
}

func TestParse_RealignsShiftedRow(t *testing.T) {
	rows := [][]string{
		header,
		// лишняя ячейка сдвинула все на колонку вправо
		{"", "中信证券", "投行部实习生", "北京", "实习", "本科", "不限", "2025-04-15", "https://job.citics.com/1", "日常实习"},
	}

	jobs, res, err := Parse(rows, Options{Now: testNow})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, res.Shifted)
	assert.Equal(t, []int{2}, res.ShiftedLines)

	j := jobs[0].Job
	assert.Equal(t, "中信证券", j.CompanyName)
	assert.Equal(t, "投行部实习生", j.Title)
	assert.Equal(t, models.JobCategoryIntern, j.Category)
	assert.Equal(t, "https://job.citics.com/1", j.ApplyURL)
	assert.Equal(t, "日常实习", j.Description)
}

func TestParse_SingleAnchorShift(t *testing.T) {
	rows := [][]string{
		header,
		// дедлайна нет, сдвиг виден только по ссылке
		{"", "平安银行", "柜员", "深圳", "社招", "本科", "会计", "", "https://talent.pingan.com/x"},
	}

	jobs, res, err := Parse(rows, Options{Now: testNow})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, res.Shifted)

	j := jobs[0].Job
	assert.Equal(t, "平安银行", j.CompanyName)
	assert.Equal(t, "https://talent.pingan.com/x", j.ApplyURL)
	assert.Equal(t, models.JobCategorySocial, j.Category)
	assert.Nil(t, j.Deadline)
}

func TestParse_ConflictingAnchorsWarns(t *testing.T) {
	rows := [][]string{
		header,
		{"工商银行", "数据分析", "北京", "校招", "硕士", "统计", "https://a.example.com", "2025-05-01", "x"},
	}

	jobs, res, err := Parse(rows, Options{Now: testNow})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 0, res.Shifted)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "disagree")
}

func TestParse_SkipsRowsWithoutCompany(t *testing.T) {
	rows := [][]string{
		header,
		{"", "无名岗位"},
		{},
		{"建设银行", "柜员", "", "", "", "", "2024-12-31"},
	}
	jobs, res, err := Parse(rows, Options{Now: testNow})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Skipped)
	// прошедший дедлайн - вакансия закрыта
	assert.Equal(t, models.JobStatusClosed, jobs[0].Job.Status)
}

func TestParseDeadline(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-31", time.Date(2025, 3, 31, 23, 59, 59, 0, chinaTZ)},
		{"2025/4/1", time.Date(2025, 4, 1, 23, 59, 59, 0, chinaTZ)},
		{"2025.4.2", time.Date(2025, 4, 2, 23, 59, 59, 0, chinaTZ)},
		{"2025年4月3日", time.Date(2025, 4, 3, 23, 59, 59, 0, chinaTZ)},
		{"4月5日", time.Date(2025, 4, 5, 23, 59, 59, 0, chinaTZ)},
		{"1月2日", time.Date(2026, 1, 2, 23, 59, 59, 0, chinaTZ)}, // already past this year
		{"45747", time.Date(2025, 3, 31, 23, 59, 59, 0, chinaTZ)},
	}
	for _, tc := range cases {
		got, ok := ParseDeadline(tc.in, testNow)
		require.True(t, ok, tc.in)
		assert.Equal(t, tc.want, *got, tc.in)
	}

	for _, bad := range []string{"", "长期有效", "2025-02-30", "12", "abc"} {
		_, ok := ParseDeadline(bad, testNow)
		assert.False(t, ok, bad)
	}
}

func TestSplitCitiesAndCategory(t *testing.T) {
	assert.Equal(t, []string{"北京", "上海", "深圳"}, SplitCities("北京/上海、深圳，北京"))
	assert.Nil(t, SplitCities(" "))

	assert.Equal(t, models.JobCategoryCampus, MapCategory("校招", ""))
	assert.Equal(t, models.JobCategoryIntern, MapCategory("实习", ""))
	assert.Equal(t, models.JobCategorySocial, MapCategory("社招", ""))
	assert.Equal(t, models.JobCategoryIntern, MapCategory("", "暑期实习生"))
	assert.Equal(t, models.JobCategoryCampus, MapCategory("", "管培生"))
}

func TestSourceID_Stable(t *testing.T) {
	a := SourceID("招商银行", "管培生", "深圳", "https://x")
	b := SourceID("招商银行", "管培生", "深圳", "https://x")
	c := SourceID("招商银行", "管培生", "上海", "https://x")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestReadFile_XLSXAndCSV(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"公司", "岗位", "截止日期"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"交通银行", "管培生", "2025-06-30"}))
	xlsxPath := filepath.Join(dir, "jobs.xlsx")
	require.NoError(t, f.SaveAs(xlsxPath))

	rows, err := ReadFile(xlsxPath, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "交通银行", rows[1][0])

	csvRows, err := ReadCSV(strings.NewReader("\ufeff公司,岗位\n农业银行,柜员\n"))
	require.NoError(t, err)
	assert.Equal(t, "公司", csvRows[0][0])

	_, err = ReadFile(filepath.Join(dir, "jobs.txt"), "")
	assert.Error(t, err)
}

// --- Import на настоящей БД ---

type repoUpserter struct{ repo repositories.JobRepository }

func (u repoUpserter) UpsertBySource(ctx context.Context, db *gorm.DB, job *models.JobListing) (bool, error) {
	existing, err := u.repo.FindBySourceID(db, *job.SourceID)
	if err == repositories.ErrJobNotFound {
		return true, u.repo.Create(db, job)
	}
	if err != nil {
		return false, err
	}
	job.ID = existing.ID
	return false, u.repo.Update(db, job)
}

type repoCompanies struct {
	repo repositories.CompanyRepository
}

func (c repoCompanies) EnsureByName(ctx context.Context, db *gorm.DB, name string) (*models.Company, error) {
	return c.repo.FirstOrCreateByName(db, name)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestImport_UpsertsAndDryRun(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	im := New(repoUpserter{repositories.NewJobRepository()}, repoCompanies{repositories.NewCompanyRepository()})

	rows := [][]string{
		header,
		{"招商银行", "管培生", "深圳", "校招", "", "", "2025-03-31", "https://a"},
		{"招商银行", "IT 岗", "深圳", "校招", "", "", "2025-03-31", "https://b"},
	}

	res, err := im.Import(ctx, db, rows, Options{Now: testNow, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	var count int64
	db.Model(&models.JobListing{}).Count(&count)
	assert.Zero(t, count, "dry run must not persist")

	res, err = im.Import(ctx, db, rows, Options{Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	res, err = im.Import(ctx, db, rows, Options{Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.Updated)

	db.Model(&models.JobListing{}).Count(&count)
	assert.Equal(t, int64(2), count)
	var companies int64
	db.Model(&models.Company{}).Count(&companies)
	assert.Equal(t, int64(1), companies)
}
