package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"testing"

	"bankbang/internal/imageprocessor"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/scraper"
	"bankbang/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	body     []byte
	gets     int
	last     *url.URL
	favicons map[string]string
}

func (f *fakeFetcher) Get(ctx context.Context, rawURL string) (*scraper.Response, error) {
	f.gets++
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	f.last = u
	return &scraper.Response{URL: u, ContentType: "image/png", Body: f.body}, nil
}

func (f *fakeFetcher) DiscoverFavicon(ctx context.Context, website string) (string, error) {
	if icon, ok := f.favicons[website]; ok {
		return icon, nil
	}
	return "", errors.New("no favicon")
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompany_RehostLogoIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := newLocalStorage(t)
	fetcher := &fakeFetcher{body: testPNG(t, 300, 150)}
	svc := NewCompanyService(repositories.NewCompanyRepository(), store, fetcher, imageprocessor.NewProcessor(85))

	company := &models.Company{Name: "招商银行", LogoSourceURL: "https://cdn.example.com/cmb.png"}
	require.NoError(t, db.Create(company).Error)

	res, err := svc.RehostLogo(ctx, db, company.ID)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, LogoKey("https://cdn.example.com/cmb.png"), res.LogoKey)
	assert.Equal(t, "http://localhost:8080/api/v1/files/"+res.LogoKey, res.LogoURL)

	rc, err := store.Get(ctx, res.LogoKey)
	require.NoError(t, err)
	img, err := png.Decode(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 128, 128), img.Bounds())

	again, err := svc.RehostLogo(ctx, db, company.ID)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Equal(t, 1, fetcher.gets)
	require.NotNil(t, fetcher.last)
	assert.Equal(t, "cdn.example.com", fetcher.last.Host)

	batch, err := svc.RehostAll(ctx, db, 10)
	require.NoError(t, err)
	assert.Zero(t, batch.Processed)
}

func TestCompany_RehostFailures(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fetcher := &fakeFetcher{body: []byte("<html>not an image</html>")}
	svc := NewCompanyService(repositories.NewCompanyRepository(), newLocalStorage(t), fetcher, imageprocessor.NewProcessor(85))

	noSource := &models.Company{Name: "无来源"}
	broken := &models.Company{Name: "坏图", FaviconURL: "https://example.com/favicon.ico"}
	require.NoError(t, db.Create(noSource).Error)
	require.NoError(t, db.Create(broken).Error)

	_, err := svc.RehostLogo(ctx, db, noSource.ID)
	requireAppCode(t, err, apperrors.CodeInvalidOperation)

	_, err = svc.RehostLogo(ctx, db, "missing")
	assert.ErrorIs(t, err, apperrors.ErrCompanyNotFound)

	batch, err := svc.RehostAll(ctx, db, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Processed)
	assert.Equal(t, 1, batch.Failed)
	assert.Len(t, batch.Errors, 1)
}

func TestCompany_ScrapeFavicons(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fetcher := &fakeFetcher{favicons: map[string]string{
		"https://www.cmbchina.com": "https://www.cmbchina.com/favicon.ico",
	}}
	svc := NewCompanyService(repositories.NewCompanyRepository(), newLocalStorage(t), fetcher, imageprocessor.NewProcessor(85))

	require.NoError(t, db.Create(&models.Company{Name: "招商银行", Website: "https://www.cmbchina.com"}).Error)
	require.NoError(t, db.Create(&models.Company{Name: "某基金", Website: "https://fund.example.com"}).Error)
	require.NoError(t, db.Create(&models.Company{Name: "无官网"}).Error)

	batch, err := svc.ScrapeFavicons(ctx, db, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)

	c, err := svc.EnsureByName(ctx, db, " 招商银行 ")
	require.NoError(t, err)
	assert.Equal(t, "https://www.cmbchina.com/favicon.ico", c.FaviconURL)
}
