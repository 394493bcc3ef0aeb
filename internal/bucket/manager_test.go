package bucket_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/simrun/internal/bucket"
	"github.com/imamik/simrun/internal/provider"
	simtest "github.com/imamik/simrun/internal/testing"
)

var target = bucket.Target{UserID: "u1", ProjectID: "p1"}

func TestPath(t *testing.T) {
	fx := simtest.NewProviderFixture()
	assert.Equal(t, "results/u1/p1", bucket.New(fx.Cloud).Path(target))
}

func TestUploadURL(t *testing.T) {
	fx := simtest.NewProviderFixture()
	m := bucket.New(fx.Cloud)
	ctx := context.Background()

	url, err := m.UploadURL(ctx, target, "")
	require.NoError(t, err)
	assert.Equal(t, "PUT", url.Method)
	assert.Contains(t, url.URL, "/results/u1/p1/results.tar.gz?")
	assert.Equal(t, []string{"results/u1/p1/"}, fx.Storage.Keys())

	// The folder already exists the second time.
	url, err = m.UploadURL(ctx, target, "frames.zip")
	require.NoError(t, err)
	assert.Contains(t, url.URL, "/results/u1/p1/frames.zip?")
	assert.Equal(t, 1, fx.Storage.Calls(simtest.OpPut))
}

func TestUploadURL_CustomDefaultName(t *testing.T) {
	fx := simtest.NewProviderFixture()
	m := bucket.New(fx.Cloud, bucket.WithUploadName("input.bin"))

	url, err := m.UploadURL(context.Background(), target, "")
	require.NoError(t, err)
	assert.Contains(t, url.URL, "/results/u1/p1/input.bin?")
}

func TestUploadURL_FolderFailure(t *testing.T) {
	fx := simtest.NewProviderFixture()
	fx.Storage.FailOn(simtest.OpPut, errors.New("quota exceeded"))

	_, err := bucket.New(fx.Cloud).UploadURL(context.Background(), target, "")
	assert.ErrorContains(t, err, "failed to create result folder")
	assert.Equal(t, 0, fx.Storage.Calls(simtest.OpPresignPut))
}

func TestReportURL(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		fx := simtest.NewProviderFixture()

		url, err := bucket.New(fx.Cloud).ReportURL(context.Background(), target)
		require.NoError(t, err)
		assert.Nil(t, url)
		assert.Equal(t, 0, fx.Storage.Calls(simtest.OpPresignGet))
	})

	t.Run("present", func(t *testing.T) {
		fx := simtest.NewProviderFixture()
		fx.Storage.Seed("results/u1/p1/report.pdf", []byte("%PDF"))
		issued := time.Now()

		url, err := bucket.New(fx.Cloud).ReportURL(context.Background(), target)
		require.NoError(t, err)
		require.NotNil(t, url)
		assert.Equal(t, "GET", url.Method)
		assert.Contains(t, url.URL, "/results/u1/p1/report.pdf?")
		assert.False(t, url.ExpiresAt.Before(issued.Add(24*time.Hour)))
	})

	t.Run("lookup failure", func(t *testing.T) {
		fx := simtest.NewProviderFixture()
		fx.Storage.FailOn(simtest.OpHead, errors.New("denied"))

		_, err := bucket.New(fx.Cloud).ReportURL(context.Background(), target)
		assert.Error(t, err)
	})
}

func TestReportURL_CustomExpiry(t *testing.T) {
	fx := simtest.NewProviderFixture()
	fx.Storage.Seed("results/u1/p1/report.pdf", []byte("%PDF"))

	url, err := bucket.New(fx.Cloud, bucket.WithReportExpiry(48*time.Hour)).ReportURL(context.Background(), target)
	require.NoError(t, err)
	assert.Contains(t, url.URL, "X-Amz-Expires=172800")
}

func TestFindReportFor(t *testing.T) {
	fx := simtest.NewProviderFixture()
	fx.Storage.Seed("results/u1/p1/report.pdf", []byte("%PDF"))

	url, err := bucket.FindReportFor(context.Background(), fx.Cloud, target)
	require.NoError(t, err)
	assert.NotNil(t, url)
}

func TestResultsAndFind(t *testing.T) {
	fx := simtest.NewProviderFixture()
	fx.Storage.Seed("results/u1/p1/report.pdf", []byte("%PDF"))
	fx.Storage.Seed("results/u1/p1/frames/0001.png", []byte("png"))
	fx.Storage.Seed("results/u1/p10/report.pdf", []byte("other project"))
	m := bucket.New(fx.Cloud)
	ctx := context.Background()

	files, err := m.Results(ctx, target)
	require.NoError(t, err)
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"results/u1/p1/frames/0001.png", "results/u1/p1/report.pdf"}, keys)

	ref, err := m.Find(ctx, target, "frames/0001.png")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, int64(3), ref.Size)

	ref, err = m.Find(ctx, target, "missing")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestDeleteReport(t *testing.T) {
	fx := simtest.NewProviderFixture()
	fx.Storage.Seed("results/u1/p1/", nil)
	fx.Storage.Seed("results/u1/p1/report.pdf", []byte("%PDF"))
	fx.Storage.Seed("results/u1/p10/report.pdf", []byte("other project"))

	require.NoError(t, bucket.New(fx.Cloud).DeleteReport(context.Background(), target))
	assert.Equal(t, []string{"results/u1/p10/report.pdf"}, fx.Storage.Keys())
}

func TestMissingStorageConfig(t *testing.T) {
	cfg := simtest.ProviderConfig()
	cfg.Bucket = ""
	cloud := provider.New(cfg)

	_, err := bucket.New(cloud).ReportURL(context.Background(), target)
	assert.ErrorIs(t, err, provider.ErrInitialize)
}
