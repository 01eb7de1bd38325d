package bundler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func result(name string, data []byte) models.ResultEntry {
	return models.ResultEntry{Filename: name, Image: models.EditedImage{Data: data, MIMEType: "image/png"}}
}

func readArchive(t *testing.T, buf *bytes.Buffer) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	files := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = data
	}
	return files
}

func TestBundle(t *testing.T) {
	results := []models.ResultEntry{
		result("shoe.jpg", bytes.Repeat([]byte("shoe"), 512)),
		result("bag.final.png", []byte("bag")),
		result("hat", []byte("hat")),
	}

	buf, err := NewBundler(2, zap.NewNop()).Bundle(context.Background(), results)
	require.NoError(t, err)

	files := readArchive(t, buf)
	require.Len(t, files, 3)
	assert.Equal(t, bytes.Repeat([]byte("shoe"), 512), files["shoe_edited.png"])
	assert.Equal(t, []byte("bag"), files["bag.final_edited.png"])
	assert.Equal(t, []byte("hat"), files["hat_edited.png"])
}

func TestBundleKeepsResultOrder(t *testing.T) {
	var results []models.ResultEntry
	for i := 0; i < 20; i++ {
		results = append(results, result(fmt.Sprintf("img%02d.jpg", i), []byte{byte(i), 1, 2, 3}))
	}

	buf, err := NewBundler(8, zap.NewNop()).Bundle(context.Background(), results)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 20)
	for i, f := range zr.File {
		assert.Equal(t, fmt.Sprintf("img%02d_edited.png", i), f.Name)
	}
}

func TestBundleEmpty(t *testing.T) {
	buf, err := NewBundler(0, zap.NewNop()).Bundle(context.Background(), nil)
	assert.Nil(t, buf)
	assert.ErrorIs(t, err, ErrNothingToBundle)
}

func TestBundleEntryFailureAborts(t *testing.T) {
	results := []models.ResultEntry{
		result("ok.jpg", []byte("fine")),
		result("empty.jpg", nil),
	}

	buf, err := NewBundler(2, zap.NewNop()).Bundle(context.Background(), results)
	assert.Nil(t, buf)
	assert.ErrorIs(t, err, ErrBundleFailed)
	assert.ErrorContains(t, err, "empty.jpg")
}

func TestBundleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf, err := NewBundler(1, zap.NewNop()).Bundle(ctx, []models.ResultEntry{result("a.jpg", []byte("a"))})
	assert.Nil(t, buf)
	assert.ErrorIs(t, err, ErrBundleFailed)
}

func TestBundleSharedStems(t *testing.T) {
	results := []models.ResultEntry{
		result("shoe.jpg", []byte("from jpg")),
		result("shoe.png", []byte("from png")),
		result("shoe.webp", []byte("from webp")),
		result("shoe_edited_2.png", []byte("already suffixed")),
	}

	buf, err := NewBundler(2, zap.NewNop()).Bundle(context.Background(), results)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"shoe_edited.png",
		"shoe_edited_2.png",
		"shoe_edited_3.png",
		"shoe_edited_2_edited.png",
	}, names)

	files := readArchive(t, buf)
	require.Len(t, files, 4)
	assert.Equal(t, []byte("from jpg"), files["shoe_edited.png"])
	assert.Equal(t, []byte("from png"), files["shoe_edited_2.png"])
	assert.Equal(t, []byte("from webp"), files["shoe_edited_3.png"])
}
