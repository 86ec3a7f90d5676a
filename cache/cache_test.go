package cache

import (
	"path/filepath"
	"testing"

	"github.com/disintegration/gift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmpim/pixcode"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMiss(t *testing.T) {
	c := openCache(t)

	res, err := c.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestPutGet(t *testing.T) {
	c := openCache(t)

	want := &pixcode.Result{
		Codes:        []int{1, 2, 8, 6},
		Width:        2,
		Height:       2,
		Pixels:       4,
		Resized:      true,
		SourceWidth:  4,
		SourceHeight: 4,
	}
	require.NoError(t, c.Put("abc", want))

	got, err := c.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.Codes = []int{3, 3, 3, 3}
	require.NoError(t, c.Put("abc", want))

	got, err = c.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 3}, got.Codes)
}

func TestPutEmpty(t *testing.T) {
	c := openCache(t)

	require.NoError(t, c.Put("empty", &pixcode.Result{Codes: []int{}}))

	got, err := c.Get("empty")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Codes)
}

func TestPutInvalidCode(t *testing.T) {
	c := openCache(t)
	assert.Error(t, c.Put("bad", &pixcode.Result{Codes: []int{256}, Width: 1, Height: 1}))
}

func TestKey(t *testing.T) {
	a := Key([]byte("image"), "fp1")
	assert.Len(t, a, 40)
	assert.Equal(t, a, Key([]byte("image"), "fp1"))
	assert.NotEqual(t, a, Key([]byte("image"), "fp2"))
	assert.NotEqual(t, a, Key([]byte("other"), "fp1"))
}

func TestFingerprint(t *testing.T) {
	c1, err := pixcode.New(pixcode.Options{})
	require.NoError(t, err)
	c2, err := pixcode.New(pixcode.Options{PixelBudget: 500})
	require.NoError(t, err)
	c3, err := pixcode.New(pixcode.Options{})
	require.NoError(t, err)

	assert.NotEqual(t, Fingerprint(c1), Fingerprint(c2))
	assert.Equal(t, Fingerprint(c1), Fingerprint(c3))
}

func TestFingerprintResampling(t *testing.T) {
	box, err := pixcode.New(pixcode.Options{})
	require.NoError(t, err)
	lanczos, err := pixcode.New(pixcode.Options{Resampling: gift.LanczosResampling})
	require.NoError(t, err)
	linear, err := pixcode.New(pixcode.Options{Resampling: gift.LinearResampling})
	require.NoError(t, err)
	explicitBox, err := pixcode.New(pixcode.Options{Resampling: gift.BoxResampling})
	require.NoError(t, err)

	assert.NotEqual(t, Fingerprint(box), Fingerprint(lanczos))
	assert.NotEqual(t, Fingerprint(box), Fingerprint(linear))
	assert.NotEqual(t, Fingerprint(lanczos), Fingerprint(linear))
	assert.Equal(t, Fingerprint(box), Fingerprint(explicitBox))

	data := []byte("image")
	assert.NotEqual(t, Key(data, Fingerprint(box)), Key(data, Fingerprint(lanczos)))
}
