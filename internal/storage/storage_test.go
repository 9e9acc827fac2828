package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/logger"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func dataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestDecodeDataURI(t *testing.T) {
	img, err := DecodeDataURI(dataURI("image/png", pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "png", img.Ext)
	assert.Equal(t, pngBytes, img.Data)

	for _, bad := range []string{
		"https://example.com/a.png",
		"data:image/png,plain",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png;base64,!!!",
		"data:image/png;base64,",
	} {
		_, err := DecodeDataURI(bad)
		assert.ErrorIs(t, err, ErrInvalidDataURI, bad)
	}
}

func TestLocalStoreSave(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "/media/")

	url, err := store.Save(context.Background(), "recipes/a.png", "image/png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "/media/recipes/a.png", url)

	got, err := os.ReadFile(filepath.Join(root, "recipes", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestLocalStoreStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "/media")

	url, err := store.Save(context.Background(), "../../escape.png", "image/png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "/media/escape.png", url)
	_, err = os.Stat(filepath.Join(root, "escape.png"))
	assert.NoError(t, err)
}

func TestLocalStoreDelete(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "/media")
	ctx := context.Background()

	_, err := store.Save(ctx, "recipes/c.png", "image/png", pngBytes)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "recipes/c.png"))

	_, err = os.Stat(filepath.Join(root, "recipes", "c.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, "recipes/c.png"), "already gone")
}

type fakePutter struct {
	inputs  []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	err     error
}

func (f *fakePutter) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreSave(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3Store(putter, "foodgram-media", "eu-central-1", logger.NewNop())

	url, err := store.Save(context.Background(), "recipes/b.png", "image/png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "https://foodgram-media.s3.eu-central-1.amazonaws.com/recipes/b.png", url)

	require.Len(t, putter.inputs, 1)
	assert.Equal(t, "foodgram-media", aws.ToString(putter.inputs[0].Bucket))
	assert.Equal(t, "image/png", aws.ToString(putter.inputs[0].ContentType))
}

func TestS3StoreOpensCircuitAfterFailures(t *testing.T) {
	putter := &fakePutter{err: errors.New("connection refused")}
	store := NewS3Store(putter, "bucket", "", logger.NewNop())

	for i := 0; i < 5; i++ {
		_, err := store.Save(context.Background(), "k", "image/png", pngBytes)
		require.Error(t, err)
	}

	_, err := store.Save(context.Background(), "k", "image/png", pngBytes)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "circuit breaker is open"))
	assert.Len(t, putter.inputs, 5)
}

func TestS3StoreDelete(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3Store(putter, "foodgram-media", "", logger.NewNop())

	require.NoError(t, store.Delete(context.Background(), "recipes/b.png"))
	require.Len(t, putter.deletes, 1)
	assert.Equal(t, "foodgram-media", aws.ToString(putter.deletes[0].Bucket))
	assert.Equal(t, "recipes/b.png", aws.ToString(putter.deletes[0].Key))

	putter.err = errors.New("access denied")
	assert.Error(t, store.Delete(context.Background(), "recipes/b.png"))
}
