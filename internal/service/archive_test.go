package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fridgechef/backend/internal/logging"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiveStore(t *testing.T) {
	putter := &fakePutter{}
	archive := NewS3Archive(putter, "fridge-uploads", logging.Discard())

	key, err := archive.Store(context.Background(), []byte("jpeg-bytes"), "image/jpeg")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "uploads/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.Equal(t, "fridge-uploads", aws.ToString(putter.input.Bucket))
	assert.Equal(t, key, aws.ToString(putter.input.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(putter.input.ContentType))
	assert.Equal(t, []byte("jpeg-bytes"), putter.body)
}

func TestS3ArchiveStoreError(t *testing.T) {
	archive := NewS3Archive(&fakePutter{err: errors.New("access denied")}, "b", logging.Discard())

	_, err := archive.Store(context.Background(), []byte("x"), "image/png")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
