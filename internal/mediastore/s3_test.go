package mediastore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/mzyun/novelgate/internal/errs"
)

type fakeS3 struct {
	objects map[string][]byte

	lastRange string
	lastPut   *s3.PutObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastRange = aws.ToString(in.Range)
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   aws.String("image/png"),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func TestS3Get(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"media/a.png": []byte("pngbytes")}}
	store := NewS3WithClient(fake, "bucket")

	obj, err := store.Get(context.Background(), "media/a.png", "")
	require.NoError(t, err)
	defer obj.Body.Close()
	require.Equal(t, "image/png", obj.ContentType)
	require.Equal(t, int64(8), obj.ContentLength)
	require.Empty(t, fake.lastRange)

	_, err = store.Get(context.Background(), "media/a.png", "bytes=0-3")
	require.NoError(t, err)
	require.Equal(t, "bytes=0-3", fake.lastRange)

	_, err = store.Get(context.Background(), "media/missing.png", "")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestS3Put(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3WithClient(fake, "bucket")

	require.NoError(t, store.Put(context.Background(), "media/b.png", "image/png", bytes.NewReader([]byte("x"))))
	require.NotNil(t, fake.lastPut)
	require.Equal(t, "bucket", aws.ToString(fake.lastPut.Bucket))
	require.Equal(t, "media/b.png", aws.ToString(fake.lastPut.Key))
	require.Equal(t, "image/png", aws.ToString(fake.lastPut.ContentType))
}
