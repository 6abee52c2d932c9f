package mediastore

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mzyun/novelgate/internal/errs"
)

// s3api is the subset of the S3 client used here, extracted for tests.
type s3api interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores media in any S3-compatible bucket. Cloudflare R2 is the intended
// target: it speaks the S3 API behind a custom endpoint.
type S3 struct {
	client s3api
	bucket string
}

// NewS3 builds a store against a custom endpoint with static credentials.
func NewS3(ctx context.Context, endpoint, region, accessKeyID, secretKey, bucket string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &S3{client: client, bucket: bucket}, nil
}

// NewS3WithClient wires an existing client (tests).
func NewS3WithClient(client s3api, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Get streams an object, passing the range spec through to the store.
func (s *S3) Get(ctx context.Context, key, rangeSpec string) (*Object, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if rangeSpec != "" {
		in.Range = aws.String(rangeSpec)
	}
	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	obj := &Object{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
		ContentRange:  aws.ToString(out.ContentRange),
	}
	return obj, nil
}

// Put stores an object under key.
func (s *S3) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return err
}
