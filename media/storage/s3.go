package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of *s3.Client the provider uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Provider implements Provider for S3 and S3 compatible stores.
type S3Provider struct {
	client   s3API
	endpoint string
	region   string
}

// NewS3Provider loads the AWS default config chain, overridden by static
// credentials and a custom endpoint when cfg sets them.
func NewS3Provider(ctx context.Context, cfg S3Config) (*S3Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Provider(client, cfg), nil
}

func newS3Provider(client s3API, cfg S3Config) *S3Provider {
	return &S3Provider{client: client, endpoint: cfg.Endpoint, region: cfg.Region}
}

// Put uploads the body with PutObject and returns the ETag S3 reports.
func (p *S3Provider) Put(ctx context.Context, input PutInput) (PutOutput, error) {
	if err := validBucket(input.Bucket); err != nil {
		return PutOutput{}, err
	}
	key, err := NormalizeKey(input.Key)
	if err != nil {
		return PutOutput{}, err
	}

	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(input.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(input.Body),
		ContentType:   aws.String(input.ContentType),
		ContentLength: aws.Int64(int64(len(input.Body))),
	})
	if err != nil {
		return PutOutput{}, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return PutOutput{
		ETag: aws.ToString(out.ETag),
		URL:  p.url(input.Bucket, key),
		Size: int64(len(input.Body)),
	}, nil
}

func (p *S3Provider) url(bucket, key string) string {
	if p.endpoint != "" {
		return joinURL(p.endpoint, bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, p.region, key)
}

func (p *S3Provider) Name() string {
	return "s3"
}
