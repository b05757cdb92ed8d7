package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSProvider implements Provider for Aliyun OSS. Buckets are resolved per
// call because each job names its own bucket.
type OSSProvider struct {
	client   *oss.Client
	endpoint string
	domain   string
}

// NewOSSProvider creates an OSS provider.
// Endpoint: oss-cn-hangzhou.aliyuncs.com
func NewOSSProvider(cfg OSSConfig) (*OSSProvider, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	domain := cfg.Domain
	if domain != "" && !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}
	return &OSSProvider{client: client, endpoint: cfg.Endpoint, domain: domain}, nil
}

func (p *OSSProvider) bucket(name string) (*oss.Bucket, error) {
	if err := validBucket(name); err != nil {
		return nil, err
	}
	b, err := p.client.Bucket(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", name, err)
	}
	return b, nil
}

// Put uploads the body and returns the ETag from the response headers.
func (p *OSSProvider) Put(ctx context.Context, input PutInput) (PutOutput, error) {
	b, err := p.bucket(input.Bucket)
	if err != nil {
		return PutOutput{}, err
	}
	key, err := NormalizeKey(input.Key)
	if err != nil {
		return PutOutput{}, err
	}

	var hdr http.Header
	err = b.PutObject(key, bytes.NewReader(input.Body),
		oss.ContentType(input.ContentType),
		oss.WithContext(ctx),
		oss.GetResponseHeader(&hdr),
	)
	if err != nil {
		return PutOutput{}, fmt.Errorf("failed to upload to OSS: %w", err)
	}

	return PutOutput{
		ETag: hdr.Get("ETag"),
		URL:  p.url(input.Bucket, key),
		Size: int64(len(input.Body)),
	}, nil
}

func (p *OSSProvider) url(bucket, key string) string {
	if p.domain != "" {
		return joinURL(p.domain, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", bucket, p.endpoint, key)
}

func (p *OSSProvider) Name() string {
	return "oss"
}
