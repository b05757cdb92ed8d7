package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// LocalProvider 本地文件系统存储，目录结构为 <base>/<bucket>/<key>
type LocalProvider struct {
	basePath string
	baseURL  string
}

// NewLocalProvider creates a local provider rooted at basePath.
func NewLocalProvider(basePath, baseURL string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalProvider{basePath: basePath, baseURL: baseURL}, nil
}

func (p *LocalProvider) path(bucket, key string) (string, string, error) {
	if err := validBucket(bucket); err != nil {
		return "", "", err
	}
	k, err := NormalizeKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(p.basePath, bucket, filepath.FromSlash(k)), k, nil
}

// Put writes the body atomically and returns its quoted MD5 as ETag,
// matching what S3 reports for single-part uploads.
func (p *LocalProvider) Put(ctx context.Context, input PutInput) (PutOutput, error) {
	if err := ctx.Err(); err != nil {
		return PutOutput{}, err
	}
	full, key, err := p.path(input.Bucket, input.Key)
	if err != nil {
		return PutOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return PutOutput{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return PutOutput{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(input.Body); err != nil {
		tmp.Close()
		return PutOutput{}, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return PutOutput{}, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return PutOutput{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	sum := md5.Sum(input.Body)
	return PutOutput{
		ETag: `"` + hex.EncodeToString(sum[:]) + `"`,
		URL:  joinURL(p.baseURL, input.Bucket, key),
		Size: int64(len(input.Body)),
	}, nil
}

func (p *LocalProvider) Name() string {
	return "local"
}
