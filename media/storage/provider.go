// Package storage persists processed images to a bucketed blob store.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Provider 存储提供者接口
type Provider interface {
	// Put 写入对象，返回存储方给出的 ETag
	Put(ctx context.Context, input PutInput) (PutOutput, error)
	Name() string
}

// PutInput 上传输入
type PutInput struct {
	Body        []byte
	Key         string
	Bucket      string
	ContentType string
}

// PutOutput 上传输出
type PutOutput struct {
	ETag string
	URL  string
	Size int64
}

// Config 存储配置
type Config struct {
	Driver string      `mapstructure:"driver" json:"driver" yaml:"driver" default:"local" validate:"oneof=local oss s3"`
	Local  LocalConfig `mapstructure:"local" json:"local" yaml:"local"`
	OSS    OSSConfig   `mapstructure:"oss" json:"oss" yaml:"oss"`
	S3     S3Config    `mapstructure:"s3" json:"s3" yaml:"s3"`
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	BasePath string `mapstructure:"base-path" json:"basePath" yaml:"base-path" default:"./data/buckets"`
	BaseURL  string `mapstructure:"base-url" json:"baseUrl" yaml:"base-url" default:"/media"`
}

// OSSConfig 阿里云 OSS 配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access-key-id" json:"accessKeyId" yaml:"access-key-id"`
	AccessKeySecret string `mapstructure:"access-key-secret" json:"-" yaml:"access-key-secret"`
	// Domain 自定义域名或 CDN 域名
	Domain string `mapstructure:"domain" json:"domain" yaml:"domain"`
}

// S3Config S3 兼容存储配置
type S3Config struct {
	Region          string `mapstructure:"region" json:"region" yaml:"region" default:"us-east-1"`
	AccessKeyID     string `mapstructure:"access-key-id" json:"accessKeyId" yaml:"access-key-id"`
	SecretAccessKey string `mapstructure:"secret-access-key" json:"-" yaml:"secret-access-key"`
	// Endpoint 为空时使用 AWS 默认端点
	Endpoint     string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `mapstructure:"use-path-style" json:"usePathStyle" yaml:"use-path-style"`
}

// NewFromConfig 根据配置创建存储提供者
func NewFromConfig(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalProvider(cfg.Local.BasePath, cfg.Local.BaseURL)
	case "oss":
		return NewOSSProvider(cfg.OSS)
	case "s3":
		return NewS3Provider(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// NormalizeKey 清理对象键：去掉前导斜杠并拒绝越级路径
func NormalizeKey(key string) (string, error) {
	k := strings.TrimLeft(strings.ReplaceAll(key, "\\", "/"), "/")
	if k == "" {
		return "", fmt.Errorf("empty object key")
	}
	for _, seg := range strings.Split(k, "/") {
		if seg == ".." {
			return "", fmt.Errorf("object key %q escapes its bucket", key)
		}
	}
	return path.Clean(k), nil
}

func validBucket(bucket string) error {
	if bucket == "" || strings.ContainsAny(bucket, "/\\") || bucket == "." || bucket == ".." {
		return fmt.Errorf("invalid bucket name %q", bucket)
	}
	return nil
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
