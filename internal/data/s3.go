package data

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"slot4d/internal/conf"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	s3MaxAttempts         = 3
	s3UploadTimeout       = 30 * time.Second
	defaultPresignExpires = 72 * time.Hour
)

var ErrS3NotConfigured = errors.New(503, "S3_NOT_CONFIGURED", "s3 bucket not configured")

// S3Bucket 报表上传目标；未配置 bucket 时为 nil
type S3Bucket struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	expires time.Duration
	log     *log.Helper
}

func NewS3Bucket(c *conf.Data, logger log.Logger) (*S3Bucket, func(), error) {
	l := log.NewHelper(logger)
	if c == nil || c.S3 == nil || c.S3.Bucket == "" {
		l.Warn("s3 not configured, chart upload disabled")
		return nil, func() {}, nil
	}
	sc := c.S3

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(sc.Region),
		config.WithRetryMaxAttempts(s3MaxAttempts),
	}
	// 未配置密钥时走默认凭证链（环境变量、实例角色）
	if sc.AccessKeyId != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyId, sc.SecretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, nil, errors.Newf(500, "S3_CONFIG_FAILED", "load aws config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
		}
		o.UsePathStyle = sc.PathStyle
	})
	b := &S3Bucket{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  sc.Bucket,
		prefix:  strings.Trim(sc.Prefix, "/"),
		expires: sc.PresignExpires.OrDefault(defaultPresignExpires),
		log:     l,
	}
	l.Infof("s3 bucket=%s region=%s endpoint=%q prefix=%q", b.bucket, sc.Region, sc.Endpoint, b.prefix)
	return b, func() {}, nil
}

func (b *S3Bucket) objectKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

// UploadBytes 上传对象并返回预签名下载地址；bucket 为空时使用配置的 bucket
func (r *dataRepo) UploadBytes(ctx context.Context, bucket, key, contentType string, data []byte) (string, error) {
	b := r.data.s3Bucket
	if b == nil {
		return "", ErrS3NotConfigured
	}
	if bucket == "" {
		bucket = b.bucket
	}
	key = b.objectKey(key)

	uploadCtx, cancel := context.WithTimeout(ctx, s3UploadTimeout)
	defer cancel()
	if _, err := b.client.PutObject(uploadCtx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}); err != nil {
		return "", errors.Newf(502, "S3_UPLOAD_FAILED", "put %s/%s: %v", bucket, key, err)
	}

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(b.expires))
	if err != nil {
		return "", errors.Newf(500, "S3_PRESIGN_FAILED", "presign %s/%s: %v", bucket, key, err)
	}
	b.log.Infof("s3 upload ok: bucket=%s key=%s size=%d", bucket, key, len(data))
	return req.URL, nil
}
