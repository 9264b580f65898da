package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
	"github.com/jcooky/go-din"
	"github.com/tracelit/tracelit/config"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/mylog"
)

type (
	// Presigner issues time-limited object-storage URLs. Uploads go through
	// a presigned POST so clients write to the bucket directly; attachment
	// reads are resolved to presigned GET URLs on demand.
	Presigner interface {
		PresignGetObject(ctx context.Context, objectKey string) (string, error)
		PresignPostObject(ctx context.Context, objectKey string, contentType string) (*UploadDescriptor, error)
	}

	UploadDescriptor struct {
		Bucket string            `json:"bucket"`
		Key    string            `json:"key"`
		Url    string            `json:"url"`
		Fields map[string]string `json:"fields"`
	}

	s3Presigner struct {
		logger  *slog.Logger
		presign *s3.PresignClient
		bucket  string
	}
)

const (
	urlExpiry      = time.Hour
	presignRetries = 2 // attempts = retries + 1
	presignBackoff = 2 * time.Second
)

var _ Presigner = (*s3Presigner)(nil)

func NewS3Presigner(logger *slog.Logger, client *s3.Client, bucket string) Presigner {
	return &s3Presigner{
		logger: logger,
		presign: s3.NewPresignClient(client, func(o *s3.PresignOptions) {
			o.Expires = urlExpiry
		}),
		bucket: bucket,
	}
}

func (p *s3Presigner) PresignGetObject(ctx context.Context, objectKey string) (string, error) {
	var url string
	err := withRetry(ctx, func() error {
		req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			p.logger.Warn("presign get failed, retrying", "key", objectKey, mylog.Err(err))
			return err
		}
		url = req.URL
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to presign get for %q", objectKey)
	}
	return url, nil
}

func (p *s3Presigner) PresignPostObject(ctx context.Context, objectKey string, contentType string) (*UploadDescriptor, error) {
	var desc *UploadDescriptor
	err := withRetry(ctx, func() error {
		req, err := p.presign.PresignPostObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(objectKey),
			ContentType: aws.String(contentType),
		}, func(o *s3.PresignPostOptions) {
			o.Expires = urlExpiry
		})
		if err != nil {
			p.logger.Warn("presign post failed, retrying", "key", objectKey, mylog.Err(err))
			return err
		}
		desc = &UploadDescriptor{
			Bucket: p.bucket,
			Key:    objectKey,
			Url:    req.URL,
			Fields: req.Values,
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to presign post for %q", objectKey)
	}
	return desc, nil
}

func withRetry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(presignBackoff), presignRetries),
		ctx,
	)
	return backoff.Retry(op, b)
}

func init() {
	din.RegisterT(func(c *din.Container) (Presigner, error) {
		logger := din.MustGet[*mylog.Logger](c, mylog.Key)
		cfg, err := din.GetT[*config.StorageConfig](c)
		if err != nil {
			return nil, err
		}

		if cfg.BucketName == "" {
			return disabledPresigner{}, nil
		}

		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyId != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyId, cfg.SecretAccessKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(c, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load aws config")
		}

		return NewS3Presigner(logger, s3.NewFromConfig(awsCfg), cfg.BucketName), nil
	})
}

// disabledPresigner stands in when no bucket is configured.
type disabledPresigner struct{}

func (disabledPresigner) PresignGetObject(context.Context, string) (string, error) {
	return "", errors.Wrapf(errors.ErrInvalidConfig, "object storage is not configured")
}

func (disabledPresigner) PresignPostObject(context.Context, string, string) (*UploadDescriptor, error) {
	return nil, errors.Wrapf(errors.ErrInvalidConfig, "object storage is not configured")
}
