package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Config contains what S3Store needs beyond the default AWS credential chain.
type S3Config struct {
	Bucket        string
	Region        string
	PublicBaseURL string
	// UsePathStyle forces path-style addressing for S3-compatible providers.
	UsePathStyle bool
}

// PutObjectAPI is the narrow slice of *s3.Client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client        PutObjectAPI
	bucket        string
	publicBaseURL string
}

// NewS3Store - 기본 AWS 설정 체인으로 S3 클라이언트 생성
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 store: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func NewS3StoreWithClient(client PutObjectAPI, bucket, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Put - S3 업로드
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	log.Info().Str("bucket", s.bucket).Str("key", key).Msg("📤 [Storage] uploading to s3")

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3 put %s/%s: %w", s.bucket, key, err)
	}

	publicURL := s.publicBaseURL + "/" + key
	log.Info().Str("url", publicURL).Msg("✅ [Storage] s3 upload complete")
	return publicURL, nil
}
