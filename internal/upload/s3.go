package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes the bucket covers are written to.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base URL the bucket objects are readable at.
	PublicURL string
}

type objectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

const s3KeyPrefix = "covers/"

// S3Storage keeps covers in an S3 compatible bucket.
type S3Storage struct {
	client    objectClient
	bucket    string
	publicURL string
}

// NewS3Storage builds an S3 client with static credentials.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("in internal/upload/s3.go/NewS3Storage(): error while `config.LoadDefaultConfig()` calling: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return newS3Storage(client, cfg.Bucket, publicURL), nil
}

func newS3Storage(client objectClient, bucket, publicURL string) *S3Storage {
	return &S3Storage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Put uploads the object and returns its public URL.
func (s *S3Storage) Put(ctx context.Context, name string, contentType string, body io.Reader, size int64) (string, error) {
	key := s3KeyPrefix + name

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", err
	}

	return s.publicURL + "/" + key, nil
}

// Remove deletes an object previously returned by Put. Foreign URLs are ignored.
func (s *S3Storage) Remove(ctx context.Context, coverPath string) error {
	key, found := strings.CutPrefix(coverPath, s.publicURL+"/")
	if !found || !strings.HasPrefix(key, s3KeyPrefix) {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	return err
}
