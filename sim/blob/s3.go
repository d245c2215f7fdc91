// Package blob uploads exported run files to S3-compatible object storage
// (AWS S3 or MinIO).
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// ErrMissingFile is returned when a file to upload does not exist locally.
var ErrMissingFile = errors.New("local file missing")

// Config holds explicit construction parameters. Empty credentials fall back
// to the default AWS credentials chain.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; set for MinIO
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// Environment variables read by ConfigFromEnv:
//   TANKSIM_BLOB_S3_BUCKET=<bucket>
//   TANKSIM_BLOB_S3_REGION=<region> (default us-east-1)
//   TANKSIM_BLOB_S3_ENDPOINT=<url> (optional, for MinIO)
//   TANKSIM_BLOB_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY (optional)

// ConfigFromEnv fills a Config from the process environment.
func ConfigFromEnv() Config {
	return Config{
		Bucket:    os.Getenv("TANKSIM_BLOB_S3_BUCKET"),
		Region:    os.Getenv("TANKSIM_BLOB_S3_REGION"),
		Endpoint:  os.Getenv("TANKSIM_BLOB_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("TANKSIM_BLOB_S3_PATH_STYLE"), "true"),
	}
}

// S3Uploader puts local files into a single bucket.
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	baseURL *url.URL // set when an explicit endpoint is configured
	region  string
}

// New creates an uploader from cfg.
func New(ctx context.Context, cfg Config, optFns ...func(*s3.Options)) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, optFns...)...)

	u := &S3Uploader{client: client, bucket: cfg.Bucket, region: region}
	if cfg.Endpoint != "" {
		if base, err := url.Parse(cfg.Endpoint); err == nil {
			u.baseURL = base
		}
	}
	return u, nil
}

// ObjectKey is the bucket key for an exported file of a job.
func ObjectKey(jobID string, tankID int, name string) string {
	return path.Join(jobID, fmt.Sprintf("tank_%d", tankID), name)
}

// Upload puts the file at localPath under key, confirms it with a HEAD
// request, and returns the object URL.
func (u *S3Uploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrMissingFile, localPath)
		}
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	if _, err := u.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(u.bucket), Key: aws.String(key)}); err != nil {
		return "", fmt.Errorf("validate %s: %w", key, err)
	}
	logrus.Infof("Uploaded %s (%d bytes) to s3://%s/%s", localPath, st.Size(), u.bucket, key)
	return u.objectURL(key), nil
}

// CheckFiles reports the first path that does not exist.
func CheckFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrMissingFile, p)
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return nil
}

func (u *S3Uploader) objectURL(key string) string {
	if u.baseURL != nil {
		return u.baseURL.JoinPath(u.bucket, key).String()
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}
