// Package s3 implements blob.Store on an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"portfolio/internal/storage/blob"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Root            string
}

type Store struct {
	log    *slog.Logger
	client *s3.Client
	bucket string
	root   string
}

func New(ctx context.Context, log *slog.Logger, cfg Config) (*Store, error) {
	const op = "s3.New"

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
		// Retries are owned by blob.Retrying.
		o.RetryMaxAttempts = 1
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &Store{
		log:    log,
		client: client,
		bucket: cfg.Bucket,
		root:   strings.Trim(cfg.Root, "/"),
	}, nil
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	const op = "s3.Exists"

	key, err := blob.CleanPath(p)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classify(err)
		if errors.Is(err, blob.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %s: %w", op, key, err)
	}

	return true, nil
}

func (s *Store) Download(ctx context.Context, p string) ([]byte, error) {
	const op = "s3.Download"

	key, err := blob.CleanPath(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, key, classify(err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w: %w", op, key, blob.ErrTransport, err)
	}

	return data, nil
}

// Upload relies on conditional writes (If-None-Match: *) when overwriting is
// not allowed.
func (s *Store) Upload(ctx context.Context, p string, data []byte, opts blob.PutOptions) error {
	const op = "s3.Upload"

	key, err := blob.CleanPath(p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if !opts.Overwrite {
		in.IfNoneMatch = aws.String("*")
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("%s: %s: %w", op, key, classify(err))
	}

	s.log.Debug("blob written", slog.String("op", op), slog.String("key", key), slog.Int("size", len(data)))

	return nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	const op = "s3.Delete"

	key, err := blob.CleanPath(p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classify(err)
		if errors.Is(err, blob.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %s: %w", op, key, err)
	}

	return nil
}

// List returns the objects directly under dir. An empty dir lists the root.
func (s *Store) List(ctx context.Context, dir string) ([]blob.Object, error) {
	const op = "s3.List"

	prefix := strings.Trim(dir, "/")
	if prefix == "" {
		prefix = s.root
	}
	if prefix != "" {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var objects []blob.Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, prefix, classify(err))
		}

		for _, obj := range page.Contents {
			name := path.Base(aws.ToString(obj.Key))
			if name == "" || strings.HasSuffix(aws.ToString(obj.Key), "/") {
				continue
			}
			objects = append(objects, blob.Object{
				Name:         name,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return objects, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var (
		noSuchKey *types.NoSuchKey
		notFound  *types.NotFound
	)
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", blob.ErrUnauthorized, err)
		case http.StatusPreconditionFailed, http.StatusConflict:
			return fmt.Errorf("%w: %v", blob.ErrExists, err)
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %v", blob.ErrUnauthorized, err)
		}
	}

	return fmt.Errorf("%w: %v", blob.ErrTransport, err)
}
