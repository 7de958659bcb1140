// Package r2client keeps the course-code catalog in Cloudflare R2 through
// the S3 API, so codes and synonyms can change without a rebuild.
package r2client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/targetzero/coursebot/internal/data"
	domerrors "github.com/targetzero/coursebot/internal/errors"
)

// ErrStale is returned by Publish when the stored catalog no longer has
// the ETag the caller based its edit on.
var ErrStale = errors.New("r2client: catalog changed since it was read")

// maxCatalogSize caps a downloaded course-code document.
const maxCatalogSize = 1 << 20

// Config holds R2 client configuration.
type Config struct {
	Endpoint    string // e.g. https://<account-id>.r2.cloudflarestorage.com
	AccessKeyID string
	SecretKey   string
	BucketName  string
	Key         string // object holding the catalog
}

// Store reads and writes one course-code catalog object.
type Store struct {
	s3     *s3.Client
	bucket string
	key    string
}

// New connects to the bucket. No request is made until the first call.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" || cfg.Key == "" {
		return nil, errors.New("r2client: endpoint, credentials, bucket and key are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
		// R2 does not accept every checksum algorithm the SDK defaults to.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &Store{s3: client, bucket: cfg.BucketName, key: cfg.Key}, nil
}

// Key returns the object key the store is bound to.
func (s *Store) Key() string { return s.key }

// Fetch downloads and validates the catalog. It returns the catalog and
// the object's ETag, or an error matching domerrors.ErrNotFound when the
// object does not exist.
func (s *Store) Fetch(ctx context.Context) (*data.Catalog, string, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("r2client: %q: %w", s.key, domerrors.ErrNotFound)
		}
		return nil, "", fmt.Errorf("r2client: get %q: %w", s.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(out.Body, maxCatalogSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("r2client: read %q: %w", s.key, err)
	}
	if len(raw) > maxCatalogSize {
		return nil, "", fmt.Errorf("r2client: %q exceeds %d bytes", s.key, maxCatalogSize)
	}

	cat, err := data.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("r2client: %q: %w", s.key, err)
	}
	return cat, trimETag(out.ETag), nil
}

// Publish validates raw as a course-code catalog and uploads it, returning
// the new ETag. Nothing is written when validation fails. A non-empty
// ifMatch makes the upload conditional on the stored ETag and yields
// ErrStale when someone else published first.
func (s *Store) Publish(ctx context.Context, raw []byte, ifMatch string) (string, error) {
	if _, err := data.Parse(raw); err != nil {
		return "", err
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/yaml"),
	}
	if ifMatch != "" {
		in.IfMatch = aws.String(`"` + ifMatch + `"`)
	}

	out, err := s.s3.PutObject(ctx, in)
	if err != nil {
		if statusCode(err) == http.StatusPreconditionFailed {
			return "", ErrStale
		}
		return "", fmt.Errorf("r2client: put %q: %w", s.key, err)
	}
	return trimETag(out.ETag), nil
}

func trimETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, `"`)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return statusCode(err) == http.StatusNotFound
}

func statusCode(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
