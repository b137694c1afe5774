// Package s3 mirrors simulation records to an S3-compatible bucket (AWS S3
// or MinIO) and reads them back for the log viewer.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/commonpool/artifact"
	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/logging"
)

// Config holds explicit construction parameters. Empty credentials fall
// back to the default AWS credentials chain.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string // prepended to every object key, e.g. "simulation_logs/"
	Endpoint        string // optional; enables a custom endpoint (e.g. MinIO)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool

	// HTTPClient overrides the transport used by the SDK.
	HTTPClient aws.HTTPClient
	Logger     logging.Logger
}

// Store writes one object per record. Objects are create-only.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger logging.Logger
}

var (
	_ artifact.Mirror   = (*Store)(nil)
	_ core.RecordReader = (*Store)(nil)
)

// New creates a store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
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
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logging.OrNoOp(cfg.Logger),
	}, nil
}

// Bucket returns the target bucket.
func (s *Store) Bucket() string { return s.bucket }

// PutRecord uploads payload under prefix+filename. An existing object is
// never replaced.
func (s *Store) PutRecord(ctx context.Context, filename string, payload []byte) error {
	key := s.prefix + filename
	// Emulate create-only via Head first.
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return fmt.Errorf("%w: s3://%s/%s", artifact.ErrExists, s.bucket, key)
	}
	if !isNotFound(err) {
		return fmt.Errorf("s3 head %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(contentType(filename)),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	s.logger.Info("artifact.mirrored", "bucket", s.bucket, "key", key)
	return nil
}

// Get returns the JSON document stored under filename.
func (s *Store) Get(ctx context.Context, filename string) ([]byte, error) {
	if err := artifact.ValidFilename(filename); err != nil {
		return nil, err
	}
	key := s.prefix + filename
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, filename)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", key, err)
	}
	return artifact.Decode(filename, payload)
}

// List returns a summary of every record under the prefix, newest first.
// Objects that are not record documents are skipped.
func (s *Store) List(ctx context.Context) ([]core.RecordSummary, error) {
	var out []core.RecordSummary
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if artifact.ValidFilename(name) != nil {
				continue
			}
			doc, err := s.Get(ctx, name)
			if err != nil {
				s.logger.Warn("artifact.list.skip", "key", aws.ToString(obj.Key), "error", err.Error())
				continue
			}
			rec, err := core.ParseSimulationRecord(doc)
			if err != nil {
				s.logger.Warn("artifact.list.skip", "key", aws.ToString(obj.Key), "error", err.Error())
				continue
			}
			out = append(out, core.Summarize(rec, name))
		}
		if aws.ToBool(page.IsTruncated) && page.NextContinuationToken != nil {
			token = page.NextContinuationToken
			continue
		}
		break
	}
	if out == nil {
		out = []core.RecordSummary{}
	}
	core.SortSummaries(out)
	return out, nil
}

func contentType(filename string) string {
	if strings.HasSuffix(filename, artifact.ExtZstd) {
		return "application/zstd"
	}
	return "application/json"
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re interface{ HTTPStatusCode() int }
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
