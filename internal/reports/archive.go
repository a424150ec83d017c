package reports

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"tero-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	archivePrefix = "reportes"
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ObjectPutter is the subset of *s3.Client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads generated workbooks to an S3-compatible bucket. A nil
// Archiver is disabled and every call is a no-op.
type Archiver struct {
	client ObjectPutter
	bucket string
}

func NewArchiver(client ObjectPutter, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// NewS3Archiver builds the S3 client from configuration. It returns nil
// without error when no bucket is configured. A custom endpoint (R2, MinIO)
// switches to path-style addressing.
func NewS3Archiver(ctx context.Context, cfg *config.Config) (*Archiver, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	if cfg.S3Endpoint != "" {
		endpoint, region := cfg.S3Endpoint, cfg.S3Region
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, _ string, _ ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("configuración de S3: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3Endpoint != ""
	})
	return NewArchiver(client, cfg.S3Bucket), nil
}

func (a *Archiver) Enabled() bool {
	return a != nil && a.client != nil
}

// ArchiveKey names an export by its generation time.
func ArchiveKey(fileName string, at time.Time) string {
	return path.Join(archivePrefix, at.Format("2006/01"), fileName)
}

// Upload stores an xlsx body under key and returns its s3:// location.
func (a *Archiver) Upload(ctx context.Context, key string, body []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(xlsxMIME),
	})
	if err != nil {
		return "", fmt.Errorf("no se pudo subir %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// ArchiveCostReport renders the workbook once and uploads it when archiving
// is enabled, returning the rendered bytes either way.
func (a *Archiver) ArchiveCostReport(ctx context.Context, r CostReport) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := WriteCostWorkbook(&buf, r); err != nil {
		return nil, "", err
	}
	location, err := a.Upload(ctx, ArchiveKey(r.FileName(), r.GeneratedAt), buf.Bytes())
	if err != nil {
		return buf.Bytes(), "", err
	}
	return buf.Bytes(), location, nil
}
