package s3store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig describes how to reach the bucket holding tenant files.
type ClientConfig struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// NewClient builds an S3 client. Static keys are used when both are set,
// otherwise the default AWS credential chain.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// StorageMeter sums the size of every object under <prefix><tenantID>/.
type StorageMeter struct {
	client s3.ListObjectsV2APIClient
	bucket string
	prefix string
	logger *slog.Logger
}

func NewStorageMeter(client s3.ListObjectsV2APIClient, bucket, prefix string, logger *slog.Logger) *StorageMeter {
	return &StorageMeter{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With("component", "s3_storage_meter"),
	}
}

func (m *StorageMeter) tenantPrefix(tenantID string) string {
	prefix := m.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + tenantID + "/"
}

func (m *StorageMeter) StorageBytes(ctx context.Context, tenantID string) (int64, error) {
	prefix := m.tenantPrefix(tenantID)
	paginator := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(prefix),
	})

	var total, objects int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("list objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			total += aws.ToInt64(obj.Size)
			objects++
		}
	}

	m.logger.DebugContext(ctx, "Measured tenant storage", "tenant_id", tenantID, "objects", objects, "bytes", total)
	return total, nil
}
