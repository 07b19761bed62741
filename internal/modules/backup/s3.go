package backup

import (
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appcfg "github.com/quicknotes/core/internal/config"
)

// newS3Client builds an S3 client from static credentials. A custom endpoint
// switches to path-style addressing, which MinIO and most S3-compatible
// stores expect.
func newS3Client(cfg appcfg.BackupConfig) *s3.Client {
	opts := s3.Options{
		Region: strings.TrimSpace(cfg.Region),
		Credentials: credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(cfg.AccessKeyID),
			strings.TrimSpace(cfg.SecretAccessKey),
			"",
		),
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if endpoint := normalizeEndpoint(cfg.Endpoint); endpoint != "" {
		opts.BaseEndpoint = awssdk.String(endpoint)
		opts.UsePathStyle = true
	}
	if cfg.PathStyle {
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return ""
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return strings.TrimSuffix(endpoint, "/")
}
