package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
)

// S3Scheme prefixes catalog paths that live in an S3 bucket.
const S3Scheme = "s3://"

// S3Config selects the bucket endpoint. Empty credentials fall back to the
// default AWS chain (environment, shared config, instance role).
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// IsS3Path reports whether p is an s3://bucket/key location.
func IsS3Path(p string) bool {
	return strings.HasPrefix(p, S3Scheme)
}

// ParseS3Path splits s3://bucket/key.
func ParseS3Path(p string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(p, S3Scheme)
	if !ok {
		return "", "", &errors.ValidationError{Field: "catalog.path", Value: p, Message: "not an s3:// location"}
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", &errors.ValidationError{Field: "catalog.path", Value: p, Message: "expected s3://bucket/key"}
	}
	return bucket, key, nil
}

// S3Source downloads exports stored in S3 and parses them with a file
// source. Paths without the s3:// scheme go straight to the file source.
type S3Source struct {
	client *s3.Client
	files  Source
	logger *zerolog.Logger
}

var _ Source = (*S3Source)(nil)

// NewS3Source builds the S3 client described by cfg. files parses the
// downloaded object and must accept a local path.
func NewS3Source(ctx context.Context, cfg S3Config, files Source, logger *zerolog.Logger) (*S3Source, error) {
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
		return nil, errors.NewConfigError("catalog.s3", "loading AWS configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Source{client: client, files: files, logger: logger}, nil
}

// Load fetches the object into a temp file named like the key, so the
// format is still chosen by extension, and parses it. The catalog keeps the
// s3:// path as its Source.
func (s *S3Source) Load(ctx context.Context, p string) (*Catalog, error) {
	if !IsS3Path(p) {
		return s.files.Load(ctx, p)
	}
	bucket, key, err := ParseS3Path(p)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(p, err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, errors.NewSourceUnavailableError(p, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp("", "renewals-*"+path.Ext(key))
	if err != nil {
		return nil, errors.NewSourceUnavailableError(p, errors.WrapIO("create", "", err))
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, out.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.NewSourceUnavailableError(p, errors.WrapIO("download", tmp.Name(), err))
	}
	s.logger.Debug().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("Catalog object downloaded")

	cat, err := s.files.Load(ctx, tmp.Name())
	if err != nil {
		var su *errors.SourceUnavailableError
		if errors.As(err, &su) {
			su.Path = p
			return nil, su
		}
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	cat.Source = p
	return cat, nil
}
