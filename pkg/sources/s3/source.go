package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/source"
	"github.com/leapstack-labs/leapcheck/pkg/sources/csv"
)

// Client defines the S3 operations used by Source.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Params holds S3-specific configuration.
// Parsed from source.Config.Params using mapstructure; CSV params such as
// no_infer may sit alongside.
type Params struct {
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKeyID    string `mapstructure:"access_key_id"`
	SecretKey      string `mapstructure:"secret_key"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// Source downloads one object and parses it as delimited text.
type Source struct {
	client Client
	bucket string
	key    string
	opts   csv.Options
	logger *slog.Logger
}

// New creates a new S3 source instance. The client is built from the
// default AWS configuration chain on Open.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	return NewWithClient(logger, nil)
}

// NewWithClient creates a source that uses a pre-configured client.
func NewWithClient(logger *slog.Logger, client Client) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{client: client, logger: logger}
}

// Open resolves the object location and, unless a client was supplied,
// loads AWS configuration.
func (s *Source) Open(ctx context.Context, cfg source.Config) error {
	bucket, key, err := ParseURL(cfg.Path)
	if err != nil {
		return err
	}
	opts, err := csv.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	var p Params
	if cfg.Params != nil {
		if err := mapstructure.Decode(cfg.Params, &p); err != nil {
			return fmt.Errorf("failed to decode s3 params: %w", err)
		}
	}

	if s.client == nil {
		client, err := newClient(ctx, p)
		if err != nil {
			return err
		}
		s.client = client
	}

	s.bucket, s.key, s.opts = bucket, key, opts
	return nil
}

func newClient(ctx context.Context, p Params) (*s3.Client, error) {
	var awsOptions []func(*config.LoadOptions) error
	if p.Region != "" {
		awsOptions = append(awsOptions, config.WithRegion(p.Region))
	}
	if p.AccessKeyID != "" && p.SecretKey != "" {
		awsOptions = append(awsOptions,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				p.AccessKeyID,
				p.SecretKey,
				"",
			)),
		)
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if p.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.Endpoint)
		}
		o.UsePathStyle = p.ForcePathStyle
	}), nil
}

// Load downloads the object and parses it.
func (s *Source) Load(ctx context.Context) (*core.Dataset, error) {
	if s.client == nil {
		return nil, fmt.Errorf("s3 source not opened")
	}

	s.logger.Debug("fetching object", slog.String("bucket", s.bucket), slog.String("key", s.key))
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("object s3://%s/%s not found", s.bucket, s.key)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	ds, err := csv.Read(out.Body, s.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s3://%s/%s: %w", s.bucket, s.key, err)
	}
	ds.Name = "s3://" + s.bucket + "/" + s.key
	return ds, nil
}

// Close is a no-op; the object body is closed by Load.
func (s *Source) Close() error { return nil }

// ParseURL splits s3://bucket/key into its parts.
func ParseURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url %q: %w", raw, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url %q: expected s3://bucket/key", raw)
	}
	return u.Host, key, nil
}

// Ensure Source implements source.Source interface
var _ source.Source = (*Source)(nil)
