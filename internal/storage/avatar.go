package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/redmonkez12/go-auth-starter/internal/config"
)

const (
	avatarPrefix   = "avatars/"
	maxAvatarBytes = 5 << 20
)

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// S3Client defines the S3 operations used by AvatarStore
type S3Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Presigner signs direct-upload requests
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignedUpload tells the client where to PUT the image and how to reference it afterwards
type PresignedUpload struct {
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	AssetURL  string            `json:"asset_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// AvatarStore hands out presigned uploads to an S3 bucket and verifies
// that avatar references point at objects in it.
// It is safe for concurrent use.
type AvatarStore struct {
	client    S3Client
	presigner Presigner
	bucket    string
	baseURL   string
	uploadTTL time.Duration
	now       func() time.Time
}

type Option func(*AvatarStore)

// WithClients replaces the SDK clients, e.g. with mocks
func WithClients(client S3Client, presigner Presigner) Option {
	return func(s *AvatarStore) {
		s.client = client
		s.presigner = presigner
	}
}

func NewAvatarStore(ctx context.Context, cfg config.StorageConfig, opts ...Option) (*AvatarStore, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
	}

	store := &AvatarStore{
		bucket:    cfg.Bucket,
		baseURL:   publicBaseURL(cfg),
		uploadTTL: cfg.UploadURLTTL,
		now:       time.Now,
	}
	if store.uploadTTL <= 0 {
		store.uploadTTL = 15 * time.Minute
	}

	for _, opt := range opts {
		opt(store)
	}
	if store.client != nil && store.presigner != nil {
		return store, nil
	}

	awsOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		awsOptions = append(awsOptions,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretKey,
				"",
			)),
		)
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", ErrInvalidConfig, err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	store.client = client
	store.presigner = s3.NewPresignClient(client)

	return store, nil
}

func publicBaseURL(cfg config.StorageConfig) string {
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL
}

// PresignUpload returns a short-lived PUT URL for a new avatar of the account
func (s *AvatarStore) PresignUpload(ctx context.Context, accountID uuid.UUID, contentType string) (*PresignedUpload, error) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedContentType
	}

	key := fmt.Sprintf("%s%s/%s.%s", avatarPrefix, accountID, uuid.NewString(), ext)
	expiresAt := s.now().Add(s.uploadTTL)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.uploadTTL))
	if err != nil {
		return nil, fmt.Errorf("presign avatar upload: %w", err)
	}

	return &PresignedUpload{
		UploadURL: req.URL,
		Method:    req.Method,
		Headers:   map[string]string{"Content-Type": contentType},
		AssetURL:  s.baseURL + key,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyAsset accepts references to existing avatar images in the bucket.
// Foreign URLs, missing objects, non-images and oversized objects are rejected.
func (s *AvatarStore) VerifyAsset(ctx context.Context, ref string) (bool, error) {
	key, ok := s.keyFor(ref)
	if !ok {
		return false, nil
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head avatar object: %w", err)
	}

	if _, ok := avatarExtensions[aws.ToString(out.ContentType)]; !ok {
		return false, nil
	}
	if aws.ToInt64(out.ContentLength) > maxAvatarBytes {
		return false, nil
	}

	return true, nil
}

func (s *AvatarStore) keyFor(ref string) (string, bool) {
	if !strings.HasPrefix(ref, s.baseURL) {
		return "", false
	}
	key := strings.TrimPrefix(ref, s.baseURL)
	if !strings.HasPrefix(key, avatarPrefix) || strings.Contains(key, "..") || strings.ContainsAny(key, "?#") {
		return "", false
	}
	return key, true
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// URLVerifier accepts any absolute http(s) URL. Used when no bucket is configured.
type URLVerifier struct{}

func (URLVerifier) VerifyAsset(_ context.Context, ref string) (bool, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return false, nil
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != "", nil
}
