package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/config"
	"linkup-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const avatarUploadExpiry = 5 * time.Minute

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Presigner signs S3 object uploads
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AvatarService handles profile picture uploads
type AvatarService struct {
	userRepo      repository.UserStore
	presigner     Presigner
	bucket        string
	publicBaseURL string
}

// NewAvatarService creates a new avatar service
func NewAvatarService(userRepo repository.UserStore, presigner Presigner, bucket, publicBaseURL string) *AvatarService {
	return &AvatarService{
		userRepo:      userRepo,
		presigner:     presigner,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// NewS3Presigner builds a presign client from the AWS configuration.
// Static credentials and a custom endpoint are used when set (e.g. MinIO).
func NewS3Presigner(ctx context.Context, cfg config.AWSConfig) (*s3.PresignClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}

// AvatarUpload is a pre-signed upload target for a new avatar
type AvatarUpload struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

func avatarPrefix(userID string) string {
	return "avatars/" + userID + "/"
}

// CreateUploadURL generates a pre-signed URL the client uploads the avatar image to
func (s *AvatarService) CreateUploadURL(ctx context.Context, userID, contentType string) (*AvatarUpload, error) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "unsupported content type %q", contentType)
	}

	key := fmt.Sprintf("%s%s.%s", avatarPrefix(userID), uuid.New().String(), ext)

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = avatarUploadExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &AvatarUpload{
		UploadURL: request.URL,
		Key:       key,
		ExpiresIn: int(avatarUploadExpiry.Seconds()),
	}, nil
}

// ConfirmUpload points the user's profile picture at an uploaded object.
// Only keys under the user's own prefix are accepted.
func (s *AvatarService) ConfirmUpload(ctx context.Context, userID, key string) (string, error) {
	if !strings.HasPrefix(key, avatarPrefix(userID)) || strings.Contains(key, "..") {
		return "", apperr.New(apperr.KindForbidden, "avatar key does not belong to you")
	}

	url := s.publicURL(key)
	if err := s.userRepo.UpdateAvatar(ctx, userID, url); err != nil {
		return "", fmt.Errorf("failed to update avatar: %w", err)
	}
	return url, nil
}

func (s *AvatarService) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
