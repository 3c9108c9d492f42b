// Package media stores uploaded images (avatars, wishlist photos) in
// S3-compatible object storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured is returned when no bucket credentials were supplied.
var ErrNotConfigured = errors.New("media storage not configured")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Storage struct {
	client s3Client
	bucket string
}

func NewStorage(cfg Config) *Storage {
	s := &Storage{bucket: cfg.Bucket}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		s.client = newS3Client(cfg)
	}
	return s
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Configured returns true if the bucket credentials are set.
func (s *Storage) Configured() bool {
	return s.client != nil
}

// ValidImageExt reports whether ext is an accepted image extension.
func ValidImageExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// PutAvatar stores an avatar upload keyed by the owning account's id and
// extension, so an account holds at most one stored upload: a new upload
// with the same extension overwrites the old one.
func (s *Storage) PutAvatar(ctx context.Context, userID int64, ext string, body io.Reader, contentType string) (string, error) {
	key := fmt.Sprintf("avatars/%d%s", userID, strings.ToLower(ext))
	if err := s.put(ctx, key, body, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// PutWishlistImage stores a wishlist item photo under a fresh random key.
func (s *Storage) PutWishlistImage(ctx context.Context, ext string, body io.Reader, contentType string) (string, error) {
	key := fmt.Sprintf("wishlist/%s%s", uuid.NewString(), strings.ToLower(ext))
	if err := s.put(ctx, key, body, contentType); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Storage) put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Delete removes a stored object. Deleting an empty key is a no-op.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if s.client == nil {
		return ErrNotConfigured
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
