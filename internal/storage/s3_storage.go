package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/config"
)

// IStatementStorage archives exported monthly statements.
type IStatementStorage interface {
	UploadStatement(ctx context.Context, key string, data []byte) error
	PresignStatementURL(ctx context.Context, key string) (string, error)
}

// StatementKey builds the object key for a customer's monthly statement.
// Deterministic so re-exports overwrite rather than accumulate.
func StatementKey(vendorID, customerID, month string) string {
	return fmt.Sprintf("statements/%s/%s/%s.csv", vendorID, month, customerID)
}

// s3Storage implements IStatementStorage.
type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 statement storage service.
func NewS3Storage(cfg *config.Config) (IStatementStorage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	presignClient := s3.NewPresignClient(s3Client)

	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: presignClient,
	}, nil
}

// UploadStatement writes a CSV statement to the archive bucket.
func (s *s3Storage) UploadStatement(ctx context.Context, key string, data []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload statement %s: %w", key, err)
	}
	return nil
}

// PresignStatementURL creates a short-lived download URL for a statement.
func (s *s3Storage) PresignStatementURL(ctx context.Context, key string) (string, error) {
	presignedReq, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to presign statement URL for %s: %w", key, err)
	}
	return presignedReq.URL, nil
}
