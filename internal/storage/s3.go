package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/metrics"
)

// ObjectClient is the part of *s3.Client the store needs.
type ObjectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store uploads images to a bucket behind a circuit breaker, so a failing
// S3 endpoint fails recipe writes fast instead of stalling them.
type S3Store struct {
	client ObjectClient
	bucket string
	region string
	cb     *gobreaker.CircuitBreaker[struct{}]
	log    *logger.Logger
}

var _ ImageStore = (*S3Store)(nil)

func NewS3Store(client ObjectClient, bucket, region string, log *logger.Logger) *S3Store {
	log = log.With("component", "s3_store", "bucket", bucket)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "s3-images",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &S3Store{client: client, bucket: bucket, region: region, cb: cb, log: log}
}

func (s *S3Store) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	_, err := s.cb.Execute(func() (struct{}, error) {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(name),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		return struct{}{}, err
	})
	if err != nil {
		result := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		metrics.ImageUploads.WithLabelValues("s3", result).Inc()
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	metrics.ImageUploads.WithLabelValues("s3", "ok").Inc()
	return s.objectURL(name), nil
}

// Delete bypasses the breaker; it only cleans up after a failed write.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (s *S3Store) objectURL(name string) string {
	if s.region == "" || s.region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, name)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, name)
}
