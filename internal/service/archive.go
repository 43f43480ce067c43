package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ObjectPutter is the part of the S3 client the archive needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive keeps a copy of every analysed photo in a bucket
type S3Archive struct {
	client ObjectPutter
	bucket string
	log    logrus.FieldLogger
}

// NewS3Archive creates an archive writing to bucket
func NewS3Archive(client ObjectPutter, bucket string, log logrus.FieldLogger) *S3Archive {
	return &S3Archive{
		client: client,
		bucket: bucket,
		log:    log.WithField("component", "archive"),
	}
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Store uploads the image and returns its object key
func (a *S3Archive) Store(ctx context.Context, image []byte, contentType string) (string, error) {
	key := fmt.Sprintf("uploads/%s%s", uuid.New().String(), imageExtensions[contentType])

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	a.log.WithFields(logrus.Fields{"bucket": a.bucket, "key": key}).Debug("archived upload")
	return key, nil
}
