package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"foodgram/internal/utils"
	"foodgram/internal/utils/imagedata"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type (
	// ImageStore keeps uploaded recipe images and avatars. Upload returns the
	// public link that is stored on the entity.
	ImageStore interface {
		Upload(ctx context.Context, folder string, img imagedata.Image) (string, error)
		Delete(ctx context.Context, link string) error
	}

	AwsS3 struct {
		client *s3.Client
		bucket string
		region string
	}
)

var _ ImageStore = (*AwsS3)(nil)

func NewAwsS3() *AwsS3 {
	bucket := utils.GetConfig("AWS_S3_BUCKET")
	region := utils.GetConfig("AWS_S3_REGION")

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			utils.GetConfig("AWS_ACCESS_KEY"),
			utils.GetConfig("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		log.Fatalf("error loading aws config: %v", err)
	}

	return &AwsS3{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}
}

func (a *AwsS3) Upload(ctx context.Context, folder string, img imagedata.Image) (string, error) {
	key := path.Join(folder, uuid.NewString()+img.Ext)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return a.GetPublicLinkKey(key), nil
}

func (a *AwsS3) Delete(ctx context.Context, link string) error {
	key := a.GetObjectKeyFromLink(link)
	if key == "" {
		return nil
	}
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (a *AwsS3) GetPublicLinkKey(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.region, key)
}

// GetObjectKeyFromLink returns "" for links that do not point into the bucket.
func (a *AwsS3) GetObjectKeyFromLink(link string) string {
	prefix := a.GetPublicLinkKey("")
	if !strings.HasPrefix(link, prefix) {
		return ""
	}
	return strings.TrimPrefix(link, prefix)
}
