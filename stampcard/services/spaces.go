package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SpacesService stores program images in an S3-compatible Spaces
// bucket and builds their public URLs for the imageUrl field.
type SpacesService struct {
	client    *s3.Client
	bucket    string
	region    string
	ImageRoot string
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket, imageRoot string) *SpacesService {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	client := s3.NewFromConfig(cfg)

	return &SpacesService{
		client:    client,
		bucket:    bucket,
		region:    region,
		ImageRoot: strings.TrimPrefix(imageRoot, "/"),
	}
}

// UploadProgramImage stores an image under the program's id and
// returns its public URL.
func (s *SpacesService) UploadProgramImage(ctx context.Context, programID string, data []byte, contentType string) (string, error) {
	key := s.imageKey(programID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		ACL:         "public-read",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload program image: %w", err)
	}

	return s.ImageURL(programID), nil
}

func (s *SpacesService) DeleteProgramImage(ctx context.Context, programID string) error {
	key := s.imageKey(programID)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete program image (%s): %w", key, err)
	}

	return nil
}

// ImageURL builds the public URL for a program's image.
func (s *SpacesService) ImageURL(programID string) string {
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, s.imageKey(programID))
}

func (s *SpacesService) imageKey(programID string) string {
	if s.ImageRoot == "" {
		return fmt.Sprintf("programs/%s.jpg", programID)
	}
	return fmt.Sprintf("%s/programs/%s.jpg", s.ImageRoot, programID)
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) GetRegion() string {
	return s.region
}
