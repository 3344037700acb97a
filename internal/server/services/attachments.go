package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/flagkeeper/internal/common"
	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/challenges"
	"github.com/dmitrijs2005/flagkeeper/internal/server/config"
)

const attachmentURLExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// AttachmentService publishes challenge attachments to S3 and hands out
// short-lived download links.
type AttachmentService struct {
	config     *config.Config
	challenges ChallengeSource
	logger     logging.Logger
}

func NewAttachmentService(cfg *config.Config, source ChallengeSource, logger logging.Logger) *AttachmentService {
	return &AttachmentService{config: cfg, challenges: source, logger: logger.With("module", "attachments")}
}

// AttachmentKey is the object key of file of challenge id.
func AttachmentKey(id, file string) string {
	return path.Join("challenges", id, filepath.ToSlash(file))
}

func (s *AttachmentService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// URL returns a presigned GET link for file of challenge id. Files not
// listed by the challenge are reported as common.ErrorNotFound.
func (s *AttachmentService) URL(ctx context.Context, id, file string) (string, error) {
	ch, ok := s.challenges.Get(id)
	if !ok || !ch.Meta.HasFile(file) {
		return "", common.ErrorNotFound
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := AttachmentKey(id, file)
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(attachmentURLExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Publish uploads the attachments of list. It is meant to run as a
// registry load hook; failures are logged and never fail the load.
func (s *AttachmentService) Publish(ctx context.Context, list []*challenges.Challenge) {
	if !s.config.S3PublishOnLoad {
		return
	}

	client, err := s.getClient(ctx)
	if err != nil {
		s.logger.Error(ctx, "attachment publishing skipped", "error", err.Error())
		return
	}

	uploaded := 0
	for _, ch := range list {
		for _, f := range ch.Meta.Files {
			if err := s.upload(ctx, client, ch, f); err != nil {
				s.logger.Warn(ctx, "attachment upload failed", "challenge_id", ch.Meta.ID, "file", f, "error", err.Error())
				continue
			}
			uploaded++
		}
	}
	s.logger.Info(ctx, "attachments published", "count", uploaded)
}

func (s *AttachmentService) upload(ctx context.Context, client *s3.Client, ch *challenges.Challenge, file string) error {
	fh, err := os.Open(filepath.Join(ch.Dir, file))
	if err != nil {
		return err
	}
	defer fh.Close()

	st, err := fh.Stat()
	if err != nil {
		return err
	}

	bucket := s.config.S3Bucket
	key := AttachmentKey(ch.Meta.ID, file)
	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          fh,
		ContentLength: aws.Int64(st.Size()),
	}); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
