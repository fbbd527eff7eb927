package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/adminaccess/internal/logging"
	"github.com/google/uuid"
	"github.com/thejerf/abtime"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Options addresses the outbox bucket. MinIO works through BaseEndpoint.
type S3Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	LinkBase     string
}

// S3OutboxNotifier drops each recovery message as a JSON object into a
// bucket drained by the mail relay.
type S3OutboxNotifier struct {
	client   *s3.Client
	bucket   string
	linkBase string
	log      logging.Logger
	clock    abtime.AbstractTime
}

func NewS3OutboxNotifier(ctx context.Context, opts S3Options, log logging.Logger, clock abtime.AbstractTime) (*S3OutboxNotifier, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 outbox: bucket is required")
	}
	if log == nil {
		log = logging.Nop{}
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 outbox: loading aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3OutboxNotifier{
		client:   client,
		bucket:   opts.Bucket,
		linkBase: opts.LinkBase,
		log:      log.With("module", "notify", "notifier", "s3"),
		clock:    clock,
	}, nil
}

// OutboxKey is recovery/<yyyy>/<mm>/<dd>/<uuid>.json for the given day.
func OutboxKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("recovery/%04d/%02d/%02d/%s.json", t.Year(), int(t.Month()), t.Day(), uuid.NewString())
}

func (n *S3OutboxNotifier) SendRecoveryLink(ctx context.Context, email, token string) error {
	now := n.clock.Now().UTC()
	msg := RecoveryMessage{
		Email:       email,
		Token:       token,
		Link:        RecoveryLink(n.linkBase, token),
		RequestedAt: now,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding recovery message: %w", err)
	}

	key := OutboxKey(now)
	_, err = putObject(n.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(n.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 outbox: put %s: %w", key, err)
	}

	n.log.Info(ctx, "recovery message queued", "email", email, "key", key)
	return nil
}
