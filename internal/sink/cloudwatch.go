package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"

	"github.com/shiplog-io/shiplog/internal/config"
	"github.com/shiplog-io/shiplog/internal/model"
)

// CloudWatch is the Sink backed by AWS CloudWatch Logs. The SDK handles
// transport-level retries and backoff; this layer only maps the calls.
type CloudWatch struct {
	client *cloudwatchlogs.Client
}

// cloudWatchAPI is the slice of the SDK client CloudWatch uses. Lets
// tests substitute a stub without a running endpoint.
type cloudWatchAPI interface {
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	DescribeLogStreams(ctx context.Context, in *cloudwatchlogs.DescribeLogStreamsInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// NewCloudWatch builds a CloudWatch Logs client from the AWS config
// section. Static credentials when provided, otherwise the SDK's
// default chain; Endpoint overrides the API endpoint for local stacks.
func NewCloudWatch(ctx context.Context, cfg *config.AWSConfig) (*CloudWatch, error) {
	awsCfg, err := resolveAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := cloudwatchlogs.NewFromConfig(awsCfg, func(o *cloudwatchlogs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &CloudWatch{client: client}, nil
}

func resolveAWSConfig(ctx context.Context, cfg *config.AWSConfig) (aws.Config, error) {
	if cfg == nil || cfg.Region == "" {
		return aws.Config{}, fmt.Errorf("cloudwatch: region is required")
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		return aws.Config{
			Region:      cfg.Region,
			Credentials: aws.NewCredentialsCache(creds),
		}, nil
	}
	// No static keys: environment variables, shared config, instance
	// roles and the rest of the default chain.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("cloudwatch: load default aws config: %w", err)
	}
	return awsCfg, nil
}

// PutEvents appends one batch and returns the next sequence token.
func (c *CloudWatch) PutEvents(ctx context.Context, group, stream string, events []model.LogEvent, sequenceToken string) (string, error) {
	return putEvents(ctx, c.client, group, stream, events, sequenceToken)
}

func putEvents(ctx context.Context, api cloudWatchAPI, group, stream string, events []model.LogEvent, sequenceToken string) (string, error) {
	in := &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
		LogEvents:     make([]types.InputLogEvent, 0, len(events)),
	}
	if sequenceToken != "" {
		in.SequenceToken = aws.String(sequenceToken)
	}
	for _, ev := range events {
		in.LogEvents = append(in.LogEvents, types.InputLogEvent{
			Message:   aws.String(ev.Message),
			Timestamp: aws.Int64(ev.TimestampMillis),
		})
	}
	out, err := api.PutLogEvents(ctx, in)
	if err != nil {
		return "", fmt.Errorf("cloudwatch: put log events to %s:%s: %w", group, stream, err)
	}
	return aws.ToString(out.NextSequenceToken), nil
}

// FindStreams lists streams in group matching prefix, walking every
// page of the describe call.
func (c *CloudWatch) FindStreams(ctx context.Context, group, prefix string) ([]StreamInfo, error) {
	return findStreams(ctx, c.client, group, prefix)
}

func findStreams(ctx context.Context, api cloudWatchAPI, group, prefix string) ([]StreamInfo, error) {
	var (
		infos []StreamInfo
		next  *string
	)
	for {
		out, err := api.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
			LogGroupName:        aws.String(group),
			LogStreamNamePrefix: aws.String(prefix),
			NextToken:           next,
		})
		if err != nil {
			return nil, fmt.Errorf("cloudwatch: describe log streams in %s: %w", group, err)
		}
		for _, s := range out.LogStreams {
			infos = append(infos, StreamInfo{
				Name:          aws.ToString(s.LogStreamName),
				SequenceToken: aws.ToString(s.UploadSequenceToken),
			})
		}
		if out.NextToken == nil {
			return infos, nil
		}
		next = out.NextToken
	}
}

// CreateStream creates the stream, mapping the service's
// already-exists error onto ErrStreamAlreadyExists.
func (c *CloudWatch) CreateStream(ctx context.Context, group, stream string) error {
	return createStream(ctx, c.client, group, stream)
}

func createStream(ctx context.Context, api cloudWatchAPI, group, stream string) error {
	_, err := api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if errors.As(err, &exists) {
			return ErrStreamAlreadyExists
		}
		// Proxies and compat endpoints sometimes return the code without
		// the modeled type.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceAlreadyExistsException" {
			return ErrStreamAlreadyExists
		}
		return fmt.Errorf("cloudwatch: create log stream %s:%s: %w", group, stream, err)
	}
	return nil
}
