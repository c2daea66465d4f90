package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const defaultRegion = "us-east-1"

type sqsSender interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient publishes submission messages to an SQS queue. For FIFO queues
// messages are grouped per browsing context and deduplicated by submission.
type SQSClient struct {
	api      sqsSender
	queueURL string
	fifo     bool
}

// NewSQSClient constructs an SQS-backed queue client.
func NewSQSClient(ctx context.Context, queueURL, region string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("submissions queue url is required")
	}
	region = strings.TrimSpace(region)
	if region == "" {
		region = defaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSQSClient(sqs.NewFromConfig(cfg), queueURL), nil
}

func newSQSClient(api sqsSender, queueURL string) *SQSClient {
	return &SQSClient{
		api:      api,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status":  {DataType: aws.String("String"), StringValue: aws.String(msg.Status)},
			"version": {DataType: aws.String("Number"), StringValue: aws.String(fmt.Sprint(msg.Version))},
		},
	}
	if s.fifo {
		input.MessageGroupId = aws.String(msg.ContextID)
		input.MessageDeduplicationId = aws.String(msg.SubmissionID)
	}

	if _, err := s.api.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("sqs send submission %s: %w", msg.SubmissionID, err)
	}
	return nil
}

var _ Client = (*SQSClient)(nil)
