// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"powerbi-tom-skill/internal/common/errors"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes JSON payloads to a single topic.
type SNSNotifier struct {
	client   snsAPI
	topicARN string
}

func NewSNSNotifier(ctx context.Context, region, topicARN string) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSNotifier{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// PublishJSON marshals payload and publishes it with subject as both the SNS
// subject and the "event" message attribute.
func (s *SNSNotifier) PublishJSON(ctx context.Context, subject string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewNotificationPublishFailedError(err)
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(subject)},
		},
	})
	if err != nil {
		return errors.NewNotificationPublishFailedError(err)
	}
	return nil
}
