package aws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"powerbi-tom-skill/internal/common/errors"
)

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

type mockSecrets struct {
	mock.Mock
}

func (m *mockSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*secretsmanager.GetSecretValueOutput)
	return out, args.Error(1)
}

func TestSNSNotifier_PublishJSON(t *testing.T) {
	client := &mockSNS{}
	n := &SNSNotifier{client: client, topicARN: "arn:aws:sns:us-east-1:123:model-changes"}

	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var body map[string]string
		if err := json.Unmarshal([]byte(aws.ToString(in.Message)), &body); err != nil {
			return false
		}
		return aws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:123:model-changes" &&
			aws.ToString(in.Subject) == "ModelChanged" &&
			body["dataset"] == "Sales"
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil)

	err := n.PublishJSON(context.Background(), "ModelChanged", map[string]string{"dataset": "Sales"})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSNSNotifier_PublishFailure(t *testing.T) {
	client := &mockSNS{}
	n := &SNSNotifier{client: client, topicARN: "arn"}
	client.On("Publish", mock.Anything, mock.Anything).Return(nil, stderrors.New("throttled"))

	err := n.PublishJSON(context.Background(), "ModelChanged", map[string]string{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotificationPublishFailed, errors.CodeOf(err))
}

func TestSecretsClient_GetJSON(t *testing.T) {
	client := &mockSecrets{}
	s := &SecretsClient{client: client}
	client.On("GetSecretValue", mock.Anything, mock.MatchedBy(func(in *secretsmanager.GetSecretValueInput) bool {
		return aws.ToString(in.SecretId) == "powerbi/app"
	})).Return(&secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"tenantId":"t","clientId":"c","clientSecret":"s"}`),
	}, nil)

	var dst struct {
		TenantID string `json:"tenantId"`
		ClientID string `json:"clientId"`
	}
	require.NoError(t, s.GetJSON(context.Background(), "powerbi/app", &dst))
	assert.Equal(t, "t", dst.TenantID)
	assert.Equal(t, "c", dst.ClientID)
}

func TestSecretsClient_MissingString(t *testing.T) {
	client := &mockSecrets{}
	s := &SecretsClient{client: client}
	client.On("GetSecretValue", mock.Anything, mock.Anything).Return(&secretsmanager.GetSecretValueOutput{}, nil)

	var dst map[string]string
	assert.Error(t, s.GetJSON(context.Background(), "powerbi/app", &dst))
}
