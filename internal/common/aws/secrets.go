// internal/common/aws/secrets.go
package aws

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
)

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads JSON secrets from AWS Secrets Manager.
type SecretsClient struct {
	client secretsAPI
}

func NewSecretsClient(ctx context.Context, region string) (*SecretsClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config failed")
	}
	return &SecretsClient{client: secretsmanager.NewFromConfig(cfg)}, nil
}

// GetJSON decodes the secret string stored under name into dst.
func (s *SecretsClient) GetJSON(ctx context.Context, name string, dst interface{}) error {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return errors.Wrapf(err, "get secret %s", name)
	}
	if out.SecretString == nil {
		return errors.Errorf("secret %s has no string value", name)
	}

	dec := json.NewDecoder(strings.NewReader(*out.SecretString))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrapf(err, "decode secret %s", name)
	}
	return nil
}
