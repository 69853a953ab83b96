package main

import (
	"context"
	"fmt"

	"powerbi-tom-skill/internal/common/aws"
	"powerbi-tom-skill/internal/common/config"
	"powerbi-tom-skill/internal/common/logger"
	"powerbi-tom-skill/internal/powerbi"
	powerbitom "powerbi-tom-skill/internal/skills/powerbi-tom"
)

// newConnector builds the REST connector with inline credentials when they
// are configured, otherwise with the Secrets Manager secret.
func newConnector(ctx context.Context, cfg *config.Config, log logger.Logger) (*powerbi.Connector, error) {
	var creds powerbi.CredentialSource
	if cfg.PowerBI.HasInlineCredentials() {
		creds = powerbi.StaticCredentials{
			TenantID:     cfg.PowerBI.TenantID,
			ClientID:     cfg.PowerBI.ClientID,
			ClientSecret: cfg.PowerBI.ClientSecret,
		}
	} else {
		secrets, err := aws.NewSecretsClient(ctx, cfg.PowerBI.Region)
		if err != nil {
			return nil, fmt.Errorf("secrets client: %w", err)
		}
		creds = powerbi.SecretCredentials{Reader: secrets, Name: cfg.PowerBI.SecretName}
	}

	return powerbi.NewConnector(powerbi.Options{
		APIBase:     cfg.PowerBI.APIBase,
		Authority:   cfg.PowerBI.Authority,
		Scope:       cfg.PowerBI.Scope,
		Timeout:     config.GetDuration(cfg.PowerBI.Timeout),
		Credentials: creds,
		Logger:      log.WithFields(map[string]interface{}{"component": "powerbi"}),
	})
}

// newNotifier returns nil when SNS notifications are disabled.
func newNotifier(ctx context.Context, cfg *config.Config) (powerbitom.Notifier, error) {
	if !cfg.Notifications.SNS.Enabled {
		return nil, nil
	}
	n, err := aws.NewSNSNotifier(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN)
	if err != nil {
		return nil, fmt.Errorf("sns notifier: %w", err)
	}
	return n, nil
}
