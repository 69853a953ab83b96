package powerbi

import (
	"context"

	"github.com/pkg/errors"
)

// CredentialSource yields the service principal used to request tokens.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials serves credentials taken from configuration.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(ctx context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// SecretReader loads a JSON secret into dst.
type SecretReader interface {
	GetJSON(ctx context.Context, name string, dst interface{}) error
}

// SecretCredentials reads credentials from a named secret on every call.
type SecretCredentials struct {
	Reader SecretReader
	Name   string
}

func (s SecretCredentials) Credentials(ctx context.Context) (Credentials, error) {
	var creds Credentials
	if err := s.Reader.GetJSON(ctx, s.Name, &creds); err != nil {
		return Credentials{}, err
	}
	if creds.TenantID == "" || creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, errors.Errorf("secret %s is missing tenantId, clientId or clientSecret", s.Name)
	}
	return creds, nil
}
