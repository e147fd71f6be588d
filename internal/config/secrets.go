package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the part of the Secrets Manager client we use.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// loadAWSConfig is swapped out in tests.
var loadAWSConfig = awsconfig.LoadDefaultConfig

// SecretsManagerFunc builds the client used to read the token secret.
var SecretsManagerFunc = func(ctx context.Context, region string) (SecretsManagerAPI, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

type tokenSecret struct {
	Token string `json:"token"`
	PAT   string `json:"pat"`
}

// ResolveToken returns the configured token, or reads it from Secrets
// Manager when only a secret id is configured. An empty result means no
// token is available.
func (c *Config) ResolveToken(ctx context.Context) (string, error) {
	if c.Token != "" || c.TokenSecretID == "" {
		return c.Token, nil
	}
	client, err := SecretsManagerFunc(ctx, c.AWSRegion)
	if err != nil {
		return "", err
	}
	return FetchToken(ctx, client, c.TokenSecretID)
}

// FetchToken reads the token secret. The secret may hold the raw token or a
// JSON object with a "token" (or "pat") field.
func FetchToken(ctx context.Context, client SecretsManagerAPI, secretID string) (string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to retrieve secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}

	raw := strings.TrimSpace(*out.SecretString)
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var s tokenSecret
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", fmt.Errorf("failed to unmarshal secret %s: %w", secretID, err)
	}
	if s.Token != "" {
		return s.Token, nil
	}
	if s.PAT != "" {
		return s.PAT, nil
	}
	return "", fmt.Errorf("secret %s has no token field", secretID)
}
