package gcp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretFetcher defines the interface for fetching secrets
type SecretFetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

// SecretManagerClient wraps the GCP Secret Manager client
type SecretManagerClient struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerClient creates a Secret Manager client. projectID is used
// for bare secret names; when empty it is discovered via ProjectID.
func NewSecretManagerClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*SecretManagerClient, error) {
	if projectID == "" {
		var err error
		projectID, err = ProjectID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get project ID: %w", err)
		}
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &SecretManagerClient{
		client:    client,
		projectID: projectID,
	}, nil
}

// FetchSecret retrieves a secret's payload. secretPath can be:
//   - projects/PROJECT_ID/secrets/SECRET_NAME/versions/VERSION
//   - projects/PROJECT_ID/secrets/SECRET_NAME (latest version)
//   - SECRET_NAME (latest version in the client's project)
func (c *SecretManagerClient) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := c.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: normalizeSecretPath(c.projectID, secretPath),
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}

	return strings.TrimSpace(string(result.Payload.Data)), nil
}

// normalizeSecretPath expands secretPath to a full version resource name
func normalizeSecretPath(projectID, secretPath string) string {
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/versions/") {
		return secretPath
	}

	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/secrets/") {
		return secretPath + "/versions/latest"
	}

	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, path.Base(secretPath))
}

// Close closes the Secret Manager client
func (c *SecretManagerClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// SecretRef is a credential given either inline or as a secret path.
type SecretRef struct {
	Name   string // for error messages, e.g. "solver.api_key"
	Value  string
	Secret string
}

// ResolveSecrets fills in Value for every ref that has only a Secret path.
// newFetcher is called at most once, and only if a lookup is needed.
func ResolveSecrets(ctx context.Context, newFetcher func(context.Context) (SecretFetcher, error), refs ...*SecretRef) error {
	var fetcher SecretFetcher
	defer func() {
		if fetcher != nil {
			_ = fetcher.Close()
		}
	}()

	for _, ref := range refs {
		if ref.Value != "" || ref.Secret == "" {
			continue
		}
		if fetcher == nil {
			f, err := newFetcher(ctx)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", ref.Name, err)
			}
			fetcher = f
		}
		value, err := fetcher.FetchSecret(ctx, ref.Secret)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", ref.Name, err)
		}
		if value == "" {
			return fmt.Errorf("resolve %s: secret %s is empty", ref.Name, ref.Secret)
		}
		ref.Value = value
	}
	return nil
}
