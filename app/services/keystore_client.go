package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// KeyNotConfiguredError means the organization or application has no key
// stored for the requested provider. Not retried; the message names the
// provider and the scope that was checked.
type KeyNotConfiguredError struct {
	Provider string
	Scope    string // "organization" or "application"
	ScopeID  string
}

func (e *KeyNotConfiguredError) Error() string {
	return fmt.Sprintf("no %s API key configured for %s %s", e.Provider, e.Scope, e.ScopeID)
}

// KeystoreClient fetches decrypted provider API keys from the key store.
// BYOK lookups are keyed by organization id, shared-key lookups by
// application id.
type KeystoreClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewKeystoreClient creates a key store client
func NewKeystoreClient(baseURL, apiKey string, timeout time.Duration) *KeystoreClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeystoreClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type keyResponse struct {
	Key string `json:"key"`
}

// OrgKey resolves the organization's own provider key (BYOK)
func (c *KeystoreClient) OrgKey(ctx context.Context, organizationID, provider string) (string, error) {
	path := fmt.Sprintf("/api/v1/organizations/%s/keys/%s",
		url.PathEscape(organizationID), url.PathEscape(provider))
	return c.fetchKey(ctx, path, &KeyNotConfiguredError{
		Provider: provider,
		Scope:    "organization",
		ScopeID:  organizationID,
	})
}

// AppKey resolves the application's shared provider key
func (c *KeystoreClient) AppKey(ctx context.Context, appID, provider string) (string, error) {
	path := fmt.Sprintf("/api/v1/apps/%s/keys/%s",
		url.PathEscape(appID), url.PathEscape(provider))
	return c.fetchKey(ctx, path, &KeyNotConfiguredError{
		Provider: provider,
		Scope:    "application",
		ScopeID:  appID,
	})
}

func (c *KeystoreClient) fetchKey(ctx context.Context, path string, notFound *KeyNotConfiguredError) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return "", err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("keystore: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", notFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("keystore: GET %s failed with status %d", path, resp.StatusCode)
	}

	var kr keyResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return "", fmt.Errorf("keystore: failed to decode response: %w", err)
	}
	if kr.Key == "" {
		return "", notFound
	}

	return kr.Key, nil
}
