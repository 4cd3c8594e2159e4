// Package credentials provides the Tracker A admin credential from Consul
// KV or from the environment.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	consul "github.com/hashicorp/consul/api"

	"github.com/example/orphanscan/internal/ports/secondary"
)

// Environment variables read by the env provider.
const (
	EnvPassword = "ORPHANSCAN_ATR_PASSWORD"
	EnvBaseURL  = "ORPHANSCAN_ATR_BASE_URL"
)

// ErrNotFound is returned when a credential value is absent.
var ErrNotFound = errors.New("credential value not found")

// NormalizeBaseURL prefixes https:// when raw carries no http scheme and
// trims trailing slashes.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http") {
		raw = "https://" + raw
	}
	return raw
}

// ConsulProvider reads the credential from Consul KV.
type ConsulProvider struct {
	kv          *consul.KV
	username    string
	passwordKey string
	baseURLKey  string
}

// NewConsulProvider creates a provider against the agent at address.
// An empty address uses the consul client defaults (CONSUL_HTTP_ADDR).
func NewConsulProvider(address, username, passwordKey, baseURLKey string) (*ConsulProvider, error) {
	cfg := consul.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}
	client, err := consul.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return &ConsulProvider{
		kv:          client.KV(),
		username:    username,
		passwordKey: passwordKey,
		baseURLKey:  baseURLKey,
	}, nil
}

// AdminCredential reads the admin password and the platform base URL.
func (p *ConsulProvider) AdminCredential(ctx context.Context) (*secondary.AdminCredential, error) {
	password, err := p.get(ctx, p.passwordKey)
	if err != nil {
		return nil, err
	}
	baseURL, err := p.get(ctx, p.baseURLKey)
	if err != nil {
		return nil, err
	}
	return &secondary.AdminCredential{
		Username: p.username,
		Password: password,
		BaseURL:  NormalizeBaseURL(baseURL),
	}, nil
}

func (p *ConsulProvider) get(ctx context.Context, key string) (string, error) {
	opts := (&consul.QueryOptions{}).WithContext(ctx)
	pair, _, err := p.kv.Get(key, opts)
	if err != nil {
		return "", fmt.Errorf("failed to read consul key %s: %w", key, err)
	}
	if pair == nil || strings.TrimSpace(string(pair.Value)) == "" {
		return "", fmt.Errorf("%w: consul key %s", ErrNotFound, key)
	}
	return strings.TrimSpace(string(pair.Value)), nil
}

// EnvProvider reads the credential from environment variables.
type EnvProvider struct {
	username string
	lookup   func(string) (string, bool)
}

// NewEnvProvider creates a provider reading the process environment.
func NewEnvProvider(username string) *EnvProvider {
	return &EnvProvider{username: username, lookup: os.LookupEnv}
}

// AdminCredential reads ORPHANSCAN_ATR_PASSWORD and ORPHANSCAN_ATR_BASE_URL.
func (p *EnvProvider) AdminCredential(_ context.Context) (*secondary.AdminCredential, error) {
	password, ok := p.lookup(EnvPassword)
	if !ok || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, EnvPassword)
	}
	baseURL, ok := p.lookup(EnvBaseURL)
	if !ok || strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, EnvBaseURL)
	}
	return &secondary.AdminCredential{
		Username: p.username,
		Password: password,
		BaseURL:  NormalizeBaseURL(baseURL),
	}, nil
}

var (
	_ secondary.CredentialProvider = (*ConsulProvider)(nil)
	_ secondary.CredentialProvider = (*EnvProvider)(nil)
)
