package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/logger"
	"go.uber.org/zap"
)

// ProviderType enumerates supported secret backends.
type ProviderType string

const (
	ProviderNone  ProviderType = ""
	ProviderVault ProviderType = "vault"
	ProviderAWS   ProviderType = "aws"
	ProviderGCP   ProviderType = "gcp"
)

// SecretType classifies a secret for audit logs.
type SecretType string

const (
	SecretDatabase SecretType = "database_password"
	SecretJWT      SecretType = "jwt_secret"
	SecretStorage  SecretType = "storage_credentials"
	SecretCustom   SecretType = "custom"
)

var (
	ErrProviderNotConfigured = errors.New("secrets: provider not configured")
	ErrInvalidReference      = errors.New("secrets: invalid reference")
	ErrKeyNotFound           = errors.New("secrets: key not found")
)

// Reference points at a secret inside a backend.
// Syntax: [provider://][mount::]path[@version][#key]
type Reference struct {
	Name     string
	Path     string
	Mount    string
	Key      string
	Version  string
	Provider ProviderType
	Type     SecretType
}

// CacheKey identifies the secret payload, ignoring Name and Type.
func (r Reference) CacheKey() string {
	var sb strings.Builder
	if r.Provider != ProviderNone {
		sb.WriteString(string(r.Provider))
		sb.WriteString("://")
	}
	if r.Mount != "" {
		sb.WriteString(r.Mount)
		sb.WriteString("::")
	}
	sb.WriteString(r.Path)
	if r.Version != "" {
		sb.WriteString("@")
		sb.WriteString(r.Version)
	}
	if r.Key != "" {
		sb.WriteString("#")
		sb.WriteString(r.Key)
	}
	return sb.String()
}

// ParseReference parses raw into a Reference. A single colon only splits a
// mount when the part before it has no slash, so "db:password" style Vault
// references work without the double colon.
func ParseReference(name string, secretType SecretType, raw string) (Reference, error) {
	ref := Reference{Name: name, Type: secretType}

	rest := strings.TrimSpace(raw)
	if rest == "" {
		return ref, ErrInvalidReference
	}

	if scheme, after, ok := strings.Cut(rest, "://"); ok && scheme != "" {
		ref.Provider = ProviderType(strings.ToLower(scheme))
		rest = after
	}
	if before, key, ok := strings.Cut(rest, "#"); ok {
		ref.Key = strings.TrimSpace(key)
		rest = before
	}
	if before, version, ok := strings.Cut(rest, "@"); ok {
		ref.Version = strings.TrimSpace(version)
		rest = before
	}

	rest = strings.Trim(strings.TrimSpace(rest), "/")
	if mount, path, ok := strings.Cut(rest, "::"); ok {
		ref.Mount = strings.Trim(mount, "/ ")
		rest = path
	} else if mount, path, ok := strings.Cut(rest, ":"); ok && mount != "" && !strings.Contains(mount, "/") && strings.Trim(path, "/") != "" {
		ref.Mount = mount
		rest = path
	}

	ref.Path = strings.Trim(rest, "/ ")
	if ref.Path == "" {
		return ref, ErrInvalidReference
	}
	return ref, nil
}

// Metadata describes when a secret was written and read.
type Metadata struct {
	Version     string
	CreatedAt   time.Time
	RetrievedAt time.Time
}

// Secret is a resolved key/value payload.
type Secret struct {
	Data     map[string]string
	Metadata Metadata
}

// Value returns a non-empty entry from the payload.
func (s Secret) Value(key string) (string, bool) {
	v, ok := s.Data[key]
	return v, ok && v != ""
}

// Config selects and configures one backend.
type Config struct {
	Provider     ProviderType
	CacheTTL     time.Duration
	AuditEnabled bool
	Vault        VaultConfig
	AWS          AWSConfig
	GCP          GCPConfig
}

// ConfigFromEnv maps the service configuration onto a manager Config.
func ConfigFromEnv(cfg config.SecretsConfig) Config {
	return Config{
		Provider:     ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider))),
		CacheTTL:     cfg.CacheTTL,
		AuditEnabled: true,
		Vault: VaultConfig{
			Address:   cfg.VaultAddress,
			Token:     cfg.VaultToken,
			Namespace: cfg.VaultNamespace,
			MountPath: cfg.VaultMount,
		},
		AWS: AWSConfig{
			Region:   cfg.AWSRegion,
			Endpoint: cfg.AWSEndpoint,
		},
		GCP: GCPConfig{
			ProjectID:       cfg.GCPProjectID,
			CredentialsFile: cfg.GCPCredentialFile,
		},
	}
}

// Manager resolves secrets from a backend and caches the payloads.
type Manager interface {
	GetSecret(ctx context.Context, ref Reference) (Secret, error)
	GetString(ctx context.Context, ref Reference) (string, error)
	Close() error
}

type provider interface {
	Name() ProviderType
	Fetch(ctx context.Context, ref Reference) (Secret, error)
	Close() error
}

type manager struct {
	provider     provider
	cacheTTL     time.Duration
	auditEnabled bool
	now          func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	secret    Secret
	expiresAt time.Time
}

// NewManager connects to the configured backend.
func NewManager(ctx context.Context, cfg Config) (Manager, error) {
	var (
		prov provider
		err  error
	)

	switch cfg.Provider {
	case ProviderNone:
		return nil, ErrProviderNotConfigured
	case ProviderVault:
		prov, err = newVaultProvider(cfg.Vault)
	case ProviderAWS:
		prov, err = newAWSProvider(ctx, cfg.AWS)
	case ProviderGCP:
		prov, err = newGCPProvider(ctx, cfg.GCP)
	default:
		err = fmt.Errorf("secrets: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return newManager(prov, cfg), nil
}

func newManager(prov provider, cfg Config) *manager {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &manager{
		provider:     prov,
		cacheTTL:     ttl,
		auditEnabled: cfg.AuditEnabled,
		now:          time.Now,
		cache:        make(map[string]cachedSecret),
	}
}

func (m *manager) Close() error {
	return m.provider.Close()
}

func (m *manager) GetSecret(ctx context.Context, ref Reference) (Secret, error) {
	if ref.Path == "" {
		return Secret{}, ErrInvalidReference
	}
	if ref.Provider != ProviderNone && ref.Provider != m.provider.Name() {
		return Secret{}, fmt.Errorf("secrets: reference %q targets %q but manager uses %q", ref.Name, ref.Provider, m.provider.Name())
	}

	key := ref.CacheKey()
	m.mu.RLock()
	entry, ok := m.cache[key]
	m.mu.RUnlock()
	if ok && m.now().Before(entry.expiresAt) {
		return cloneSecret(entry.secret), nil
	}

	secret, err := m.provider.Fetch(ctx, ref)
	if err != nil {
		m.audit(ref, Metadata{}, err)
		return Secret{}, err
	}
	secret.Metadata.RetrievedAt = m.now().UTC()

	if m.cacheTTL > 0 {
		m.mu.Lock()
		m.cache[key] = cachedSecret{secret: cloneSecret(secret), expiresAt: m.now().Add(m.cacheTTL)}
		m.mu.Unlock()
	}

	m.audit(ref, secret.Metadata, nil)
	return secret, nil
}

// GetString returns the single value named by ref.Key. A payload with one
// "value" entry (a plain string secret) satisfies any key.
func (m *manager) GetString(ctx context.Context, ref Reference) (string, error) {
	secret, err := m.GetSecret(ctx, ref)
	if err != nil {
		return "", err
	}

	key := ref.Key
	if key == "" {
		key = "value"
	}
	if v, ok := secret.Value(key); ok {
		return v, nil
	}
	if v, ok := secret.Value("value"); ok && len(secret.Data) == 1 {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s in %s", ErrKeyNotFound, key, ref.Name)
}

func (m *manager) audit(ref Reference, md Metadata, err error) {
	if !m.auditEnabled {
		return
	}

	fields := []zap.Field{
		zap.String("secret_name", ref.Name),
		zap.String("secret_type", string(ref.Type)),
		zap.String("provider", string(m.provider.Name())),
	}
	if md.Version != "" {
		fields = append(fields, zap.String("version", md.Version))
	}

	if err != nil {
		logger.Warn("secret fetch failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Info("secret fetched", fields...)
}

// Resolve returns fallback when raw is empty, otherwise the value raw
// references. It lets a plain env value and a secret reference share one
// setting.
func Resolve(ctx context.Context, m Manager, name string, secretType SecretType, raw, fallback string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	if m == nil {
		return "", fmt.Errorf("%w: %s references a secret", ErrProviderNotConfigured, name)
	}
	ref, err := ParseReference(name, secretType, raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return m.GetString(ctx, ref)
}

// decodePayload reads a JSON object of strings, or keeps raw under "value".
func decodePayload(raw []byte) map[string]string {
	out := make(map[string]string)
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err == nil {
		for k, v := range asMap {
			if s, ok := v.(string); ok {
				out[k] = s
			} else {
				out[k] = fmt.Sprint(v)
			}
		}
		return out
	}
	out["value"] = strings.TrimSpace(string(raw))
	return out
}

func cloneSecret(src Secret) Secret {
	dst := Secret{Data: make(map[string]string, len(src.Data)), Metadata: src.Metadata}
	for k, v := range src.Data {
		dst.Data[k] = v
	}
	return dst
}
