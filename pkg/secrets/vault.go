package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig stores the configuration required for HashiCorp Vault.
type VaultConfig struct {
	Address   string
	Token     string
	Namespace string
	MountPath string
}

// kvReader is the KV v2 surface used by the provider.
type kvReader interface {
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
	GetVersion(ctx context.Context, secretPath string, version int) (*vault.KVSecret, error)
}

type vaultProvider struct {
	kv           func(mount string) kvReader
	defaultMount string
}

func newVaultProvider(cfg VaultConfig) (provider, error) {
	if cfg.Address == "" || cfg.Token == "" {
		return nil, fmt.Errorf("secrets: vault provider requires address and token")
	}

	clientCfg := vault.DefaultConfig()
	clientCfg.Address = cfg.Address

	client, err := vault.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	mount := strings.Trim(cfg.MountPath, "/")
	if mount == "" {
		mount = "secret"
	}

	return &vaultProvider{
		kv:           func(m string) kvReader { return client.KVv2(m) },
		defaultMount: mount,
	}, nil
}

func (v *vaultProvider) Name() ProviderType { return ProviderVault }

func (v *vaultProvider) Close() error { return nil }

func (v *vaultProvider) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	mount, path := v.resolvePath(ref)
	if path == "" {
		return Secret{}, ErrInvalidReference
	}

	kv := v.kv(mount)
	var (
		secret *vault.KVSecret
		err    error
	)
	if ref.Version != "" {
		version, convErr := strconv.Atoi(ref.Version)
		if convErr != nil {
			return Secret{}, fmt.Errorf("secrets: invalid vault version %q: %w", ref.Version, convErr)
		}
		secret, err = kv.GetVersion(ctx, path, version)
	} else {
		secret, err = kv.Get(ctx, path)
	}
	if err != nil {
		var respErr *vault.ResponseError
		if errors.Is(err, vault.ErrSecretNotFound) || (errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound) {
			return Secret{}, fmt.Errorf("secrets: vault path %s/%s not found", mount, path)
		}
		return Secret{}, fmt.Errorf("secrets: vault fetch failed for %s/%s: %w", mount, path, err)
	}

	data := make(map[string]string, len(secret.Data))
	for k, raw := range secret.Data {
		data[k] = fmt.Sprint(raw)
	}

	md := Metadata{}
	if secret.VersionMetadata != nil {
		md.Version = strconv.Itoa(secret.VersionMetadata.Version)
		md.CreatedAt = secret.VersionMetadata.CreatedTime
	}
	return Secret{Data: data, Metadata: md}, nil
}

// resolvePath accepts paths copied from the Vault UI, which include the
// data/ or metadata/ segment of the KV v2 HTTP API.
func (v *vaultProvider) resolvePath(ref Reference) (string, string) {
	mount := v.defaultMount
	if ref.Mount != "" {
		mount = strings.Trim(ref.Mount, "/")
	}
	p := strings.Trim(ref.Path, "/")
	p = strings.TrimPrefix(p, "data/")
	p = strings.TrimPrefix(p, "metadata/")
	return mount, strings.Trim(p, "/")
}
