package github

import (
	"context"
	"fmt"

	"github.com/Strob0t/TestRelay/internal/secrets"
)

// VaultTokenSource reads the API token from a secret vault on every call,
// so a reloaded vault rotates the credential without restarting. An empty
// vault value falls back to the static fallback token.
type VaultTokenSource struct {
	vault    *secrets.Vault
	key      string
	fallback string
}

// NewVaultTokenSource creates a token source reading key from vault.
func NewVaultTokenSource(vault *secrets.Vault, key, fallback string) *VaultTokenSource {
	return &VaultTokenSource{vault: vault, key: key, fallback: fallback}
}

// Token implements hosting.TokenSource.
func (v *VaultTokenSource) Token(_ context.Context) (string, error) {
	if tok := v.vault.Get(v.key); tok != "" {
		return tok, nil
	}
	if v.fallback != "" {
		return v.fallback, nil
	}
	return "", fmt.Errorf("no token configured")
}
