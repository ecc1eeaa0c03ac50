package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/gogotex/gogotex/backend/go-resource/pkg/middleware"
)

// Verifier checks ID tokens issued by a Keycloak realm.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// IssuerURL returns the issuer of a Keycloak realm. An empty realm means
// baseURL already is the issuer.
func IssuerURL(baseURL, realm string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if realm == "" {
		return baseURL
	}
	return baseURL + "/realms/" + realm
}

// NewVerifier discovers the provider at issuer and builds a verifier for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Verify implements middleware.Verifier.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
