package tokens

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func seg(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

const secret = "test-secret-32-bytes-should-be-long-enough"

func verifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(secret)
	require.NoError(t, err)
	return v
}

func TestVerify_ValidAndClaims(t *testing.T) {
	tok, err := GenerateAccessToken(secret, "user-123", 2*time.Minute)
	require.NoError(t, err)

	got, err := verifier(t).Verify(context.Background(), tok)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, got.Claims(&claims))
	require.Equal(t, "user-123", claims["sub"])
}

func TestVerify_Expired(t *testing.T) {
	tok, err := GenerateAccessToken(secret, "u2", -time.Minute)
	require.NoError(t, err)
	_, err = verifier(t).Verify(context.Background(), tok)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_WrongSecretFails(t *testing.T) {
	tok, err := GenerateAccessToken("different-secret-xxxxxxxxxxxxxxxx", "u3", 2*time.Minute)
	require.NoError(t, err)
	_, err = verifier(t).Verify(context.Background(), tok)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	_, err := verifier(t).Verify(context.Background(), "not.a.jwt")
	require.Error(t, err)
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	headerEnc := seg([]byte(`{"alg":"none"}`))
	payloadEnc := seg([]byte(`{"sub":"u-none","exp":9999999999}`))
	_, err := verifier(t).Verify(context.Background(), headerEnc+"."+payloadEnc+".")
	require.Error(t, err)
}

func TestVerify_MissingExpiryRejected(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u4"}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = verifier(t).Verify(context.Background(), tok)
	require.Error(t, err)
}

func TestVerify_TamperedPayload(t *testing.T) {
	tok, err := GenerateAccessToken(secret, "user-t", 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	require.NoError(t, err)
	parts[1] = seg([]byte(strings.Replace(string(payload), "user-t", "attacker", 1)))

	_, err = verifier(t).Verify(context.Background(), strings.Join(parts, "."))
	require.Error(t, err)
}

func TestEmptySecret(t *testing.T) {
	_, err := NewVerifier("")
	require.ErrorIs(t, err, ErrEmptySecret)
	_, err = GenerateAccessToken("", "x", time.Minute)
	require.ErrorIs(t, err, ErrEmptySecret)
}
