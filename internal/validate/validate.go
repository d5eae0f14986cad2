// Package validate holds the pure per-request checks the pipeline runs
// against a manifest before a feature handler is invoked. Each check is
// independent and side-effect free; composition and ordering live in the
// pipeline.
package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"featurehost/internal/manifest"
)

// Result is the outcome of a single check: valid, or invalid with a caller
// facing reason and the HTTP-equivalent status code. Produced fresh per
// check, never persisted.
type Result struct {
	valid      bool
	Reason     string
	StatusCode int
}

// Valid returns a passing result.
func Valid() Result {
	return Result{valid: true}
}

// Invalid returns a failing result with the given reason and status code.
func Invalid(reason string, statusCode int) Result {
	return Result{Reason: reason, StatusCode: statusCode}
}

// OK reports whether the check passed.
func (r Result) OK() bool {
	return r.valid
}

// CredentialChecker verifies a bearer credential. Credential validation is
// delegated to an external authority; token.Validator is the default.
type CredentialChecker interface {
	Check(ctx context.Context, credential string) error
}

// Auth checks the authentication requirement. Manifests that do not require
// auth always pass; otherwise a valid bearer credential must be present.
func Auth(ctx context.Context, m *manifest.Manifest, authorization string, checker CredentialChecker) Result {
	if !m.API.RequiresAuth {
		return Valid()
	}

	cred, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || cred == "" {
		return Invalid("Authentication required", http.StatusUnauthorized)
	}
	if checker == nil {
		return Invalid("Authentication required", http.StatusUnauthorized)
	}
	if err := checker.Check(ctx, cred); err != nil {
		return Invalid("Invalid or expired credential", http.StatusUnauthorized)
	}
	return Valid()
}

// walletFields are the body fields recognized as a wallet public key, in
// lookup order.
var walletFields = []string{"userPublicKey", "walletAddress", "publicKey", "wallet"}

// Wallet checks the wallet-connection requirement against the raw request
// body. gjson tolerates extra fields and malformed fragments, so feature
// bodies of any shape are accepted as long as a key field is present.
func Wallet(m *manifest.Manifest, body []byte) Result {
	if !m.API.RequiresWallet {
		return Valid()
	}
	if WalletAddress(body) == "" {
		return Invalid("Wallet connection required", http.StatusUnauthorized)
	}
	return Valid()
}

// WalletAddress extracts the first recognizable public-key field from a JSON
// body, or "" when none is present. Also used for rate-limit identity keying.
func WalletAddress(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	for _, field := range walletFields {
		if v := gjson.GetBytes(body, field); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// Params checks that every parameter the manifest declares as required is
// present. Unknown extra parameters are ignored, never rejected, so older
// hosts keep accepting newer feature clients.
func Params(m *manifest.Manifest, params map[string]string) Result {
	for _, p := range m.RequiredParameters() {
		if _, ok := params[p.Name]; !ok {
			return Invalid(fmt.Sprintf("Missing required parameter: %s", p.Name), http.StatusBadRequest)
		}
	}
	return Valid()
}
