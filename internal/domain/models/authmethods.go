// internal/domain/models/authmethods.go
package models

import "strings"

// Auth methods a profile can sign in with.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
	AuthTrust    = "trust" // development only; no credential check
)

// AllAuthMethods lists every supported auth method.
var AllAuthMethods = []string{AuthPassword, AuthGoogle, AuthTrust}

// IsValidAuthMethod checks if a value is a valid auth method.
func IsValidAuthMethod(value string) bool {
	for _, m := range AllAuthMethods {
		if m == value {
			return true
		}
	}
	return false
}

// AuthMethodsList returns the auth methods as a comma separated string for error messages.
func AuthMethodsList() string {
	return strings.Join(AllAuthMethods, ", ")
}
