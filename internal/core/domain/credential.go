package domain

import "strings"

// ValidCredentialFormat reports whether a credential looks like an OpenAI
// API key. Both traditional keys ("sk-") and project keys ("sk-proj-") are
// accepted. Checked at storage time and again before every provider call.
func ValidCredentialFormat(credential string) bool {
	if strings.HasPrefix(credential, "sk-proj-") {
		return len(credential) > 25
	}
	return strings.HasPrefix(credential, "sk-") && len(credential) > 20
}
