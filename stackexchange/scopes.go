package stackexchange

import "strings"

// Scopes a Stack Exchange app can request during the authorization flow
const (
	ScopeReadInbox   = "read_inbox"   // read the user's global inbox
	ScopeNoExpiry    = "no_expiry"    // access token never expires
	ScopeWriteAccess = "write_access" // perform write operations as the user
	ScopePrivateInfo = "private_info" // read full user details, including email
)

// AllScopes returns every scope Stack Exchange documents
func AllScopes() []string {
	return []string{ScopeReadInbox, ScopeNoExpiry, ScopeWriteAccess, ScopePrivateInfo}
}

// ParseScopes splits a comma or space separated scope string, dropping duplicates
func ParseScopes(scopeString string) []string {
	fields := strings.FieldsFunc(scopeString, func(r rune) bool {
		return r == ',' || r == ' '
	})
	return dedupeScopes(fields)
}

// ValidateScopes splits requested into known and unknown scopes.
// Duplicates are skipped.
func ValidateScopes(requested []string) (valid, invalid []string) {
	known := make(map[string]bool)
	for _, s := range AllScopes() {
		known[s] = true
	}

	valid = make([]string, 0, len(requested))
	for _, s := range dedupeScopes(requested) {
		if known[s] {
			valid = append(valid, s)
		} else {
			invalid = append(invalid, s)
		}
	}
	return valid, invalid
}

func dedupeScopes(scopes []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
