package vector

import (
	"fmt"
	"regexp"
)

const maxNamespaceLength = 64

var namespaceRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SanitizeNamespace maps any string onto the allowed namespace alphabet:
// characters outside [a-zA-Z0-9_-] become '_', the result is capped at
// 64 characters. May return an empty string for empty input.
func SanitizeNamespace(namespace string) string {
	if namespaceRe.MatchString(namespace) {
		return namespace
	}
	out := make([]byte, 0, len(namespace))
	for _, r := range namespace {
		if len(out) >= maxNamespaceLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, byte(r))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// validateNamespace sanitizes and rejects namespaces that end up empty.
func validateNamespace(namespace string) (string, error) {
	sanitized := SanitizeNamespace(namespace)
	if sanitized == "" {
		return "", fmt.Errorf("invalid namespace %q", namespace)
	}
	return sanitized, nil
}
