package api

import "strings"

// splitChallengePath extracts the challenge id and trailing action from a
// /challenges/{id}[/{action}] path.
func splitChallengePath(path string) (id, rest string) {
	trimmed := strings.TrimPrefix(path, "/challenges/")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
