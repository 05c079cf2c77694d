package domain

import (
	"strings"

	"certwatch/pkg/serrors"
)

// ValidateName canonicalizes a root domain name entered by an operator and
// validates it. The canonical form is lower-case with surrounding whitespace
// and a single trailing dot removed; it is the key under which the monitor
// tracks and stores the domain.
//
// A name is rejected when it is empty, contains whitespace or a path
// separator, or has no dot at all (bare labels like "localhost" cannot have
// subdomains worth monitoring).
func ValidateName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimSuffix(name, ".")

	switch {
	case name == "":
		return "", serrors.With(serrors.ErrBadRequest, "domain name is empty")
	case strings.ContainsAny(name, " \t\n\r"):
		return "", serrors.With(serrors.ErrBadRequest, "domain name %q contains whitespace", raw)
	case strings.ContainsAny(name, "/\\"):
		return "", serrors.With(serrors.ErrBadRequest, "domain name %q contains a path separator", raw)
	case !strings.Contains(name, "."):
		return "", serrors.With(serrors.ErrBadRequest, "domain name %q has no dot", raw)
	case strings.HasPrefix(name, ".") || strings.Contains(name, ".."):
		return "", serrors.With(serrors.ErrBadRequest, "domain name %q has an empty label", raw)
	}

	return name, nil
}

// IsSubdomainOf reports whether name is a strict subdomain of root, i.e. it
// ends in "."+root and is not root itself. Both arguments are expected in
// canonical (lower-case, no trailing dot) form.
func IsSubdomainOf(name, root string) bool {
	return name != root && strings.HasSuffix(name, "."+root)
}
