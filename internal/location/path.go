package location

import (
	"path"
	"path/filepath"
	"strings"
)

// BuiltinName returns the base name of p when it is a builtin marker such as
// <builtin-library-malloc> or <intrinsic>.
func BuiltinName(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	name := path.Base(filepath.ToSlash(p))
	if len(name) >= 2 && strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">") {
		return name, true
	}
	return "", false
}

// IsBuiltin reports whether p names a verifier builtin rather than a file.
func IsBuiltin(p string) bool {
	_, ok := BuiltinName(p)
	return ok
}

// Canonical cleans p and converts host separators to forward slashes.
func Canonical(p string) string {
	if p == "" {
		return ""
	}
	// единый вид путей на всех платформах
	return filepath.ToSlash(filepath.Clean(p))
}

// IsAbs reports whether p is absolute in either slash or host form.
func IsAbs(p string) bool {
	return filepath.IsAbs(p) || strings.HasPrefix(filepath.ToSlash(p), "/")
}

// Join resolves p against base unless p is already absolute.
func Join(base, p string) string {
	if IsAbs(p) || base == "" {
		return Canonical(p)
	}
	return Canonical(filepath.Join(base, p))
}

// IsChild reports whether p lies strictly below root. Both must be canonical.
func IsChild(p, root string) bool {
	if root == "" || p == "" {
		return false
	}
	if root == "/" {
		return p != "/" && strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, root+"/")
}

// ChildPath returns p relative to root when p lies under root, and p otherwise.
func ChildPath(p, root string) string {
	if !IsChild(p, root) {
		return p
	}
	if root == "/" {
		return p[1:]
	}
	return p[len(root)+1:]
}
