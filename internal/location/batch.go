package location

import (
	"proofview/internal/diag"
)

// CheckBatch rejects a batch of file names that mixes absolute and relative
// paths. Builtin markers are ignored.
func CheckBatch(paths []string) error {
	var firstAbs, firstRel string
	for _, p := range paths {
		if p == "" || IsBuiltin(p) {
			continue
		}
		if IsAbs(p) {
			if firstAbs == "" {
				firstAbs = p
			}
		} else if firstRel == "" {
			firstRel = p
		}
		if firstAbs != "" && firstRel != "" {
			return diag.Errorf(diag.ConPathMixing, firstRel,
				"relative path alongside absolute path %s", firstAbs)
		}
	}
	return nil
}
