package dvr

import "fmt"

// ValidateName checks that name is non-empty and contains only ASCII
// alphanumerics, '_' and '-'. Every externally supplied name must pass
// here before it is used as a registry key or path component; this is
// the sole defense against path injection via the identifier.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
