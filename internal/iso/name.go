package iso

import (
	"strings"

	"github.com/redhat/ddiskit/internal/config"
)

// Name derives the image file name from the module identity:
// dd-<name>-<version>-<release>.<dist>.iso. DefaultName is returned when
// there is no module config or any part is missing.
func Name(s *config.Store, haveModule bool) string {
	if !haveModule {
		return DefaultName
	}

	parts := make([]string, 0, 4)
	for _, key := range []string{"module_name", "module_version", "module_rpm_release", "rpm_dist"} {
		v, ok := s.Lookup(key, config.Section("spec_file"))
		if !ok {
			return DefaultName
		}
		parts = append(parts, v)
	}

	return "dd-" + strings.Join(parts[:3], "-") + "." + parts[3] + ".iso"
}
