// Package check validates a merged module configuration before anything is
// rendered or built.
package check

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redhat/ddiskit/internal/config"
	"github.com/redhat/ddiskit/internal/kver"
)

// Placeholder marks values the user is expected to fill in.
const Placeholder = "ENTER_"

// RequiredSections must be present in every module configuration.
var RequiredSections = []string{"global", "spec_file"}

// ErrCritical is returned when the configuration cannot be used.
var ErrCritical = errors.New("unrecoverable configuration error")

// Problem describes one critical finding.
type Problem struct {
	Section string
	Key     string
	Value   string
	Reason  string
}

func (p Problem) Error() string {
	if p.Key == "" {
		return fmt.Sprintf("section %q: %s", p.Section, p.Reason)
	}
	return fmt.Sprintf("%s.%s = %q: %s", p.Section, p.Key, p.Value, p.Reason)
}

// Check verifies the required sections, rejects placeholder values and
// invalid kernel versions, and repairs cosmetic issues in s in place.
//
// Every critical problem is reported at once. The returned error wraps
// ErrCritical and each Problem.
func Check(s *config.Store) error {
	var problems []error

	for _, section := range RequiredSections {
		if !s.HasSection(section) {
			problems = append(problems, Problem{Section: section, Reason: "required section not found"})
			continue
		}

		for _, key := range s.Keys(section) {
			val := s.Get(key, config.Section(section))

			switch {
			case strings.Contains(val, Placeholder):
				if key == "firmware_version" && !s.GetBool("spec_file.firmware_include").IsTrue() {
					continue
				}
				problems = append(problems, Problem{section, key, val, "default value has not been changed"})
			case key == "kernel_version":
				if p := checkKernelVersion(section, val); p != nil {
					problems = append(problems, *p)
				}
			case key == "module_build_dir":
				trimBuildDir(s, section, key, val)
			}
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			slog.Error("configuration check failed", "problem", p)
		}
		return fmt.Errorf("%w: %w", ErrCritical, errors.Join(problems...))
	}

	return nil
}

func checkKernelVersion(section, val string) *Problem {
	switch kver.Classify(val) {
	case kver.YStream:
		return nil
	case kver.ZStream:
		slog.Warn("z-stream kernel version in use, prefer a y-stream version unless there is a good reason", "kernel_version", val)
		return nil
	default:
		return &Problem{section, "kernel_version", val, "invalid kernel version, expected e.g. 3.10.0-123.el7"}
	}
}

// trimBuildDir strips one leading and one trailing slash.
func trimBuildDir(s *config.Store, section, key, val string) {
	if strings.HasPrefix(val, "/") {
		val = val[1:]
		s.Set(key, val, config.Section(section))
		slog.Warn("leading \"/\" in module_build_dir, fixed", "module_build_dir", val)
	}
	if strings.HasSuffix(val, "/") {
		val = val[:len(val)-1]
		s.Set(key, val, config.Section(section))
		slog.Warn("trailing \"/\" in module_build_dir, fixed", "module_build_dir", val)
	}
}
