// Package kver classifies RHEL kernel version strings and derives the RPM
// requirements a kernel module package needs for them.
package kver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Stream is the kind of kernel version.
type Stream int

const (
	// Invalid versions match neither accepted pattern.
	Invalid Stream = iota
	// YStream versions look like 3.10.0-123.el7.
	YStream
	// ZStream versions carry extra build components: 3.10.0-123.4.el7.
	ZStream
)

func (s Stream) String() string {
	switch s {
	case YStream:
		return "y-stream"
	case ZStream:
		return "z-stream"
	default:
		return "invalid"
	}
}

const (
	nvrPattern   = `([0-9])\.([0-9]{1,2})\.([0-9]{1,2})-([0-9]{1,4})`
	zPartPattern = `((?:\.[0-9]{1,3})+)`
	distPattern  = `\.(el(?:[6-9]|[1-9][0-9]))`
)

var (
	yStreamRe = regexp.MustCompile("^" + nvrPattern + distPattern + "$")
	zStreamRe = regexp.MustCompile("^" + nvrPattern + zPartPattern + distPattern + "$")
)

// EParse is returned for versions matching neither stream pattern.
var EParse = errors.New("invalid kernel version")

// Version is a parsed kernel version.
type Version struct {
	Major, Minor, Patch string
	Build               int
	// ZPart holds the extra z-stream components including the leading dot,
	// e.g. ".4.1". Empty for y-stream versions.
	ZPart  string
	Dist   string
	Stream Stream
}

// Classify returns the stream of v without parsing it further.
func Classify(v string) Stream {
	switch {
	case yStreamRe.MatchString(v):
		return YStream
	case zStreamRe.MatchString(v):
		return ZStream
	default:
		return Invalid
	}
}

// Parse parses a kernel version string.
func Parse(v string) (Version, error) {
	var m []string
	stream := YStream
	if m = yStreamRe.FindStringSubmatch(v); m == nil {
		stream = ZStream
		if m = zStreamRe.FindStringSubmatch(v); m == nil {
			return Version{}, fmt.Errorf("%w: %q", EParse, v)
		}
	}

	build, err := strconv.Atoi(m[4])
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", EParse, v)
	}

	ver := Version{
		Major:  m[1],
		Minor:  m[2],
		Patch:  m[3],
		Build:  build,
		Stream: stream,
	}
	if stream == ZStream {
		ver.ZPart, ver.Dist = m[5], m[6]
	} else {
		ver.Dist = m[5]
	}

	return ver, nil
}

// String formats the version back into its canonical form.
func (v Version) String() string {
	return fmt.Sprintf("%s.%s.%s-%d%s.%s", v.Major, v.Minor, v.Patch, v.Build, v.ZPart, v.Dist)
}

// NextBuild returns a y-stream version with the build number incremented.
func (v Version) NextBuild() Version {
	next := v
	next.Build++
	next.ZPart = ""
	next.Stream = YStream
	return next
}

// Requires returns the spec file "Requires:" lines for a module built
// against v. A y-stream version allows any kernel of the same minor release;
// a z-stream version pins the exact kernel.
func (v Version) Requires() []string {
	if v.Stream == ZStream {
		return []string{"Requires:\tkernel = " + v.String()}
	}
	return []string{
		"Requires:\tkernel >= " + v.String(),
		"Requires:\tkernel < " + v.NextBuild().String(),
	}
}

// Requires parses v and joins its requirement lines. It returns an empty
// string and EParse for invalid versions.
func Requires(v string) (string, error) {
	ver, err := Parse(v)
	if err != nil {
		return "", err
	}
	return strings.Join(ver.Requires(), "\n"), nil
}
