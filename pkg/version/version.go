// Package version provides onboarding interface version parsing and
// compatibility checks.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the onboarding interface version implemented by this library.
const Current = "1.0"

// Build is the program version, set at link time with
// -ldflags "-X github.com/alljoyn/services-onboarding/pkg/version.Build=v1.2.3".
var Build = "dev"

// ErrIncompatible is returned for a version with a different major number.
var ErrIncompatible = errors.New("version: incompatible interface version")

// InterfaceVersion represents a parsed "major.minor" interface version.
type InterfaceVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (InterfaceVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return InterfaceVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return InterfaceVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return InterfaceVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return InterfaceVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v InterfaceVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v InterfaceVersion) Compatible(other InterfaceVersion) bool {
	return v.Major == other.Major
}

// Supported checks an announced version against Current. Devices that do
// not announce a version are assumed to speak Current.
func Supported(announced string) error {
	if announced == "" {
		return nil
	}
	v, err := Parse(announced)
	if err != nil {
		return err
	}
	current, _ := Parse(Current)
	if !current.Compatible(v) {
		return fmt.Errorf("%w: device %s, controller %s", ErrIncompatible, v, current)
	}
	return nil
}
