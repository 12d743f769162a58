// Package version parses and orders semantic versions
// (MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]).
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/cbl/internal/apperr"
)

// Version is a parsed semantic version. Build metadata is kept for
// display but does not take part in ordering.
type Version struct {
	Major, Minor, Patch uint64
	Pre                 []string
	Build               []string
	raw                 string
}

// Parse parses s. Errors wrap apperr.ErrInvalidVersion.
func Parse(s string) (Version, error) {
	v := Version{raw: s}
	if s == "" {
		return v, invalid(s, "empty")
	}

	rest := s
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		build, err := identifiers(rest[i+1:], false)
		if err != nil {
			return v, invalid(s, "build: "+err.Error())
		}
		v.Build = build
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		pre, err := identifiers(rest[i+1:], true)
		if err != nil {
			return v, invalid(s, "pre-release: "+err.Error())
		}
		v.Pre = pre
		rest = rest[:i]
	}

	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return v, invalid(s, "want MAJOR.MINOR.PATCH")
	}
	nums := [3]*uint64{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		n, err := numeric(p)
		if err != nil {
			return v, invalid(s, err.Error())
		}
		*nums[i] = n
	}
	return v, nil
}

// MustParse is Parse for constants; it panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the text the version was parsed from.
func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if len(v.Pre) > 0 {
		s += "-" + strings.Join(v.Pre, ".")
	}
	if len(v.Build) > 0 {
		s += "+" + strings.Join(v.Build, ".")
	}
	return s
}

// Compare returns -1, 0 or +1 following semantic-versioning precedence.
func Compare(a, b Version) int {
	if c := cmpUint(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmpUint(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := cmpUint(a.Patch, b.Patch); c != 0 {
		return c
	}
	return comparePre(a.Pre, b.Pre)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// comparePre orders pre-release identifier lists. A release (no
// identifiers) sorts above any pre-release of the same core version.
func comparePre(a, b []string) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return 1
	case len(b) == 0:
		return -1
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareIdent(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

// compareIdent orders two pre-release identifiers. Numeric identifiers carry
// no leading zeros, so they are compared by length and then digit by digit,
// which holds for values beyond uint64.
func compareIdent(a, b string) int {
	aNum, bNum := isDigits(a), isDigits(b)
	switch {
	case aNum && bNum:
		if c := cmpInt(len(a), len(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(a, b)
}

func identifiers(s string, strictNumeric bool) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("empty")
	}
	ids := strings.Split(s, ".")
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("empty identifier")
		}
		for _, r := range id {
			if !isIdentRune(r) {
				return nil, fmt.Errorf("invalid character %q", r)
			}
		}
		if strictNumeric && isDigits(id) && len(id) > 1 && id[0] == '0' {
			return nil, fmt.Errorf("leading zero in %q", id)
		}
	}
	return ids, nil
}

func numeric(s string) (uint64, error) {
	if s == "" || !isDigits(s) {
		return 0, fmt.Errorf("%q is not numeric", s)
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero in %q", s)
	}
	return strconv.ParseUint(s, 10, 64)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isIdentRune(r rune) bool {
	return r == '-' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func invalid(s, reason string) error {
	return fmt.Errorf("%w %q: %s", apperr.ErrInvalidVersion, s, reason)
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt(a, b int) int {
	return cmpUint(uint64(a), uint64(b))
}
