package bucketing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

type OptionsType struct {
	ZeroExtend bool
}

var (
	numericPart   = regexp.MustCompile(`^\d+$`)
	semverPattern = regexp.MustCompile(`^v?\d+(\.\d+)*([-+].*)?$`)
)

func hasValidParts(parts []string) bool {
	for _, part := range parts {
		if !numericPart.MatchString(part) {
			return false
		}
	}
	return len(parts) > 0
}

// versionCompare returns -1, 0 or 1, or NaN when either version is malformed.
func versionCompare(v1, v2 string, options OptionsType) float64 {
	v1parts := strings.Split(v1, ".")
	v2parts := strings.Split(v2, ".")
	if !hasValidParts(v1parts) || !hasValidParts(v2parts) {
		return math.NaN()
	}
	if options.ZeroExtend {
		for len(v1parts) < len(v2parts) {
			v1parts = append(v1parts, "0")
		}
		for len(v2parts) < len(v1parts) {
			v2parts = append(v2parts, "0")
		}
	}

	for i, v1p := range v1parts {
		if len(v2parts) == i {
			return 1
		}
		v2p := v2parts[i]
		n1, err1 := strconv.ParseFloat(v1p, 64)
		n2, err2 := strconv.ParseFloat(v2p, 64)
		if err1 != nil || err2 != nil {
			return math.NaN()
		}
		if n1 == n2 {
			continue
		} else if n1 > n2 {
			return 1
		}
		return -1
	}
	if len(v1parts) != len(v2parts) {
		return -1
	}
	return 0
}

// normalizeVersion drops the leading v and any pre-release or build suffix,
// eg. v1.2.3-beta+5 becomes 1.2.3.
func normalizeVersion(version string) string {
	if i := strings.IndexAny(version, "-+"); i >= 0 {
		version = version[:i]
	}
	return strings.TrimPrefix(version, "v")
}

func isValidSemver(version string) bool {
	return semverPattern.MatchString(version)
}

// compareSemver returns NaN when either side is not a version.
func compareSemver(userVersion, conditionVersion string) float64 {
	if !isValidSemver(userVersion) || !isValidSemver(conditionVersion) {
		return math.NaN()
	}
	return versionCompare(normalizeVersion(userVersion), normalizeVersion(conditionVersion), OptionsType{ZeroExtend: true})
}
