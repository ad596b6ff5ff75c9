// pattern: Functional Core

package worktree

import (
	"regexp"
	"strings"
)

// featureNameRe is the normalized (lower-cased) form of a feature name:
// a three digit sequence number, a hyphen and a short slug.
var featureNameRe = regexp.MustCompile(`^[0-9]{3}-[a-z0-9-]{1,40}$`)

var reservedNames = map[string]bool{
	"main":   true,
	"master": true,
}

// FeatureName is a validated, lower-cased worktree name.
// The only way to obtain a non-empty FeatureName is ValidateName.
type FeatureName struct {
	value string
}

func (n FeatureName) String() string {
	return n.value
}

// IsZero reports whether n was never validated.
func (n FeatureName) IsZero() bool {
	return n.value == ""
}

// ValidateName normalizes raw by lower-casing it and checks it against the
// naming rule. Reserved names are rejected as a whole. Uniqueness is not
// checked here; it depends on the live worktree set.
func ValidateName(raw string) (FeatureName, error) {
	normalized := strings.ToLower(raw)
	if reservedNames[normalized] {
		return FeatureName{}, newError(KindReserved, "", raw,
			"name is reserved for the default branch")
	}
	if !featureNameRe.MatchString(normalized) {
		return FeatureName{}, newError(KindInvalidFormat, "", raw,
			"name must be three digits, a hyphen and 1-40 characters of a-z 0-9 -")
	}
	return FeatureName{value: normalized}, nil
}

// matchesNameFormat applies only the format rule, without the reserved
// check. Used to recognize existing worktree directories, which may have
// been created with upper-case letters.
func matchesNameFormat(dirName string) bool {
	return featureNameRe.MatchString(strings.ToLower(dirName))
}
