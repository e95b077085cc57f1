package usecase

import "regexp"

// CapabilityFunc decides from a user agent whether the caller may use the classifier path.
type CapabilityFunc func(userAgent string) bool

// NewUserAgentCapability treats any user agent matching one of patterns as incapable.
// An empty user agent (server-side caller) is capable.
func NewUserAgentCapability(patterns []*regexp.Regexp) CapabilityFunc {
	return func(userAgent string) bool {
		if userAgent == "" {
			return true
		}
		for _, p := range patterns {
			if p.MatchString(userAgent) {
				return false
			}
		}
		return true
	}
}

// AlwaysCapable is used when the classifier should run for every caller.
func AlwaysCapable(string) bool { return true }
