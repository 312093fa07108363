package utils

import "strings"

// MinFallbackLabels is the label count at which host lookups stop widening.
const MinFallbackLabels = 2

func LabelCount(host string) int {
	if host == "" {
		return 0
	}
	return strings.Count(host, ".") + 1
}

// ParentDomain strips the leftmost label of host. It reports false when host
// has MinFallbackLabels labels or fewer, in which case host is returned as is.
func ParentDomain(host string) (string, bool) {
	if LabelCount(host) <= MinFallbackLabels {
		return host, false
	}
	return host[strings.Index(host, ".")+1:], true
}
