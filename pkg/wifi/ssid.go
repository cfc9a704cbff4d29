package wifi

import "strings"

// Onboardable SSID markers.
const (
	OnboardablePrefix = "AJ_"
	OnboardableSuffix = "_AJ"
)

// NormalizeSSID strips the wrapping quotes some Wi-Fi stacks put around SSIDs.
func NormalizeSSID(ssid string) string {
	if len(ssid) >= 2 && strings.HasPrefix(ssid, `"`) && strings.HasSuffix(ssid, `"`) {
		return ssid[1 : len(ssid)-1]
	}
	return ssid
}

// SSIDEqual compares two SSIDs after normalization.
func SSIDEqual(a, b string) bool {
	return NormalizeSSID(a) == NormalizeSSID(b)
}

// IsOnboardable reports whether the SSID belongs to a device soft AP.
func IsOnboardable(ssid string) bool {
	s := NormalizeSSID(ssid)
	return strings.HasPrefix(s, OnboardablePrefix) || strings.HasSuffix(s, OnboardableSuffix)
}

// Classification partitions a scan into device soft APs and ordinary networks.
type Classification struct {
	Onboardable []Network
	Targets     []Network
}

// Classify deduplicates scan results by normalized SSID (first occurrence
// wins), skips hidden networks and partitions the rest.
func Classify(results []ScanResult) Classification {
	var c Classification
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		n := r.Network()
		if n.SSID == "" {
			continue
		}
		if _, dup := seen[n.SSID]; dup {
			continue
		}
		seen[n.SSID] = struct{}{}
		if IsOnboardable(n.SSID) {
			c.Onboardable = append(c.Onboardable, n)
		} else {
			c.Targets = append(c.Targets, n)
		}
	}
	return c
}
