package payments

import "net"

// Safaricom publishes the address ranges its callback traffic originates
// from. Origin matching is an allowlist heuristic, not cryptographic
// verification; Daraja offers no callback signature to verify instead.
var safaricomCallbackCIDRs = []string{
	"196.201.212.0/24",
	"196.201.213.0/24",
	"196.201.214.0/24",
}

var safaricomNets []*net.IPNet

func init() {
	for _, cidr := range safaricomCallbackCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid safaricom callback CIDR: " + cidr)
		}
		safaricomNets = append(safaricomNets, network)
	}
}

// IsAllowlistedCallbackIP reports whether ip belongs to a known Safaricom
// callback range.
func IsAllowlistedCallbackIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range safaricomNets {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}
