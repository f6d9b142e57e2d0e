package payments

import "testing"

func TestIsAllowlistedCallbackIP(t *testing.T) {
	allowed := []string{
		"196.201.212.127",
		"196.201.213.114",
		"196.201.214.200",
	}
	for _, ip := range allowed {
		if !IsAllowlistedCallbackIP(ip) {
			t.Fatalf("expected %s to be allowlisted", ip)
		}
	}

	denied := []string{
		"196.201.215.1",
		"10.0.0.1",
		"41.90.64.15",
		"",
		"not-an-ip",
	}
	for _, ip := range denied {
		if IsAllowlistedCallbackIP(ip) {
			t.Fatalf("expected %s to be denied", ip)
		}
	}
}
