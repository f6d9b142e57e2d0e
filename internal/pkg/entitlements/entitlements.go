package entitlements

import (
	"github.com/HappyLearnKE/HappyLearn/app/models"
)

// Features describes what a paid plan unlocks beyond the free tier.
type Features struct {
	PremiumContent    bool `json:"premium_content"`
	DailyChatMessages int  `json:"daily_chat_messages"`
	OfflineDownloads  bool `json:"offline_downloads"`
}

// free-tier baseline for accounts without an active subscription
var freeFeatures = Features{
	PremiumContent:    false,
	DailyChatMessages: 20,
	OfflineDownloads:  false,
}

// FeaturesFor maps a plan type to its feature set. Unknown or empty plans get
// the free tier.
func FeaturesFor(planType string) Features {
	switch planType {
	case models.PlanMonthly:
		return Features{PremiumContent: true, DailyChatMessages: 200}
	case models.PlanQuarterly:
		return Features{PremiumContent: true, DailyChatMessages: 300, OfflineDownloads: true}
	case models.PlanYearly:
		return Features{PremiumContent: true, DailyChatMessages: 500, OfflineDownloads: true}
	default:
		return freeFeatures
	}
}

// FreeFeatures returns the baseline for accounts without a subscription.
func FreeFeatures() Features {
	return freeFeatures
}
