package entitlements

import (
	"testing"

	"github.com/HappyLearnKE/HappyLearn/app/models"
)

func TestFeaturesForPlans(t *testing.T) {
	for _, plan := range []string{models.PlanMonthly, models.PlanQuarterly, models.PlanYearly} {
		f := FeaturesFor(plan)
		if !f.PremiumContent {
			t.Fatalf("plan %s must unlock premium content", plan)
		}
		if f.DailyChatMessages <= FreeFeatures().DailyChatMessages {
			t.Fatalf("plan %s must allow more chat than the free tier", plan)
		}
	}
}

func TestFeaturesForUnknownPlanIsFree(t *testing.T) {
	f := FeaturesFor("lifetime")
	if f != FreeFeatures() {
		t.Fatalf("unknown plan must fall back to free tier, got %+v", f)
	}
}
