package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		delayHours  float64
		want        RiskTier
	}{
		{"high probability alone", 0.8, 0, TierCritical},
		{"long delay alone", 0.1, 50, TierCritical},
		{"critical probability boundary", 0.75, 0, TierCritical},
		{"critical hours boundary", 0, 48, TierCritical},
		{"high probability", 0.65, 0, TierHigh},
		{"high hours", 0.1, 30, TierHigh},
		{"medium mixed", 0.5, 10, TierMedium},
		{"medium hours boundary", 0.1, 12, TierMedium},
		{"low", 0.2, 5, TierLow},
		{"zero", 0, 0, TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TierFor(tt.probability, tt.delayHours))
		})
	}
}

func TestBatchFilterMatches(t *testing.T) {
	r := &record.ServiceRecord{
		ServiceID:   "SRV-2024-000001",
		ServiceCode: "CAT-B-001",
		District:    "Guntur",
		Mandal:      "Urban",
		Category:    record.CategoryB,
	}

	assert.True(t, BatchFilter{}.Matches(r))
	assert.True(t, BatchFilter{District: "Guntur", Category: record.CategoryB}.Matches(r))
	assert.False(t, BatchFilter{District: "Nellore"}.Matches(r))
	assert.False(t, BatchFilter{ServiceID: "SRV-2024-999999"}.Matches(r))
	assert.False(t, BatchFilter{Mandal: "Rural"}.Matches(r))
}
