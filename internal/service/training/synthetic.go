package training

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
)

// Synthetic data pools for bootstrapping and demos.
var (
	syntheticDistricts  = []string{"Visakhapatnam", "Vijayawada", "Guntur", "Nellore", "Kurnool", "Anantapur"}
	syntheticMandals    = []string{"Urban", "Rural", "Semi-Urban"}
	syntheticCategories = []record.Category{record.CategoryA, record.CategoryB, record.CategoryC}
)

// GenerateSyntheticRecords produces n completed records with a ~25% delay
// rate for bootstrapping when no real historical data exists. Delayed
// records overshoot their SLA by an exponentially distributed amount
// (mean 2 days); on-time records finish up to 24 hours early. SLA days
// are drawn from {3, 7, 15} weighted 10/70/20.
func GenerateSyntheticRecords(n int, seed int64, now time.Time) []*record.ServiceRecord {
	rng := rand.New(rand.NewSource(seed))
	baseDate := now.AddDate(0, 0, -365)
	stages := record.Stages()

	records := make([]*record.ServiceRecord, 0, n)
	for i := 0; i < n; i++ {
		submitted := baseDate.AddDate(0, 0, rng.Intn(365))
		slaDays := pickSLADays(rng)
		expected := submitted.AddDate(0, 0, slaDays)

		var actual time.Time
		var status record.Status
		if rng.Float64() < 0.25 {
			delayHours := rng.ExpFloat64() * 2 * 24
			actual = expected.Add(time.Duration(delayHours * float64(time.Hour)))
			status = record.StatusDelayed
		} else {
			actual = expected.Add(-time.Duration(rng.Intn(24)) * time.Hour)
			status = record.StatusCompleted
		}

		records = append(records, &record.ServiceRecord{
			ServiceID:          fmt.Sprintf("SRV-2024-%06d", i),
			ServiceCode:        fmt.Sprintf("CAT-B-%03d", rng.Intn(50)+1),
			ServiceName:        fmt.Sprintf("Service %d", i),
			Category:           syntheticCategories[rng.Intn(len(syntheticCategories))],
			District:           syntheticDistricts[rng.Intn(len(syntheticDistricts))],
			Mandal:             syntheticMandals[rng.Intn(len(syntheticMandals))],
			SubmittedAt:        submitted,
			CurrentStage:       stages[rng.Intn(len(stages))],
			Status:             status,
			SLADays:            slaDays,
			ExpectedCompletion: expected,
			ActualCompletion:   &actual,
		})
	}
	return records
}

func pickSLADays(rng *rand.Rand) int {
	switch p := rng.Float64(); {
	case p < 0.1:
		return 3
	case p < 0.8:
		return 7
	default:
		return 15
	}
}
