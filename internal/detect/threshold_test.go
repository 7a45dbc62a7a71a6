package detect

import (
	"testing"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

func TestEvaluate(t *testing.T) {
	th := retail.Threshold{ZScore: 2.5, PercentDeviation: 30}

	tests := []struct {
		name         string
		actual       float64
		expected     float64
		stdDev       float64
		wantFlagged  bool
		wantSeverity retail.Severity
	}{
		{
			name:   "within both thresholds",
			actual: 52, expected: 50, stdDev: 10,
			wantFlagged:  false,
			wantSeverity: retail.SeverityLow,
		},
		{
			// Inventory dropped to a tenth of the baseline: z = -4.5 sits
			// between 1.5x and 2x the z threshold, but the 90% deviation
			// blows past twice the percent threshold.
			name:   "stock collapse",
			actual: 5, expected: 50, stdDev: 10,
			wantFlagged:  true,
			wantSeverity: retail.SeverityCritical,
		},
		{
			name:   "z signal alone flags",
			actual: 227, expected: 200, stdDev: 10, // z=2.7, pct=13.5%
			wantFlagged:  true,
			wantSeverity: retail.SeverityMedium,
		},
		{
			name:   "percent signal alone flags",
			actual: 66, expected: 50, stdDev: 100, // z=0.16, pct=32%
			wantFlagged:  true,
			wantSeverity: retail.SeverityMedium,
		},
		{
			name:   "high tier via percent",
			actual: 73, expected: 50, stdDev: 100, // pct=46% > 1.5*30
			wantFlagged:  true,
			wantSeverity: retail.SeverityHigh,
		},
		{
			name:   "zero stddev mutes z signal",
			actual: 55, expected: 50, stdDev: 0, // pct=10%, below threshold
			wantFlagged:  false,
			wantSeverity: retail.SeverityLow,
		},
		{
			name:   "zero expected mutes percent signal",
			actual: 30, expected: 0, stdDev: 10, // z=3 carries it
			wantFlagged:  true,
			wantSeverity: retail.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := evaluate(tt.actual, tt.expected, tt.stdDev, th)
			if ev.Flagged != tt.wantFlagged {
				t.Errorf("Flagged = %v, want %v (z=%v pct=%v)",
					ev.Flagged, tt.wantFlagged, ev.ZScore, ev.PercentDeviation)
			}
			if ev.Severity != tt.wantSeverity {
				t.Errorf("Severity = %v, want %v", ev.Severity, tt.wantSeverity)
			}
		})
	}
}

// A larger deviation never yields a strictly lower severity.
func TestClassify_Monotonic(t *testing.T) {
	th := retail.Threshold{ZScore: 2, PercentDeviation: 30}

	prevRank := 0
	for z := 0.0; z <= 10; z += 0.25 {
		sev := classify(z, 0, th)
		if sev.Rank() < prevRank {
			t.Fatalf("severity dropped from rank %d to %d at z=%v", prevRank, sev.Rank(), z)
		}
		prevRank = sev.Rank()
	}

	prevRank = 0
	for pct := 0.0; pct <= 200; pct += 5 {
		sev := classify(0, pct, th)
		if sev.Rank() < prevRank {
			t.Fatalf("severity dropped from rank %d to %d at pct=%v", prevRank, sev.Rank(), pct)
		}
		prevRank = sev.Rank()
	}
}

func TestClassify_Tiers(t *testing.T) {
	th := retail.Threshold{ZScore: 2, PercentDeviation: 30}

	tests := []struct {
		z, pct float64
		want   retail.Severity
	}{
		{1.9, 29, retail.SeverityLow},
		{2.1, 0, retail.SeverityMedium},
		{3.1, 0, retail.SeverityHigh},
		{4.1, 0, retail.SeverityCritical},
		{0, 31, retail.SeverityMedium},
		{0, 46, retail.SeverityHigh},
		{0, 61, retail.SeverityCritical},
		{2.1, 61, retail.SeverityCritical}, // OR across signals
	}
	for _, tt := range tests {
		if got := classify(tt.z, tt.pct, th); got != tt.want {
			t.Errorf("classify(%v, %v) = %v, want %v", tt.z, tt.pct, got, tt.want)
		}
	}
}

func TestMeanStdDev(t *testing.T) {
	mean, std := meanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Errorf("mean = %v, want 5", mean)
	}
	if std != 2 {
		t.Errorf("stddev = %v, want 2", std)
	}

	mean, std = meanStdDev(nil)
	if mean != 0 || std != 0 {
		t.Errorf("empty input = (%v, %v), want (0, 0)", mean, std)
	}
}

func TestActions_Escalation(t *testing.T) {
	base := Actions(retail.DomainInventory, -50, retail.SeverityMedium)
	urgent := Actions(retail.DomainInventory, -50, retail.SeverityCritical)
	if len(urgent) <= len(base) {
		t.Errorf("critical severity should add actions: %d vs %d", len(urgent), len(base))
	}

	below := Actions(retail.DomainPrice, -10, retail.SeverityMedium)
	above := Actions(retail.DomainPrice, 10, retail.SeverityMedium)
	if len(below) == 0 || len(above) == 0 {
		t.Fatal("both directions should suggest actions")
	}
	if below[0] == above[0] {
		t.Error("price direction should change the suggestions")
	}
}
