package cost

import (
	"math"
	"testing"

	"github.com/thep200/github-frontier/internal/model"
)

func TestPerItem(t *testing.T) {
	e := NewEstimator(Shape{NeighborSets: 2, UsersPerPage: 50, ReposPerUser: 10, LanguagesFirst: 20})
	if got := e.PerItem(model.OpExpand); got != 102 {
		t.Fatalf("expand per item = %d, want 102", got)
	}
	if got := e.PerItem(model.OpFetch); got != 2 {
		t.Fatalf("fetch per item = %d, want 2", got)
	}
	if got := e.Estimate(model.OpFetch, 30); got != 60 {
		t.Fatalf("fetch estimate = %d, want 60", got)
	}
	if got := e.Estimate(model.OpFetch, 0); got != 0 {
		t.Fatalf("empty estimate = %d, want 0", got)
	}

	e.WithMultiplier(1.5)
	if got := e.PerItem(model.OpFetch); got != 3 {
		t.Fatalf("calibrated fetch per item = %d, want 3", got)
	}
	e.WithMultiplier(-1)
	if got := e.PerItem(model.OpFetch); got != 3 {
		t.Fatalf("non-positive multiplier must be ignored, got %d", got)
	}
}

func TestBatchSize(t *testing.T) {
	tests := []struct {
		name                           string
		spendable, scale, perItem, max int
		want                           int
	}{
		{"plenty clamps to max", 4998, 100, 2, 100, 100},
		{"one point", 1, 100, 2, 100, 49},
		{"margin eats last item", 1, 100, 100, 100, 0},
		{"nothing spendable", 0, 100, 2, 100, 0},
		{"zero max", 10, 100, 2, 0, 0},
		{"bad per item", 10, 100, 0, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BatchSize(tt.spendable, tt.scale, tt.perItem, tt.max); got != tt.want {
				t.Fatalf("BatchSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBatchSizeFitsSpendable(t *testing.T) {
	e := NewEstimator(Shape{NeighborSets: 2, UsersPerPage: 50})
	for spendable := 0; spendable < 300; spendable++ {
		n := BatchSize(spendable, 100, e.PerItem(model.OpFetch), 100)
		if e.Estimate(model.OpFetch, n) > spendable*100 {
			t.Fatalf("batch %d does not fit %d spendable points", n, spendable)
		}
	}
}

func TestCalibrate(t *testing.T) {
	samples := []model.QueryCost{
		{Kind: "fetch", Guess: 100, NormalizedActual: 100},
		{Kind: "fetch", Guess: 100, NormalizedActual: 200},
		{Kind: "expand", Guess: 102, NormalizedActual: 100},
		{Kind: "expand", Guess: 0, NormalizedActual: 100},
	}
	got := Calibrate(samples)

	fetch := got[model.OpFetch]
	if fetch.Samples != 2 || math.Abs(fetch.Multiplier-1.5) > 1e-9 || fetch.Underrated != 1 {
		t.Fatalf("unexpected fetch calibration %+v", fetch)
	}
	expand := got[model.OpExpand]
	if expand.Samples != 1 || expand.Underrated != 0 {
		t.Fatalf("unexpected expand calibration %+v", expand)
	}
	if expand.String() == "" {
		t.Fatalf("expected printable calibration")
	}
}
