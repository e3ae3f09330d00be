package cost

import (
	"fmt"

	"github.com/thep200/github-frontier/internal/model"
)

// Calibration summarises cost samples of one operation kind.
type Calibration struct {
	Kind       model.OpKind
	Samples    int
	GuessTotal int
	ActualMean float64
	Multiplier float64
	Underrated int
}

func (c Calibration) String() string {
	return fmt.Sprintf("%s: samples=%d actual_mean=%.1f multiplier=%.3f underestimated=%d",
		c.Kind, c.Samples, c.ActualMean, c.Multiplier, c.Underrated)
}

// Calibrate computes sum(actual)/sum(guess) per kind. The result is meant for a
// human to put back into the config, the crawl loop never reads samples.
func Calibrate(samples []model.QueryCost) map[model.OpKind]Calibration {
	type acc struct {
		guess, actual, n, under int
	}
	byKind := map[model.OpKind]*acc{}
	for _, s := range samples {
		if s.Guess <= 0 {
			continue
		}
		kind := model.OpKind(s.Kind)
		a, ok := byKind[kind]
		if !ok {
			a = &acc{}
			byKind[kind] = a
		}
		a.guess += s.Guess
		a.actual += s.NormalizedActual
		a.n++
		if s.NormalizedActual > s.Guess {
			a.under++
		}
	}

	out := make(map[model.OpKind]Calibration, len(byKind))
	for kind, a := range byKind {
		out[kind] = Calibration{
			Kind:       kind,
			Samples:    a.n,
			GuessTotal: a.guess,
			ActualMean: float64(a.actual) / float64(a.n),
			Multiplier: float64(a.actual) / float64(a.guess),
			Underrated: a.under,
		}
	}
	return out
}
