package domain

// Summary holds rolling aggregates over an arrival-ordered set of results.
// Mean, Worst and Best are nil when Count is zero.
type Summary struct {
	Count int             `json:"count"`
	Mean  *float64        `json:"mean,omitempty"`
	Worst *LocationResult `json:"worst,omitempty"`
	Best  *LocationResult `json:"best,omitempty"`
}

// Summarize computes the mean index and the worst and best results. Ties on
// the extremes go to the earliest element of results.
func Summarize(results []LocationResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	var sum float64
	worst, best := 0, 0
	for i, r := range results {
		sum += r.Index
		if r.Index > results[worst].Index {
			worst = i
		}
		if r.Index < results[best].Index {
			best = i
		}
	}

	mean := sum / float64(len(results))
	w := results[worst].Identify(results[worst].ID, results[worst].Name)
	b := results[best].Identify(results[best].ID, results[best].Name)
	return Summary{
		Count: len(results),
		Mean:  &mean,
		Worst: &w,
		Best:  &b,
	}
}
