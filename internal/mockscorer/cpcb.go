// Package mockscorer is a local stand-in for the scoring service. It serves
// /predict with pollutant values derived deterministically from the
// coordinates and computes the canonical index with the CPCB sub-index method.
package mockscorer

import (
	"math"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
)

// breakpoint maps a concentration range onto an index range.
type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

// CPCB breakpoints. CO is in mg/m3, everything else in µg/m3.
var breakpoints = map[domain.Pollutant][]breakpoint{
	domain.PM25: {{0, 30, 0, 50}, {30, 60, 51, 100}, {60, 90, 101, 200}, {90, 120, 201, 300}, {120, 250, 301, 400}, {250, 400, 401, 500}},
	domain.PM10: {{0, 50, 0, 50}, {50, 100, 51, 100}, {100, 250, 101, 200}, {250, 350, 201, 300}, {350, 430, 301, 400}, {430, 500, 401, 500}},
	domain.NO2:  {{0, 40, 0, 50}, {40, 80, 51, 100}, {80, 180, 101, 200}, {180, 280, 201, 300}, {280, 400, 301, 400}, {400, 500, 401, 500}},
	domain.SO2:  {{0, 40, 0, 50}, {40, 80, 51, 100}, {80, 380, 101, 200}, {380, 800, 201, 300}, {800, 1600, 301, 400}, {1600, 2000, 401, 500}},
	domain.CO:   {{0, 1, 0, 50}, {1, 2, 51, 100}, {2, 10, 101, 200}, {10, 17, 201, 300}, {17, 34, 301, 400}, {34, 50, 401, 500}},
}

const maxSubIndex = 500

// subIndex interpolates conc within the first matching band. Concentrations
// outside every band score the maximum.
func subIndex(conc float64, bps []breakpoint) float64 {
	for _, bp := range bps {
		if conc >= bp.cLow && conc <= bp.cHigh {
			return bp.iLow + (bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)*(conc-bp.cLow)
		}
	}
	return maxSubIndex
}

// CPCBIndex returns the highest sub-index across PM2.5, PM10, NO2, SO2 and CO,
// rounded to two decimals. Missing pollutants count as zero. CO is expected
// in µg/m3.
func CPCBIndex(p domain.Pollutants) float64 {
	var highest float64
	for pollutant, bps := range breakpoints {
		conc := p[pollutant]
		if pollutant == domain.CO {
			conc /= 1000
		}
		highest = math.Max(highest, subIndex(conc, bps))
	}
	return math.Round(highest*100) / 100
}
