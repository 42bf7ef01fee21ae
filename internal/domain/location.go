package domain

import (
	"fmt"
	"maps"
	"time"
)

// Pollutant is a symbol from the fixed set reported by the scoring service.
type Pollutant string

const (
	PM25 Pollutant = "pm2_5"
	PM10 Pollutant = "pm10"
	NO2  Pollutant = "no2"
	SO2  Pollutant = "so2"
	CO   Pollutant = "co"
	O3   Pollutant = "o3"
	NO   Pollutant = "no"
	NH3  Pollutant = "nh3"
)

// AllPollutants lists the canonical pollutant set in display order.
var AllPollutants = []Pollutant{PM25, PM10, NO2, SO2, CO, O3, NO, NH3}

// Known reports whether p belongs to the canonical set.
func (p Pollutant) Known() bool {
	switch p {
	case PM25, PM10, NO2, SO2, CO, O3, NO, NH3:
		return true
	}
	return false
}

// Pollutants maps a pollutant to its concentration. Unknown values are absent.
type Pollutants map[Pollutant]float64

// ReferenceLocation is one of the fixed points fetched by the batch run.
type ReferenceLocation struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Reading is a decoded scoring response before identity and severity are attached.
type Reading struct {
	Index          float64
	SecondaryIndex *float64
	Pollutants     Pollutants
}

// LocationResult is the outcome of one successful scoring query.
// Values are never modified after construction; use Identify to derive a
// copy carrying a different identity.
type LocationResult struct {
	ID             string     `json:"id,omitempty"`
	Name           string     `json:"name"`
	Latitude       float64    `json:"lat"`
	Longitude      float64    `json:"lon"`
	Index          float64    `json:"aqi"`
	SecondaryIndex *float64   `json:"ml_aqi,omitempty"`
	Pollutants     Pollutants `json:"pollutants"`
	Severity       Severity   `json:"severity"`
	FetchedAt      time.Time  `json:"fetched_at"`
}

// NewLocationResult builds a result for the given coordinates, stamping it with
// the package clock. The name defaults to the coordinate label.
func NewLocationResult(lat, lon float64, r Reading, sev Severity) LocationResult {
	res := LocationResult{
		Name:       CoordinateName(lat, lon),
		Latitude:   lat,
		Longitude:  lon,
		Index:      r.Index,
		Pollutants: clonePollutants(r.Pollutants),
		Severity:   sev,
		FetchedAt:  clock.Now().UTC(),
	}
	if r.SecondaryIndex != nil {
		v := *r.SecondaryIndex
		res.SecondaryIndex = &v
	}
	return res
}

// Identify returns a copy of r labelled with id and name.
func (r LocationResult) Identify(id, name string) LocationResult {
	out := r
	out.ID = id
	out.Name = name
	out.Pollutants = clonePollutants(r.Pollutants)
	if r.SecondaryIndex != nil {
		v := *r.SecondaryIndex
		out.SecondaryIndex = &v
	}
	return out
}

// CoordinateName is the display label used for ad-hoc points.
func CoordinateName(lat, lon float64) string {
	return fmt.Sprintf("%.3f°N, %.3f°E", lat, lon)
}

func clonePollutants(p Pollutants) Pollutants {
	if p == nil {
		return Pollutants{}
	}
	return maps.Clone(p)
}

// DefaultReferenceLocations is the built-in set of cities shown on the map.
var DefaultReferenceLocations = []ReferenceLocation{
	{ID: "1", Name: "Delhi", Latitude: 28.6139, Longitude: 77.2090},
	{ID: "2", Name: "Mumbai", Latitude: 19.0760, Longitude: 72.8777},
	{ID: "3", Name: "Bengaluru", Latitude: 12.9716, Longitude: 77.5946},
	{ID: "4", Name: "Chennai", Latitude: 13.0827, Longitude: 80.2707},
	{ID: "5", Name: "Hyderabad", Latitude: 17.3850, Longitude: 78.4867},
	{ID: "6", Name: "Kolkata", Latitude: 22.5726, Longitude: 88.3639},
	{ID: "7", Name: "Pune", Latitude: 18.5204, Longitude: 73.8567},
	{ID: "8", Name: "Ahmedabad", Latitude: 23.0225, Longitude: 72.5714},
	{ID: "9", Name: "Jaipur", Latitude: 26.9124, Longitude: 75.7873},
	{ID: "10", Name: "Lucknow", Latitude: 26.8467, Longitude: 80.9462},
	{ID: "11", Name: "Chandigarh", Latitude: 30.7333, Longitude: 76.7794},
	{ID: "12", Name: "Amritsar", Latitude: 31.6340, Longitude: 74.8723},
	{ID: "13", Name: "Surat", Latitude: 21.1702, Longitude: 72.8311},
	{ID: "14", Name: "Kanpur", Latitude: 26.4499, Longitude: 80.3319},
	{ID: "15", Name: "Nagpur", Latitude: 21.1458, Longitude: 79.0882},
	{ID: "16", Name: "Bhopal", Latitude: 23.2599, Longitude: 77.4126},
	{ID: "17", Name: "Indore", Latitude: 22.7196, Longitude: 75.8577},
	{ID: "18", Name: "Visakhapatnam", Latitude: 17.6868, Longitude: 83.2185},
	{ID: "19", Name: "Patna", Latitude: 25.5941, Longitude: 85.1376},
	{ID: "20", Name: "Varanasi", Latitude: 25.3176, Longitude: 82.9739},
	{ID: "21", Name: "Agra", Latitude: 27.1767, Longitude: 78.0081},
	{ID: "22", Name: "Guwahati", Latitude: 26.1445, Longitude: 91.7362},
	{ID: "23", Name: "Bhubaneswar", Latitude: 20.2961, Longitude: 85.8245},
	{ID: "24", Name: "Kochi", Latitude: 9.9312, Longitude: 76.2673},
	{ID: "25", Name: "Thiruvananthapuram", Latitude: 8.5241, Longitude: 76.9366},
	{ID: "26", Name: "Coimbatore", Latitude: 11.0168, Longitude: 76.9558},
	{ID: "27", Name: "Ranchi", Latitude: 23.3441, Longitude: 85.3096},
	{ID: "28", Name: "Goa", Latitude: 15.2993, Longitude: 74.1240},
	{ID: "29", Name: "Srinagar", Latitude: 34.0837, Longitude: 74.7973},
	{ID: "30", Name: "Dehradun", Latitude: 30.3165, Longitude: 78.0322},
}
