// Package domain models air-quality readings for points on a map.
//
// # Data Source
//
// Readings come from a remote scoring service that accepts a latitude and
// longitude and returns a canonical air-quality index (CPCB AQI), an optional
// model score, and a set of pollutant concentrations:
//
//	GET /predict?lat=28.6139&lon=77.209
//	{"cpcb_aqi": 187.4, "ml_aqi": 171.2, "pollutants": {"pm2_5": 92.1, "pm10": 160.3, ...}}
//
// Pollutant keys belong to a fixed set (pm2_5, pm10, no2, so2, co, o3, no,
// nh3). Keys may be missing or null; those are unknown and are omitted from
// [Pollutants], never stored as zero.
//
// # Severity Classification
//
// The canonical index is mapped onto an ordered table of bands with ascending
// inclusive upper bounds. The first band whose bound is at least the index
// wins; anything above every finite bound lands in the last band:
//
//	≤50 Good | ≤100 Satisfactory | ≤200 Moderate | ≤300 Poor | ≤400 Very Poor | Severe
//
// Negative and NaN indices are clamped to zero and therefore classify as the
// lowest band. +Inf classifies as the last band. The severity is attached once
// when a [LocationResult] is built and is never recomputed.
//
// # Aggregates
//
// [Summarize] derives the mean, worst and best results from an
// arrival-ordered slice. Ties on the extreme values go to the earliest
// arrival, so the output is deterministic for a given order.
//
// # Reference Locations
//
// [DefaultReferenceLocations] lists the fixed set of Indian cities shown on the
// map at startup. Identifiers are stable strings "1" through "30".
package domain
