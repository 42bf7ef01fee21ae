package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ParseReferenceLocations decodes a JSON array of reference locations and
// checks that each entry has a unique non-empty ID and valid coordinates.
func ParseReferenceLocations(r io.Reader) ([]ReferenceLocation, error) {
	var locs []ReferenceLocation
	if err := json.NewDecoder(r).Decode(&locs); err != nil {
		return nil, fmt.Errorf("decode reference locations: %w", err)
	}
	if len(locs) == 0 {
		return nil, errors.New("reference locations: empty list")
	}

	seen := make(map[string]struct{}, len(locs))
	for i, l := range locs {
		if l.ID == "" {
			return nil, fmt.Errorf("reference location %d: missing id", i)
		}
		if _, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("reference location %d: duplicate id %q", i, l.ID)
		}
		seen[l.ID] = struct{}{}
		if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
			return nil, fmt.Errorf("reference location %q: coordinates out of range", l.ID)
		}
	}
	return locs, nil
}
