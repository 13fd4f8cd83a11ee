// Package tuning turns detected pitches into tuning readings: the reference
// string catalog, nearest-string matching, reading classification and the
// session that drives them from an audio source.
package tuning

import (
	"errors"
	"fmt"
	"slices"
)

// Errors
var (
	ErrEmptyCatalog  = errors.New("reference catalog is empty")
	ErrUnknownString = errors.New("unknown reference string")
)

// ReferenceString is one entry of an instrument's string set
type ReferenceString struct {
	ID          string
	Label       string
	Note        string  // e.g. "G4"
	FrequencyHz float64 // Target frequency in Hz
}

// Catalog is an ordered, non-empty, immutable set of reference strings. The
// zero value is an empty catalog and is only useful as a placeholder.
type Catalog struct {
	strings []ReferenceString
}

// NewCatalog validates entries and returns a catalog holding a copy of them.
// Every entry needs a unique non-empty ID and a positive frequency.
func NewCatalog(entries ...ReferenceString) (Catalog, error) {
	if len(entries) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	var errs []error
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		switch {
		case e.ID == "":
			errs = append(errs, fmt.Errorf("string %d: id is required", i))
		case seen[e.ID]:
			errs = append(errs, fmt.Errorf("string %d: duplicate id %q", i, e.ID))
		}
		seen[e.ID] = true
		if !(e.FrequencyHz > 0) {
			errs = append(errs, fmt.Errorf("string %d (%s): frequency must be positive, got %g", i, e.ID, e.FrequencyHz))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Catalog{}, err
	}

	return Catalog{strings: slices.Clone(entries)}, nil
}

// MustCatalog is NewCatalog for static tables; it panics on invalid entries.
func MustCatalog(entries ...ReferenceString) Catalog {
	c, err := NewCatalog(entries...)
	if err != nil {
		panic(err)
	}
	return c
}

// Strings returns a copy of the entries in catalog order
func (c Catalog) Strings() []ReferenceString {
	return slices.Clone(c.strings)
}

// Len returns the number of strings
func (c Catalog) Len() int {
	return len(c.strings)
}

// At returns the i-th string
func (c Catalog) At(i int) ReferenceString {
	return c.strings[i]
}

// Index returns the position of the string with the given id, or -1
func (c Catalog) Index(id string) int {
	return slices.IndexFunc(c.strings, func(s ReferenceString) bool {
		return s.ID == id
	})
}

// Lookup returns the string with the given id
func (c Catalog) Lookup(id string) (ReferenceString, bool) {
	i := c.Index(id)
	if i < 0 {
		return ReferenceString{}, false
	}
	return c.strings[i], true
}

// Built-in instrument presets. Strings are listed in playing order, first
// string first.
var (
	// Timple is the Canarian timple in its standard tuning (G C E A D).
	Timple = MustCatalog(
		ReferenceString{ID: "string-1", Label: "String 1 (G)", Note: "G4", FrequencyHz: 392.00},
		ReferenceString{ID: "string-2", Label: "String 2 (C)", Note: "C4", FrequencyHz: 261.63},
		ReferenceString{ID: "string-3", Label: "String 3 (E)", Note: "E4", FrequencyHz: 329.63},
		ReferenceString{ID: "string-4", Label: "String 4 (A)", Note: "A3", FrequencyHz: 220.00},
		ReferenceString{ID: "string-5", Label: "String 5 (D)", Note: "D4", FrequencyHz: 293.66},
	)

	Guitar = MustCatalog(
		ReferenceString{ID: "string-1", Label: "String 1 (E)", Note: "E4", FrequencyHz: 329.63},
		ReferenceString{ID: "string-2", Label: "String 2 (B)", Note: "B3", FrequencyHz: 246.94},
		ReferenceString{ID: "string-3", Label: "String 3 (G)", Note: "G3", FrequencyHz: 196.00},
		ReferenceString{ID: "string-4", Label: "String 4 (D)", Note: "D3", FrequencyHz: 146.83},
		ReferenceString{ID: "string-5", Label: "String 5 (A)", Note: "A2", FrequencyHz: 110.00},
		ReferenceString{ID: "string-6", Label: "String 6 (E)", Note: "E2", FrequencyHz: 82.41},
	)

	// Ukulele uses re-entrant GCEA tuning.
	Ukulele = MustCatalog(
		ReferenceString{ID: "string-1", Label: "String 1 (A)", Note: "A4", FrequencyHz: 440.00},
		ReferenceString{ID: "string-2", Label: "String 2 (E)", Note: "E4", FrequencyHz: 329.63},
		ReferenceString{ID: "string-3", Label: "String 3 (C)", Note: "C4", FrequencyHz: 261.63},
		ReferenceString{ID: "string-4", Label: "String 4 (G)", Note: "G4", FrequencyHz: 392.00},
	)
)

// Preset returns a built-in catalog by instrument name
func Preset(instrument string) (Catalog, bool) {
	switch instrument {
	case "timple":
		return Timple, true
	case "guitar":
		return Guitar, true
	case "ukulele":
		return Ukulele, true
	}
	return Catalog{}, false
}

// PresetNames lists the instruments accepted by Preset
func PresetNames() []string {
	return []string{"timple", "guitar", "ukulele"}
}
