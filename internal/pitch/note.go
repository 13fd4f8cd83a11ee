package pitch

import (
	"fmt"
	"math"
)

// Note represents a musical note
type Note struct {
	Name      string  // e.g., "A", "A#", "B"
	Octave    int     // e.g., 4 for middle C (C4)
	Frequency float64 // Frequency in Hz
	Cents     float64 // Cents deviation from the equal-tempered note (-50 to +50)
}

// String returns the scientific pitch name, e.g. "A4"
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteFor returns the nearest equal-tempered note to frequency (A4 = 440Hz)
func NoteFor(frequency float64) Note {
	// A4 = 440Hz, calculate semitones from A4
	semitones := 12 * math.Log2(frequency/440.0)

	// Round to nearest semitone
	roundedSemitones := math.Round(semitones)

	// Calculate cents deviation (difference between actual and rounded semitones)
	cents := 100 * (semitones - roundedSemitones)

	// Calculate note index (0 = C, 1 = C#, etc.)
	// A4 is 9 semitones above C4, so we add 9 to the semitone count
	noteIndex := int(math.Mod(roundedSemitones+9, 12))
	if noteIndex < 0 {
		noteIndex += 12
	}

	// Calculate octave (A4 is in octave 4)
	octave := 4 + int(math.Floor((roundedSemitones+9)/12))

	return Note{
		Name:      noteNames[noteIndex],
		Octave:    octave,
		Frequency: frequency,
		Cents:     cents,
	}
}
