// internal/geometry/mapper.go
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/motion"
)

// Defaults for the 8x8 Hall array on the scanner head.
const (
	DefaultPixelPitch     = 560
	DefaultStepScale      = 0.01
	DefaultFieldScale     = 1.0 / 137
	DefaultDegreesPerStep = 1.8
)

// Mapper converts sweep positions and channel indices to Cartesian
// coordinates, and raw readings to field vectors.
type Mapper struct {
	PixelPitchR    int     // r offset between array rows, in steps
	PixelPitchZ    int     // z offset between array columns, in steps
	StepScale      float64 // length units per step
	FieldScale     float64 // mT per LSB
	DegreesPerStep float64
}

func DefaultMapper() Mapper {
	return Mapper{
		PixelPitchR:    DefaultPixelPitch,
		PixelPitchZ:    DefaultPixelPitch,
		StepScale:      DefaultStepScale,
		FieldScale:     DefaultFieldScale,
		DegreesPerStep: DefaultDegreesPerStep,
	}
}

// ToCartesian places a channel of the array given the head position.
// Channel c sits at row c/8 (r offset) and column c%8 (z offset).
func (m Mapper) ToCartesian(p motion.Position, channel int) r3.Vec {
	r := float64(p.R + (channel/8)*m.PixelPitchR)
	z := float64(p.Z + (channel%8)*m.PixelPitchZ)
	theta := float64(p.Theta) * m.DegreesPerStep * math.Pi / 180

	return r3.Vec{
		X: r * math.Sin(theta) * m.StepScale,
		Y: r * math.Cos(theta) * m.StepScale,
		Z: z * m.StepScale,
	}
}

// Field scales a decoded reading to physical units.
func (m Mapper) Field(rd frame.Reading) r3.Vec {
	return r3.Scale(m.FieldScale, r3.Vec{X: float64(rd.X), Y: float64(rd.Y), Z: float64(rd.Z)})
}

// Sample is one located field measurement.
type Sample struct {
	Channel  int    `json:"channel"`
	Position r3.Vec `json:"position"`
	Field    r3.Vec `json:"field"`
}

// Samples decodes a batch taken at position p. Zero words are skipped.
func (m Mapper) Samples(p motion.Position, words []frame.Word) []Sample {
	out := make([]Sample, 0, len(words))
	for _, w := range words {
		if w == 0 {
			continue
		}
		rd := frame.Decode(w)
		out = append(out, Sample{
			Channel:  rd.Channel,
			Position: m.ToCartesian(p, rd.Channel),
			Field:    m.Field(rd),
		})
	}
	return out
}
