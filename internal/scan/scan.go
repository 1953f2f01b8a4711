// Package scan turns a sweep of the sensor head into a short list of detected
// objects: sweep with the IR ranger, smooth, segment into constant-distance
// runs, re-measure each run with the ultrasonic ranger and estimate its size.
package scan

import (
	"fmt"
	"math"

	"Roamer/internal/calib"
	"Roamer/internal/device"
)

const (
	// Samples is the number of readings in a 0..180 sweep at 1 degree.
	Samples = 181
	// MaxDistance is the farthest detection kept, cm.
	MaxDistance = 100.0
	// MaxObjects bounds the detections returned by FindObjects.
	MaxObjects = 8

	EdgeTolerance  = 10.0 // cm a march may grow before it ends
	MinWidth       = 4    // degrees
	EdgeMargin     = 2    // degrees ignored at both ends of the sweep
	LatencyComp    = -5   // degrees, the head lags the commanded angle while sweeping
	CleanTolerance = 2.0  // cm
	floorSamples   = 8
)

// Detection is an object seen by the head. Angle is the head angle of its
// centre, 90 straight ahead.
type Detection struct {
	Angle    int     `json:"angle"`
	Width    int     `json:"width"`    // angular width, degrees
	Distance float64 `json:"distance"` // cm to the near edge
	Size     float64 `json:"size"`     // estimated diameter, cm
}

func (d Detection) String() string {
	return fmt.Sprintf("angle=%d width=%d dist=%.2f size=%.2f", d.Angle, d.Width, d.Distance, d.Size)
}

// FloorSample returns the lowest of n IR readings at the current head angle.
func FloorSample(s device.Scanner, n int) (int, error) {
	low := math.MaxInt
	for i := 0; i < n; i++ {
		v, err := s.ReadIR()
		if err != nil {
			return 0, fmt.Errorf("read ir: %w", err)
		}
		low = min(low, v)
	}
	return low, nil
}

// Sweep points the head at every degree from 0 to 180 and returns calibrated
// IR distances in cm.
func Sweep(s device.Scanner, c calib.Curve) ([]float64, error) {
	out := make([]float64, Samples)
	for i := range out {
		if err := s.PointHead(i); err != nil {
			return nil, fmt.Errorf("point head %d: %w", i, err)
		}
		raw, err := FloorSample(s, floorSamples)
		if err != nil {
			return nil, err
		}
		out[i] = c.Cm(raw)
	}
	return out, nil
}

// Clean clamps isolated outliers in place. Each window of width 4, then 3,
// pulls its interior samples back inside the range of its two edges plus the
// tolerance.
func Clean(data []float64) {
	for w := 4; w >= 3; w-- {
		for i := 0; i < len(data)-w; i++ {
			far, near := data[i], data[i+w-1]
			if far < near {
				far, near = near, far
			}
			for j := 1; j < w-1; j++ {
				if data[i+j] > far+CleanTolerance {
					data[i+j] = far
				}
				if data[i+j] < near-CleanTolerance {
					data[i+j] = near
				}
			}
		}
	}
}

// FindObjects segments a cleaned sweep into runs whose distance stays within
// EdgeTolerance of the run's band, and keeps runs that are wide enough, near
// enough and clear of the sweep edges.
func FindObjects(data []float64) []Detection {
	var out []Detection
	if len(data) == 0 {
		return out
	}
	lo, hi := data[0], data[0]
	start := 0
	last := len(data) - 1

	for i := 1; i < len(data); i++ {
		v := data[i]
		if v <= hi+EdgeTolerance && v >= lo-EdgeTolerance && i != last {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			continue
		}

		width := i - start
		dist := (lo + hi) / 2
		if width >= MinWidth && dist <= MaxDistance &&
			start > EdgeMargin && start+width < last-EdgeMargin &&
			len(out) < MaxObjects {
			out = append(out, Detection{
				Angle:    start + width/2 + LatencyComp,
				Width:    width,
				Distance: dist,
			})
		}
		// the sample that broke the run opens the next one
		lo, hi = v, v
		start = i
	}
	return out
}

// Reping replaces each detection's distance with an ultrasonic reading taken
// at its centre angle.
func Reping(s device.Scanner, dets []Detection) error {
	for i := range dets {
		if err := s.PointHead(dets[i].Angle); err != nil {
			return fmt.Errorf("point head %d: %w", dets[i].Angle, err)
		}
		d, err := s.ReadPing()
		if err != nil {
			return fmt.Errorf("read ping: %w", err)
		}
		dets[i].Distance = d
	}
	return nil
}

// Size fills in each detection's diameter from its distance and angular width.
func Size(dets []Detection) {
	for i := range dets {
		dets[i].Size = dets[i].Distance * float64(dets[i].Width) * math.Pi / 180
	}
}

// Run performs the full pipeline and returns the detections.
func Run(s device.Scanner, c calib.Curve) ([]Detection, error) {
	data, err := Sweep(s, c)
	if err != nil {
		return nil, err
	}
	Clean(data)
	dets := FindObjects(data)
	if len(dets) == 0 {
		return dets, nil
	}
	if err := Reping(s, dets); err != nil {
		return nil, err
	}
	Size(dets)
	return dets, nil
}
