package app

import (
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"

	"Roamer/internal/objmap"
)

// trailTolerance is the Douglas-Peucker tolerance applied to the trail, mm.
const trailTolerance = 5.0

// mapFeatures renders the latest state as GeoJSON in the robot's planar
// frame (mm): the robot, its target, each obstacle as a point with a radius
// and the driven trail.
func (a *App) mapFeatures() *geojson.FeatureCollection {
	a.mu.Lock()
	latest := a.latest
	trail := a.trail.Clone()
	a.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	if latest == nil {
		return fc
	}

	robot := geojson.NewFeature(orb.Point{latest.Robot.X, latest.Robot.Y})
	robot.Properties["kind"] = "robot"
	robot.Properties["heading"] = latest.Robot.Heading
	fc.Append(robot)

	target := geojson.NewFeature(orb.Point{latest.Target.X, latest.Target.Y})
	target.Properties["kind"] = "target"
	target.Properties["heading"] = latest.Target.Heading
	target.Properties["approach"] = latest.Approach
	target.Properties["mode"] = latest.Mode
	fc.Append(target)

	for _, o := range latest.Objects {
		f := geojson.NewFeature(orb.Point{o.X, o.Y})
		f.Properties["kind"] = "obstacle"
		f.Properties["type"] = objmap.Type(o.Type).String()
		f.Properties["radius"] = o.Radius
		fc.Append(f)
	}

	if len(trail) >= 2 {
		if ls, ok := simplify.DouglasPeucker(trailTolerance).Simplify(trail).(orb.LineString); ok {
			trail = ls
		}
		f := geojson.NewFeature(trail)
		f.Properties["kind"] = "trail"
		fc.Append(f)
	}
	return fc
}

// handleMap serves the map as a GeoJSON FeatureCollection.
func (a *App) handleMap(w http.ResponseWriter, r *http.Request) {
	b, err := a.mapFeatures().MarshalJSON()
	if err != nil {
		http.Error(w, "failed to encode map", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(b); err != nil {
		a.log.Warn("failed to write map", "err", err)
	}
}
