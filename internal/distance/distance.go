package distance

// Component names. Weights come from configuration; a zero weight removes
// the component from scoring.
const (
	ComponentArtist        = "artist"
	ComponentArtistMissing = "artist_missing"
	ComponentAlbum         = "album"
	ComponentAlbumMissing  = "album_missing"
	ComponentYear          = "year"
	ComponentMedia         = "media"
	ComponentCountry       = "country"
	ComponentLabel         = "label"
	ComponentCatalogNumber = "catalog_number"
	ComponentReleaseID     = "release_id"
	ComponentCompilation   = "compilation"

	ComponentTrackTitle    = "track_title"
	ComponentTrackDuration = "track_duration"
	ComponentTrackIndex    = "track_index"

	ComponentMissingTracks = "missing_tracks"
	ComponentExtraTracks   = "extra_tracks"
	ComponentTrackCount    = "track_count"
)

// Component is one named weighted penalty.
type Component struct {
	Name   string
	Weight float64
	Value  float64
}

// Distance accumulates weighted penalty components. The zero value is a
// perfect match.
type Distance struct {
	components  []Component
	weightedSum float64
	weightSum   float64
}

// Add records a component. Zero-weight components are dropped, and values are
// clamped into [0,1] so one wild input cannot dominate the total.
func (d *Distance) Add(name string, weight, value float64) {
	if weight <= 0 {
		return
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	d.components = append(d.components, Component{Name: name, Weight: weight, Value: value})
	d.weightedSum += weight * value
	d.weightSum += weight
}

// Merge folds another distance's components into this one.
func (d *Distance) Merge(other *Distance) {
	if other == nil {
		return
	}
	for _, c := range other.components {
		d.Add(c.Name, c.Weight, c.Value)
	}
}

// Total returns the weighted mean of all components, or 0 when none were
// applied.
func (d *Distance) Total() float64 {
	if d == nil || d.weightSum == 0 {
		return 0
	}
	return d.weightedSum / d.weightSum
}

// Components returns the recorded components in insertion order.
func (d *Distance) Components() []Component {
	if d == nil {
		return nil
	}
	return d.components
}

// Value returns the largest recorded value for the named component and
// whether the component was recorded at all.
func (d *Distance) Value(name string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	max, found := 0.0, false
	for _, c := range d.components {
		if c.Name != name {
			continue
		}
		found = true
		if c.Value > max {
			max = c.Value
		}
	}
	return max, found
}

// Penalized reports whether the named component was recorded with a nonzero
// value.
func (d *Distance) Penalized(name string) bool {
	value, ok := d.Value(name)
	return ok && value > 0
}
