package distance

import (
	"math"

	"platter/internal/align"
	"platter/internal/config"
	"platter/internal/metadata"
	"platter/internal/textutil"
)

// Model computes distances under one weight configuration. It is stateless
// and safe for concurrent use.
type Model struct {
	cfg config.Matcher
}

// NewModel returns a model using the given weights and tolerances.
func NewModel(cfg config.Matcher) *Model {
	return &Model{cfg: cfg}
}

// Match aligns the unit against the candidate and scores the result. This is
// the entry point the matcher stage uses per candidate.
func (m *Model) Match(unit *metadata.LocalUnit, release *metadata.CandidateRelease) (Alignment, *Distance) {
	alignment := m.Align(unit, release)
	return alignment, m.Score(unit, release, alignment)
}

// Align solves the minimum-cost pairing between the unit's tracks and the
// candidate's tracks. Unmatched local tracks surface as extra, unmatched
// candidate tracks as missing.
func (m *Model) Align(unit *metadata.LocalUnit, release *metadata.CandidateRelease) Alignment {
	sizes := release.MediumSizes()
	costs := make([][]float64, len(unit.Tracks))
	for i, local := range unit.Tracks {
		costs[i] = make([]float64, len(release.Tracks))
		for j, candidate := range release.Tracks {
			costs[i][j] = m.pairCost(local, candidate, sizes)
		}
	}

	result := align.Solve(costs, m.cfg.ExtraTrackWeight, m.cfg.MissingTrackWeight)

	alignment := Alignment{}
	for local, candidate := range result.RowToCol {
		if candidate < 0 {
			alignment.ExtraLocal = append(alignment.ExtraLocal, local)
			continue
		}
		alignment.Pairs = append(alignment.Pairs, Pair{Local: local, Candidate: candidate})
	}
	alignment.MissingCandidate = result.UnassignedCols(len(release.Tracks))
	return alignment
}

// Score produces the Distance for a given alignment. Pure function of its
// inputs; identical inputs and configuration yield identical results.
func (m *Model) Score(unit *metadata.LocalUnit, release *metadata.CandidateRelease, alignment Alignment) *Distance {
	d := &Distance{}
	m.scoreRelease(d, unit, release)
	m.scoreTracks(d, unit, release, alignment)
	m.scoreStructure(d, unit, release, alignment)
	return d
}

func (m *Model) scoreRelease(d *Distance, unit *metadata.LocalUnit, release *metadata.CandidateRelease) {
	localArtist := unit.Artist()
	if localArtist == "" {
		d.Add(ComponentArtistMissing, m.cfg.ArtistWeight, 1)
	} else if !release.Compilation {
		// Compilations legitimately disagree with per-track artists.
		d.Add(ComponentArtist, m.cfg.ArtistWeight, stringDist(localArtist, release.Artist))
	}

	localAlbum := unit.Album()
	if localAlbum == "" && !unit.Singleton {
		d.Add(ComponentAlbumMissing, m.cfg.AlbumWeight, 1)
	} else if localAlbum != "" {
		d.Add(ComponentAlbum, m.cfg.AlbumWeight, stringDist(localAlbum, release.Title))
	}

	if localYear, candYear := unit.Year(), release.Year; localYear > 0 && candYear > 0 {
		d.Add(ComponentYear, m.cfg.YearWeight, m.yearValue(localYear, candYear))
	}

	if id := unit.ReleaseID(); id != "" {
		d.Add(ComponentReleaseID, m.cfg.ReleaseIDWeight, flagValue(textutil.Normalize(id) != textutil.Normalize(release.ReleaseID)))
	}
	addFlag(d, ComponentMedia, m.cfg.MediaWeight, unit.Media(), release.Media)
	addFlag(d, ComponentCountry, m.cfg.CountryWeight, unit.Country(), release.Country)
	addFlag(d, ComponentLabel, m.cfg.LabelWeight, unit.Label(), release.Label)
	addFlag(d, ComponentCatalogNumber, m.cfg.CatalogNumberWeight, unit.CatalogNumber(), release.CatalogNumber)

	d.Add(ComponentCompilation, m.cfg.CompilationWeight, flagValue(unitIsCompilation(unit) != release.Compilation))
}

func (m *Model) scoreTracks(d *Distance, unit *metadata.LocalUnit, release *metadata.CandidateRelease, alignment Alignment) {
	sizes := release.MediumSizes()
	for _, pair := range alignment.Pairs {
		if pair.Local >= len(unit.Tracks) || pair.Candidate >= len(release.Tracks) {
			continue
		}
		local := unit.Tracks[pair.Local]
		candidate := release.Tracks[pair.Candidate]

		d.Add(ComponentTrackTitle, m.cfg.TrackTitleWeight, stringDist(local.Title, candidate.Title))
		if local.Duration > 0 && candidate.Duration > 0 {
			d.Add(ComponentTrackDuration, m.cfg.TrackDurationWeight, m.durationValue(local.Duration, candidate.Duration))
		}
		if local.TrackNumber > 0 && candidate.Position > 0 {
			d.Add(ComponentTrackIndex, m.cfg.TrackIndexWeight, flagValue(indexMismatch(local.TrackNumber, candidate, sizes)))
		}
	}
}

func (m *Model) scoreStructure(d *Distance, unit *metadata.LocalUnit, release *metadata.CandidateRelease, alignment Alignment) {
	for range alignment.ExtraLocal {
		d.Add(ComponentExtraTracks, m.cfg.ExtraTrackWeight, 1)
	}
	for range alignment.MissingCandidate {
		d.Add(ComponentMissingTracks, m.cfg.MissingTrackWeight, 1)
	}

	localCount, candCount := len(unit.Tracks), len(release.Tracks)
	diff := localCount - candCount
	if diff < 0 {
		diff = -diff
	}
	if diff > m.cfg.TrackCountTolerance {
		larger := localCount
		if candCount > larger {
			larger = candCount
		}
		d.Add(ComponentTrackCount, m.cfg.TrackCountWeight, float64(diff)/float64(larger))
	}
}

// pairCost prices one local/candidate track pairing for the aligner. Same
// components and weights as scoreTracks, as a weighted sum so the costs are
// commensurable with the extra and missing track penalties.
func (m *Model) pairCost(local metadata.LocalTrack, candidate metadata.CandidateTrack, sizes []int) float64 {
	cost := m.cfg.TrackTitleWeight * stringDist(local.Title, candidate.Title)
	if local.Duration > 0 && candidate.Duration > 0 {
		cost += m.cfg.TrackDurationWeight * m.durationValue(local.Duration, candidate.Duration)
	}
	if local.TrackNumber > 0 && candidate.Position > 0 && indexMismatch(local.TrackNumber, candidate, sizes) {
		cost += m.cfg.TrackIndexWeight
	}
	return cost
}

// yearValue grades a year gap linearly up to the configured maximum.
func (m *Model) yearValue(local, candidate int) float64 {
	gap := local - candidate
	if gap < 0 {
		gap = -gap
	}
	if gap == 0 {
		return 0
	}
	if m.cfg.YearMaxGap <= 0 {
		return 1
	}
	return math.Min(1, float64(gap)/float64(m.cfg.YearMaxGap))
}

// durationValue is 0 inside the tolerance window, then grows linearly and
// saturates after the grace interval.
func (m *Model) durationValue(local, candidate float64) float64 {
	diff := math.Abs(local - candidate)
	if diff <= m.cfg.DurationToleranceSeconds {
		return 0
	}
	if m.cfg.DurationGraceSeconds <= 0 {
		return 1
	}
	return math.Min(1, (diff-m.cfg.DurationToleranceSeconds)/m.cfg.DurationGraceSeconds)
}

// indexMismatch accepts either per-medium or whole-album numbering, since
// rips of multi-disc sets use both schemes.
func indexMismatch(localNumber int, candidate metadata.CandidateTrack, sizes []int) bool {
	return localNumber != candidate.Position && localNumber != candidate.Index(sizes)
}

// stringDist compares normalized strings, tolerating parenthetical suffixes
// like "(Deluxe Edition)" by scoring the stripped variant too and keeping the
// better of the two.
func stringDist(a, b string) float64 {
	na, nb := textutil.Normalize(a), textutil.Normalize(b)
	best := textutil.Similarity(na, nb)
	sa := textutil.Normalize(textutil.StripParenthetical(a))
	sb := textutil.Normalize(textutil.StripParenthetical(b))
	if sa != na || sb != nb {
		if stripped := textutil.Similarity(sa, sb); stripped > best {
			best = stripped
		}
	}
	return 1 - best
}

func unitIsCompilation(unit *metadata.LocalUnit) bool {
	if textutil.Normalize(unit.Artist()) == "various artists" {
		return true
	}
	distinct := make(map[string]struct{})
	for _, track := range unit.Tracks {
		if track.AlbumArtist != "" {
			return false
		}
		if artist := textutil.Normalize(track.Artist); artist != "" {
			distinct[artist] = struct{}{}
		}
	}
	return len(distinct) > 1
}

// addFlag records an exact-mismatch flag when both sides carry the field.
func addFlag(d *Distance, name string, weight float64, local, candidate string) {
	if local == "" || candidate == "" {
		return
	}
	d.Add(name, weight, flagValue(textutil.Normalize(local) != textutil.Normalize(candidate)))
}

func flagValue(mismatch bool) float64 {
	if mismatch {
		return 1
	}
	return 0
}
