package musicbrainz

import (
	"strconv"
	"strings"

	"platter/internal/metadata"
)

type searchResponse struct {
	Releases []releasePayload `json:"releases"`
}

type releasePayload struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	Country        string `json:"country"`
	Disambiguation string `json:"disambiguation"`
	ArtistCredit   []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
	LabelInfo []struct {
		CatalogNumber string `json:"catalog-number"`
		Label         struct {
			Name string `json:"name"`
		} `json:"label"`
	} `json:"label-info"`
	ReleaseGroup struct {
		PrimaryType    string   `json:"primary-type"`
		SecondaryTypes []string `json:"secondary-types"`
	} `json:"release-group"`
	Media []mediumPayload `json:"media"`
}

type mediumPayload struct {
	Format   string `json:"format"`
	Position int    `json:"position"`
	Tracks   []struct {
		Title    string `json:"title"`
		Position int    `json:"position"`
		Length   int    `json:"length"` // milliseconds
		Recording struct {
			ID             string `json:"id"`
			Disambiguation string `json:"disambiguation"`
		} `json:"recording"`
		ArtistCredit []struct {
			Name string `json:"name"`
		} `json:"artist-credit"`
	} `json:"tracks"`
}

func (r releasePayload) toCandidate() *metadata.CandidateRelease {
	candidate := &metadata.CandidateRelease{
		ReleaseID:      r.ID,
		Title:          r.Title,
		Artist:         joinCreditNames(r.ArtistCredit),
		Year:           parseYear(r.Date),
		Country:        r.Country,
		Disambiguation: r.Disambiguation,
		MediumCount:    len(r.Media),
	}

	if len(r.LabelInfo) > 0 {
		candidate.Label = r.LabelInfo[0].Label.Name
		candidate.CatalogNumber = r.LabelInfo[0].CatalogNumber
	}
	for _, secondary := range r.ReleaseGroup.SecondaryTypes {
		if strings.EqualFold(secondary, "Compilation") {
			candidate.Compilation = true
		}
	}
	if strings.EqualFold(candidate.Artist, "Various Artists") {
		candidate.Compilation = true
	}

	for mediumIdx, medium := range r.Media {
		if candidate.Media == "" && medium.Format != "" {
			candidate.Media = medium.Format
		}
		position := medium.Position
		if position <= 0 {
			position = mediumIdx + 1
		}
		for trackIdx, track := range medium.Tracks {
			trackPosition := track.Position
			if trackPosition <= 0 {
				trackPosition = trackIdx + 1
			}
			candidate.Tracks = append(candidate.Tracks, metadata.CandidateTrack{
				RecordingID:    track.Recording.ID,
				Title:          track.Title,
				Artist:         joinCreditNames(track.ArtistCredit),
				Duration:       float64(track.Length) / 1000.0,
				Position:       trackPosition,
				Medium:         position,
				Disambiguation: track.Recording.Disambiguation,
			})
		}
	}
	return candidate
}

func joinCreditNames(credits []struct {
	Name string `json:"name"`
}) string {
	names := make([]string, 0, len(credits))
	for _, credit := range credits {
		if name := strings.TrimSpace(credit.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, " & ")
}

func parseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
