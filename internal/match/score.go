package match

import (
	"github.com/chorussync/chorus/internal/models"
)

// Duration agreement window: differences within durationToleranceMS score
// 1.0, then decay linearly to 0.0 at durationWindowMS.
const (
	durationToleranceMS = 2000
	durationWindowMS    = 15000
)

// Blending weights. When both durations are known the blend is
// title/artist/duration; otherwise duration is neutral and its weight
// redistributes to title and artist.
const (
	weightTitle    = 0.45
	weightArtist   = 0.35
	weightDuration = 0.20

	weightTitleNoDur  = 0.55
	weightArtistNoDur = 0.45
)

// Score computes a match confidence in [0,100] between a connector candidate
// and a catalog track, for the given match method. The method base score is
// blended with weighted title, artist, and duration similarities; the blend
// fills the headroom above the base, so a perfect fuzzy match still reaches
// 100 while a garbage fuzzy match stays at its base of 50.
//
// Malformed or missing fields degrade to neutral contributions; Score never
// fails.
func Score(candidate models.TrackCandidate, track models.Track, method models.MatchMethod) (int, models.ConfidenceEvidence) {
	base := method.BaseConfidence()

	titleSim := Similarity(candidate.Title, track.Title())
	artistSim := artistSimilarity(candidate.Artists, track.Artists())

	durKnown := candidate.DurationMS > 0 && track.DurationMS() > 0
	var durDiff int64
	durSim := 1.0
	if durKnown {
		durDiff = candidate.DurationMS - track.DurationMS()
		if durDiff < 0 {
			durDiff = -durDiff
		}
		durSim = durationSimilarity(durDiff)
	}

	var blend float64
	if durKnown {
		blend = weightTitle*titleSim + weightArtist*artistSim + weightDuration*durSim
	} else {
		blend = weightTitleNoDur*titleSim + weightArtistNoDur*artistSim
	}

	score := base + int(float64(100-base)*blend+0.5)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return score, models.ConfidenceEvidence{
		BaseScore:        base,
		TitleSimilarity:  titleSim,
		ArtistSimilarity: artistSim,
		DurationDiffMS:   durDiff,
		DurationKnown:    durKnown,
		FinalScore:       score,
	}
}

// artistSimilarity compares artist name lists, taking the best pairwise match
// when either side lists multiple artists. Two empty lists are neutral.
func artistSimilarity(candidateArtists []string, trackArtists []models.Artist) float64 {
	if len(candidateArtists) == 0 && len(trackArtists) == 0 {
		return 1.0
	}
	if len(candidateArtists) == 0 || len(trackArtists) == 0 {
		return 0.0
	}

	best := 0.0
	for _, a := range candidateArtists {
		for _, b := range trackArtists {
			if sim := Similarity(a, b.Name); sim > best {
				best = sim
			}
		}
	}
	return best
}

func durationSimilarity(diffMS int64) float64 {
	if diffMS <= durationToleranceMS {
		return 1.0
	}
	if diffMS >= durationWindowMS {
		return 0.0
	}
	return 1.0 - float64(diffMS-durationToleranceMS)/float64(durationWindowMS-durationToleranceMS)
}
