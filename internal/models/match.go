package models

// MatchMethod enumerates the techniques for establishing a track identity
// correspondence between the catalog and a connector.
type MatchMethod int

const (
	// MethodPriorMapping reuses a previously persisted connector mapping.
	MethodPriorMapping MatchMethod = iota
	// MethodExternalID matches via a cross-service identifier (ISRC, MBID).
	MethodExternalID
	// MethodFuzzySearch matches via free-text search scored for confidence.
	MethodFuzzySearch
)

func (m MatchMethod) String() string {
	switch m {
	case MethodPriorMapping:
		return "prior_mapping"
	case MethodExternalID:
		return "external_id"
	case MethodFuzzySearch:
		return "fuzzy_search"
	default:
		return "unknown"
	}
}

// BaseConfidence returns the method's base contribution to a confidence
// score. A prior mapping is trusted verbatim; an exact external id match is
// trusted strongly; a fuzzy search result earns the rest of its score from
// title/artist/duration agreement.
func (m MatchMethod) BaseConfidence() int {
	switch m {
	case MethodPriorMapping:
		return 100
	case MethodExternalID:
		return 80
	case MethodFuzzySearch:
		return 50
	default:
		return 0
	}
}

// ConfidenceEvidence is the diagnostic breakdown of a confidence score. It is
// purely informational: score provenance for logs and debugging, never
// control flow.
type ConfidenceEvidence struct {
	BaseScore        int
	TitleSimilarity  float64 // [0,1]
	ArtistSimilarity float64 // [0,1]
	DurationDiffMS   int64
	DurationKnown    bool
	FinalScore       int
}

// TrackCandidate is a service-agnostic track description returned by a
// connector search or lookup.
type TrackCandidate struct {
	ExternalID string
	Title      string
	Artists    []string
	Album      string
	DurationMS int64
	ISRC       string
	Raw        map[string]any
}

// MatchResult is the outcome of resolving one catalog track against one
// connector. Immutable: a later pass that wants to attach retrieved metadata
// derives a new result via [MatchResult.WithServiceData].
type MatchResult struct {
	Track       Track
	Success     bool
	ExternalID  string
	Confidence  int // [0,100]
	Method      MatchMethod
	ServiceData map[string]any
	Evidence    *ConfidenceEvidence
}

// WithServiceData derives a MatchResult carrying the same identity fields
// plus the given service metadata.
func (r MatchResult) WithServiceData(data map[string]any) MatchResult {
	r2 := r
	r2.ServiceData = data
	return r2
}
