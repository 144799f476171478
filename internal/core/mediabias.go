package core

// MediaBiasSource is a domain-keyed row of bias/factuality/credibility
// metadata. A domain appears at most once; disabled sources are
// auto-enabled on first successful lookup (see internal/mediabias).
type MediaBiasSource struct {
	ID                    int64  `json:"id" db:"id"`
	Source                string `json:"source" db:"source"` // normalized domain
	Country               string `json:"country" db:"country"`
	Bias                  string `json:"bias" db:"bias"`
	FactualReporting      string `json:"factual_reporting" db:"factual_reporting"`
	PressFreedom          string `json:"press_freedom" db:"press_freedom"`
	MediaType             string `json:"media_type" db:"media_type"`
	Popularity            string `json:"popularity" db:"popularity"`
	MBFCCredibilityRating string `json:"mbfc_credibility_rating" db:"mbfc_credibility_rating"`
	Enabled               bool   `json:"enabled" db:"enabled"`
}

// MediaBiasSettings is a singleton tracking whether the registry is
// enabled overall and where its last import came from.
type MediaBiasSettings struct {
	Enabled     bool   `json:"enabled" db:"enabled"`
	LastUpdated string `json:"last_updated" db:"last_updated"`
	SourceFile  string `json:"source_file" db:"source_file"`
}
