package models

import "time"

// LinkValidity is the cached verdict for one candidate URL.
type LinkValidity string

const (
	LinkUnknown LinkValidity = "unknown"
	LinkValid   LinkValidity = "valid"
	LinkInvalid LinkValidity = "invalid"
)

// CandidateURL describes one externally sourced artwork URL.
type CandidateURL struct {
	URL           string       `json:"url"`
	Domain        string       `json:"domain"`
	Validity      LinkValidity `json:"validity"`
	StatusCode    int          `json:"statusCode,omitempty"`
	LastCheckedAt time.Time    `json:"lastCheckedAt,omitempty"`
}

// CandidateRecord pairs the wallpaper and cover URLs derived for one CID.
// It is owned by the resolution response that produced it; only the URL
// verdicts outlive it, inside the link cache.
type CandidateRecord struct {
	CID       string       `json:"cid"`
	RuleInfo  string       `json:"ruleInfo,omitempty"`
	Wallpaper CandidateURL `json:"wallpaper"`
	Cover     CandidateURL `json:"cover"`
}
