package models

import "time"

// QualityStatus classifies a single artwork artifact.
type QualityStatus string

const (
	QualityUnknown     QualityStatus = "unknown"
	QualityLow         QualityStatus = "low"
	QualityHigh        QualityStatus = "high"
	QualityNoCandidate QualityStatus = "no_candidate"
)

// ArtifactKind names the artwork files kept next to a media item.
type ArtifactKind string

const (
	ArtifactPoster ArtifactKind = "poster"
	ArtifactFanart ArtifactKind = "fanart"
	ArtifactThumb  ArtifactKind = "thumb"
)

// ArtifactKinds lists every artifact in canonical order.
var ArtifactKinds = []ArtifactKind{ArtifactPoster, ArtifactFanart, ArtifactThumb}

// Artifact holds the measured facts about one artwork file.
type Artifact struct {
	Path      string
	Width     int
	Height    int
	SizeKB    float64
	Status    QualityStatus
	CheckedAt time.Time
}

// MediaItem is a library entry identified by its title code.
type MediaItem struct {
	ID        string
	Code      string // title code, e.g. "ABC-123"
	Title     string
	BasePath  string // artifact paths derive as <BasePath>-poster.jpg etc.
	Poster    Artifact
	Fanart    Artifact
	Thumb     Artifact
	Skip      bool // user opted out of replacement prompts
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArtifactPath returns the conventional on-disk path for kind.
func (m MediaItem) ArtifactPath(kind ArtifactKind) string {
	return m.BasePath + "-" + string(kind) + ".jpg"
}

// ArtifactByKind returns a pointer into the item for in-place updates.
func (m *MediaItem) ArtifactByKind(kind ArtifactKind) *Artifact {
	switch kind {
	case ArtifactPoster:
		return &m.Poster
	case ArtifactFanart:
		return &m.Fanart
	case ArtifactThumb:
		return &m.Thumb
	}
	return nil
}
