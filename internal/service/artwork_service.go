package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"artkeeper/internal/config"
	"artkeeper/internal/imaging"
	"artkeeper/internal/mediastore"
	"artkeeper/internal/models"
	"artkeeper/internal/quality"
)

// maxSourceBytes bounds remote artwork downloads.
const maxSourceBytes = 32 << 20

// ItemStore is the slice of the repository the service needs.
type ItemStore interface {
	GetByID(ctx context.Context, id string) (models.MediaItem, error)
	UpdateArtifact(ctx context.Context, id string, kind models.ArtifactKind, art models.Artifact) error
	UpdateStatus(ctx context.Context, id string, kind models.ArtifactKind, status models.QualityStatus) error
	ListLowQuality(ctx context.Context, limit, offset int) ([]models.MediaItem, error)
	ListLatestHighQuality(ctx context.Context, limit int) ([]models.MediaItem, error)
}

// CoverPublisher mirrors high-quality posters to the serving bucket.
// Nil disables publishing.
type CoverPublisher interface {
	Publish(ctx context.Context, itemID string, data []byte) error
}

// CompositeInput describes one user-triggered compositing run.
type CompositeInput struct {
	ItemID     string
	SourceURL  string // remote candidate, mutually exclusive with SourcePath
	SourcePath string // locally supplied file
	Targets    []models.ArtifactKind
	Watermarks []imaging.Variant
	Crop       bool // crop the poster target to the configured ratio
}

// CompositeResult reports what was written.
type CompositeResult struct {
	Outputs map[models.ArtifactKind]string
	Updated map[models.ArtifactKind]models.Artifact
}

// ArtworkService runs the exposed pipeline operations against the
// library.
type ArtworkService struct {
	items      ItemStore
	compositor *imaging.Compositor
	covers     CoverPublisher
	httpClient *http.Client
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewArtworkService(items ItemStore, compositor *imaging.Compositor, covers CoverPublisher, cfg *config.AppConfig, log zerolog.Logger) *ArtworkService {
	return &ArtworkService{
		items:      items,
		compositor: compositor,
		covers:     covers,
		httpClient: &http.Client{Timeout: cfg.Catalog.Timeout},
		cfg:        cfg,
		log:        log,
	}
}

// ClassifyAndStore probes every artifact of an item against the quality
// thresholds and persists the refreshed facts.
func (s *ArtworkService) ClassifyAndStore(ctx context.Context, itemID string) (map[models.ArtifactKind]models.Artifact, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	results := make(map[models.ArtifactKind]models.Artifact, len(models.ArtifactKinds))
	for _, kind := range models.ArtifactKinds {
		art := quality.ProbeFile(item.ArtifactPath(kind), s.cfg.Quality)
		if err := s.items.UpdateArtifact(ctx, itemID, kind, art); err != nil {
			return nil, fmt.Errorf("store %s status: %w", kind, err)
		}
		results[kind] = art
	}
	return results, nil
}

// MarkNoCandidate stamps every artifact still below high quality as
// NoCandidate so the item stops surfacing in replacement prompts.
func (s *ArtworkService) MarkNoCandidate(ctx context.Context, itemID string) error {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}

	for _, kind := range models.ArtifactKinds {
		if item.ArtifactByKind(kind).Status == models.QualityHigh {
			continue
		}
		if err := s.items.UpdateStatus(ctx, itemID, kind, models.QualityNoCandidate); err != nil {
			return fmt.Errorf("mark %s no-candidate: %w", kind, err)
		}
	}
	return nil
}

// Composite fetches the source, runs the compositor for every target and
// writes the artifacts atomically. It blocks until everything is written
// or an error stops it (no partial writes for the failing target).
func (s *ArtworkService) Composite(ctx context.Context, input CompositeInput) (CompositeResult, error) {
	result := CompositeResult{
		Outputs: make(map[models.ArtifactKind]string),
		Updated: make(map[models.ArtifactKind]models.Artifact),
	}

	if len(input.Targets) == 0 {
		return result, errors.New("composite: no targets")
	}

	item, err := s.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return result, err
	}

	source, err := s.loadSource(ctx, input)
	if err != nil {
		return result, err
	}
	if _, err := imaging.SniffFormat(source); err != nil {
		return result, &imaging.DecodeError{Err: err}
	}

	for _, kind := range input.Targets {
		job := imaging.Job{
			Source:     source,
			Watermarks: s.watermarksFor(kind, input.Watermarks),
		}
		if kind == models.ArtifactPoster && input.Crop {
			job.Crop = true
			job.CropRatio = s.cfg.Artwork.PosterCropRatio
		}

		data, err := s.compositor.Composite(job)
		if err != nil {
			return result, fmt.Errorf("composite %s: %w", kind, err)
		}

		dest := item.ArtifactPath(kind)
		if err := mediastore.WriteFileAtomic(dest, data); err != nil {
			return result, fmt.Errorf("write %s: %w", kind, err)
		}

		art := quality.ProbeFile(dest, s.cfg.Quality)
		if err := s.items.UpdateArtifact(ctx, input.ItemID, kind, art); err != nil {
			return result, fmt.Errorf("store %s status: %w", kind, err)
		}

		result.Outputs[kind] = dest
		result.Updated[kind] = art

		if kind == models.ArtifactPoster && art.Status == models.QualityHigh && s.covers != nil {
			if err := s.covers.Publish(ctx, input.ItemID, data); err != nil {
				// Publishing is a mirror, not the artifact of record.
				s.log.Warn().Err(err).Str("item_id", input.ItemID).Msg("cover publish failed")
			}
		}

		s.log.Info().
			Str("item_id", input.ItemID).
			Str("target", string(kind)).
			Str("path", dest).
			Str("status", string(art.Status)).
			Msg("artifact composited")
	}

	return result, nil
}

// PlanPreview computes the geometry a preview renderer should draw for
// the given source dimensions. Same code path the compositor burns in.
func (s *ArtworkService) PlanPreview(kind models.ArtifactKind, naturalWidth, naturalHeight int, watermarks []imaging.Variant, crop bool) (imaging.Plan, error) {
	job := imaging.Job{Watermarks: s.watermarksFor(kind, watermarks)}
	if kind == models.ArtifactPoster && crop {
		job.Crop = true
		job.CropRatio = s.cfg.Artwork.PosterCropRatio
	}
	return s.compositor.PlanGeometry(naturalWidth, naturalHeight, job)
}

// LowQualityItems pages items that still want better artwork.
func (s *ArtworkService) LowQualityItems(ctx context.Context, limit, offset int) ([]models.MediaItem, error) {
	return s.items.ListLowQuality(ctx, limit, offset)
}

// LatestItems returns the newest high-quality items for the gallery.
func (s *ArtworkService) LatestItems(ctx context.Context, limit int) ([]models.MediaItem, error) {
	if limit <= 0 {
		limit = s.cfg.Artwork.LatestCovers
	}
	return s.items.ListLatestHighQuality(ctx, limit)
}

// watermarksFor filters the requested variants down to the kinds the
// settings stamp automatically.
func (s *ArtworkService) watermarksFor(kind models.ArtifactKind, requested []imaging.Variant) []imaging.Variant {
	if len(requested) == 0 {
		return nil
	}
	if !slices.Contains(s.cfg.Artwork.WatermarkTargets, string(kind)) {
		return nil
	}
	return requested
}

func (s *ArtworkService) loadSource(ctx context.Context, input CompositeInput) ([]byte, error) {
	switch {
	case input.SourcePath != "":
		return mediastore.ReadFile(input.SourcePath)
	case strings.HasPrefix(input.SourceURL, "http://"), strings.HasPrefix(input.SourceURL, "https://"):
		return s.downloadSource(ctx, input.SourceURL)
	default:
		return nil, fmt.Errorf("composite: no usable source (url=%q path=%q)", input.SourceURL, input.SourcePath)
	}
}

func (s *ArtworkService) downloadSource(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download source: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.Catalog.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download source: upstream returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("download source: %w", err)
	}
	return data, nil
}
