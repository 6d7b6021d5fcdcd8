package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"artkeeper/internal/config"
)

// CoverStore mirrors high-quality posters into a bucket so the latest
// covers can be served without touching the library filesystem.
type CoverStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewCoverStore(cfg config.StorageConfig) (*CoverStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &CoverStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *CoverStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.BucketCovers)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.BucketCovers, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.BucketCovers, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.BucketCovers, err)
		}
	}
	return nil
}

// Publish stores the poster bytes under the item id, replacing any
// earlier copy.
func (s *CoverStore) Publish(ctx context.Context, itemID string, data []byte) error {
	object := itemID + ".jpg"
	_, err := s.client.PutObject(ctx, s.cfg.BucketCovers, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return fmt.Errorf("put cover %s: %w", object, err)
	}
	return nil
}

// Trim removes all but the newest keep covers, returning how many were
// deleted.
func (s *CoverStore) Trim(ctx context.Context, keep int) (int, error) {
	var objects []minio.ObjectInfo
	for info := range s.client.ListObjects(ctx, s.cfg.BucketCovers, minio.ListObjectsOptions{}) {
		if info.Err != nil {
			return 0, fmt.Errorf("list covers: %w", info.Err)
		}
		objects = append(objects, info)
	}
	if len(objects) <= keep {
		return 0, nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	removed := 0
	for _, info := range objects[keep:] {
		if err := s.client.RemoveObject(ctx, s.cfg.BucketCovers, info.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("remove cover %s: %w", info.Key, err)
		}
		removed++
	}
	return removed, nil
}
