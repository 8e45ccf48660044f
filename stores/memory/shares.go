package memory

import (
	"context"
	"fmt"
	"imageshare-web/core"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type shareStore struct {
	mu     sync.RWMutex
	shares map[string]core.ShareRecord
}

func NewShareStore() core.ShareStore {
	return &shareStore{
		shares: make(map[string]core.ShareRecord),
	}
}

func (s *shareStore) SaveShare(ctx context.Context, record *core.ShareRecord) (string, error) {
	if record.ImageID == "" {
		return "", core.ErrMissingID
	}

	s.mu.Lock()
	if existing, ok := s.shares[record.ImageID]; ok && record.ID == "" {
		record.ID = existing.ID
	}
	if record.ID == "" {
		record.ID = ulid.Make().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.shares[record.ImageID] = *record
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"share_id": record.ID,
		"image_id": record.ImageID,
	}).Info("Share record saved successfully")

	return record.ID, nil
}

func (s *shareStore) FindShare(ctx context.Context, imageID string) (*core.ShareRecord, error) {
	log := logrus.WithField("image_id", imageID)

	s.mu.RLock()
	record, ok := s.shares[imageID]
	s.mu.RUnlock()

	if ok {
		log.Debug("Share record retrieved successfully")
		return &record, nil
	}

	log.Debug("Share record for image not found")
	return nil, fmt.Errorf("share for image %s: %w", imageID, core.ErrNotFound)
}

func (s *shareStore) DeleteShare(ctx context.Context, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shares[imageID]; !ok {
		return fmt.Errorf("share for image %s: %w", imageID, core.ErrNotFound)
	}
	delete(s.shares, imageID)

	logrus.WithField("image_id", imageID).Info("Share record deleted successfully")
	return nil
}

func (s *shareStore) ListShares(ctx context.Context, owner string) ([]core.ShareRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]core.ShareRecord, 0)
	for _, record := range s.shares {
		if record.Owner == owner {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ImageID < records[j].ImageID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}
