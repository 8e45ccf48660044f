package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"imageshare-web/core"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const recordExt = ".json"

type shareStore struct {
	basePath string
	mu       sync.Mutex
}

// NewShareStore keeps one JSON file per image under basePath.
func NewShareStore(basePath string) core.ShareStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &shareStore{basePath: basePath}
}

func (s *shareStore) recordPath(imageID string) string {
	return filepath.Join(s.basePath, url.PathEscape(imageID)+recordExt)
}

func (s *shareStore) SaveShare(ctx context.Context, record *core.ShareRecord) (string, error) {
	if record.ImageID == "" {
		return "", core.ErrMissingID
	}

	filePath := s.recordPath(record.ImageID)
	log := logrus.WithFields(logrus.Fields{
		"image_id":  record.ImageID,
		"file_path": filePath,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		if existing, err := readRecord(filePath); err == nil {
			record.ID = existing.ID
		} else {
			record.ID = ulid.Make().String()
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal share record: %w", err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write share record")
		return "", err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		log.WithError(err).Error("Failed to commit share record")
		return "", err
	}

	log.WithField("share_id", record.ID).Info("Share record saved successfully")
	return record.ID, nil
}

func (s *shareStore) FindShare(ctx context.Context, imageID string) (*core.ShareRecord, error) {
	filePath := s.recordPath(imageID)
	log := logrus.WithField("image_id", imageID)

	record, err := readRecord(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("Share record for image not found")
			return nil, fmt.Errorf("share for image %s: %w", imageID, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve share record")
		return nil, err
	}

	return record, nil
}

func (s *shareStore) DeleteShare(ctx context.Context, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(imageID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("share for image %s: %w", imageID, core.ErrNotFound)
		}
		return err
	}

	logrus.WithField("image_id", imageID).Info("Share record deleted successfully")
	return nil
}

func (s *shareStore) ListShares(ctx context.Context, owner string) ([]core.ShareRecord, error) {
	log := logrus.WithFields(logrus.Fields{"owner": owner, "path": s.basePath})

	files, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []core.ShareRecord{}, nil
		}
		log.WithError(err).Error("Failed to read share directory")
		return nil, err
	}

	records := make([]core.ShareRecord, 0)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), recordExt) {
			continue
		}
		record, err := readRecord(filepath.Join(s.basePath, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read share record %s, skipping", file.Name())
			continue
		}
		if record.Owner == owner {
			records = append(records, *record)
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

func readRecord(filePath string) (*core.ShareRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var record core.ShareRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal share record: %w", err)
	}
	return &record, nil
}
