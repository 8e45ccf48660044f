package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"imageshare-web/core"
	stdlog "log"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type shareStore struct {
	db *sql.DB
}

func NewShareStore(dataSourceName string) core.ShareStore {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		stdlog.Fatal(err)
	}

	sharesTable := `CREATE TABLE IF NOT EXISTS shares (
		id TEXT PRIMARY KEY,
		image_id TEXT NOT NULL UNIQUE,
		owner TEXT,
		token TEXT,
		share_url TEXT,
		link TEXT,
		created_at INTEGER NOT NULL
	);`
	if _, err = db.Exec(sharesTable); err != nil {
		stdlog.Fatal(err)
	}

	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS shares_owner ON shares (owner, created_at);`); err != nil {
		stdlog.Fatal(err)
	}

	return &shareStore{db}
}

func (s *shareStore) SaveShare(ctx context.Context, record *core.ShareRecord) (string, error) {
	if record.ImageID == "" {
		return "", core.ErrMissingID
	}
	if record.ID == "" {
		record.ID = ulid.Make().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	log := logrus.WithFields(logrus.Fields{
		"share_id": record.ID,
		"image_id": record.ImageID,
	})

	// Re-issuing keeps the row id of the first share for that image.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shares (id, image_id, owner, token, share_url, link, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(image_id) DO UPDATE SET owner = excluded.owner, token = excluded.token,
		share_url = excluded.share_url, link = excluded.link, created_at = excluded.created_at`,
		record.ID, record.ImageID, record.Owner, record.Token, record.ShareURL, record.Link, record.CreatedAt.UnixMilli())
	if err != nil {
		log.WithField("error", err).Error("Failed to save share record")
		return "", err
	}

	if err := s.db.QueryRowContext(ctx, "SELECT id FROM shares WHERE image_id = ?", record.ImageID).Scan(&record.ID); err != nil {
		log.WithField("error", err).Error("Failed to read back share record id")
		return "", err
	}

	log.Info("Share record saved successfully")
	return record.ID, nil
}

func (s *shareStore) FindShare(ctx context.Context, imageID string) (*core.ShareRecord, error) {
	log := logrus.WithField("image_id", imageID)
	log.Debug("Retrieving share record by image ID")

	row := s.db.QueryRowContext(ctx,
		"SELECT id, image_id, owner, token, share_url, link, created_at FROM shares WHERE image_id = ?",
		imageID)
	record, err := scanShare(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("Share record for image not found")
			return nil, fmt.Errorf("share for image %s: %w", imageID, core.ErrNotFound)
		}
		log.WithField("error", err).Error("Failed to retrieve share record")
		return nil, err
	}

	return record, nil
}

func (s *shareStore) DeleteShare(ctx context.Context, imageID string) error {
	log := logrus.WithField("image_id", imageID)

	result, err := s.db.ExecContext(ctx, "DELETE FROM shares WHERE image_id = ?", imageID)
	if err != nil {
		log.WithField("error", err).Error("Failed to delete share record")
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("share for image %s: %w", imageID, core.ErrNotFound)
	}

	log.Info("Share record deleted successfully")
	return nil
}

func (s *shareStore) ListShares(ctx context.Context, owner string) ([]core.ShareRecord, error) {
	log := logrus.WithField("owner", owner)
	log.Debug("Listing share records")

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, image_id, owner, token, share_url, link, created_at FROM shares WHERE owner = ? ORDER BY created_at DESC, image_id ASC",
		owner)
	if err != nil {
		log.WithField("error", err).Error("Failed to list share records")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close share rows")
		}
	}()

	records := make([]core.ShareRecord, 0)
	for rows.Next() {
		record, err := scanShare(rows)
		if err != nil {
			log.WithField("error", err).Error("Failed to scan share record")
			continue
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShare(row scanner) (*core.ShareRecord, error) {
	var record core.ShareRecord
	var owner, token, shareURL, link sql.NullString
	var createdAt int64
	if err := row.Scan(&record.ID, &record.ImageID, &owner, &token, &shareURL, &link, &createdAt); err != nil {
		return nil, err
	}
	record.Owner = owner.String
	record.Token = token.String
	record.ShareURL = shareURL.String
	record.Link = link.String
	record.CreatedAt = time.UnixMilli(createdAt)
	return &record, nil
}
