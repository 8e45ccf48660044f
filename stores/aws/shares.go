package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"imageshare-web/core"
	"io"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "shares/"

// objectAPI is the subset of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type shareStore struct {
	client objectAPI
	bucket string
}

// NewShareStore creates an S3-backed store using the default AWS config chain.
func NewShareStore(bucketName string) core.ShareStore {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return newShareStore(s3.NewFromConfig(cfg), bucketName)
}

func newShareStore(client objectAPI, bucket string) *shareStore {
	return &shareStore{client: client, bucket: bucket}
}

func shareKey(imageID string) string {
	return keyPrefix + url.PathEscape(imageID) + ".json"
}

func (s *shareStore) SaveShare(ctx context.Context, record *core.ShareRecord) (string, error) {
	if record.ImageID == "" {
		return "", core.ErrMissingID
	}

	if record.ID == "" {
		if existing, err := s.FindShare(ctx, record.ImageID); err == nil {
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

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(shareKey(record.ImageID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save share for image %s: %w", record.ImageID, err)
	}

	logrus.WithFields(logrus.Fields{
		"share_id": record.ID,
		"image_id": record.ImageID,
		"bucket":   s.bucket,
	}).Info("Share record saved successfully")
	return record.ID, nil
}

func (s *shareStore) FindShare(ctx context.Context, imageID string) (*core.ShareRecord, error) {
	record, err := s.getRecord(ctx, shareKey(imageID))
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("share for image %s: %w", imageID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get share for image %s: %w", imageID, err)
	}
	return record, nil
}

func (s *shareStore) DeleteShare(ctx context.Context, imageID string) error {
	key := shareKey(imageID)

	// DeleteObject succeeds on missing keys, so check with HeadObject first.
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return fmt.Errorf("share for image %s: %w", imageID, core.ErrNotFound)
		}
		return fmt.Errorf("failed to look up share for image %s: %w", imageID, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete share for image %s: %w", imageID, err)
	}

	logrus.WithField("image_id", imageID).Info("Share record deleted successfully")
	return nil
}

func (s *shareStore) ListShares(ctx context.Context, owner string) ([]core.ShareRecord, error) {
	records := make([]core.ShareRecord, 0)
	log := logrus.WithFields(logrus.Fields{"owner": owner, "bucket": s.bucket})

	var continuation *string
	for {
		output, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(keyPrefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list shares: %w", err)
		}

		for _, object := range output.Contents {
			key := aws.ToString(object.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			record, err := s.getRecord(ctx, key)
			if err != nil {
				log.WithError(err).Warnf("Failed to read share object %s, skipping", key)
				continue
			}
			if record.Owner == owner {
				records = append(records, *record)
			}
		}

		if output.NextContinuationToken == nil {
			break
		}
		continuation = output.NextContinuationToken
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ImageID < records[j].ImageID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

func (s *shareStore) getRecord(ctx context.Context, key string) (*core.ShareRecord, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read share data: %w", err)
	}

	var record core.ShareRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal share data: %w", err)
	}
	return &record, nil
}
