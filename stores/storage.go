package stores

import (
	"imageshare-web/core"
	"imageshare-web/stores/aws"
	"imageshare-web/stores/filesystem"
	"imageshare-web/stores/memory"
	"imageshare-web/stores/sqlite"
	"os"

	"github.com/sirupsen/logrus"
)

// GetStore picks the share cache backend from STORAGE_TYPE.
func GetStore() core.ShareStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.ShareStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		storageField["basePath"] = basePath
		store = filesystem.NewShareStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewShareStore(dataSourceName)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		storageField["bucketName"] = bucketName
		store = aws.NewShareStore(bucketName)
	default:
		store = memory.NewShareStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
