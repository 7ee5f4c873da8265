package kvdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meghashyamc/ragconsole/config"
	"github.com/meghashyamc/ragconsole/logger"
	bolt "go.etcd.io/bbolt"
)

type BoltDB struct {
	store  *bolt.DB
	logger logger.Logger
}

func New(logger logger.Logger, cfg *config.Config) (*BoltDB, error) {
	kvDBPath := cfg.GetKVDBPath()
	if err := os.MkdirAll(filepath.Dir(kvDBPath), 0755); err != nil {
		logger.Error("failed to create key-value database directory", "err", err.Error(), "path", kvDBPath)
		return nil, fmt.Errorf("failed to create key-value database directory: %w", err)
	}

	store, err := bolt.Open(kvDBPath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		logger.Error("failed to open database", "err", err.Error(), "path", kvDBPath)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	boltDB := &BoltDB{
		store:  store,
		logger: logger,
	}

	if err := boltDB.initBuckets(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return boltDB, nil
}

func (b *BoltDB) initBuckets() error {
	return b.store.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				b.logger.Error("failed to create bucket", "bucket", name, "err", err.Error())
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (b *BoltDB) Set(bucketName string, key string, value string) error {
	return b.SetMany(bucketName, map[string]string{key: value})
}

// SetMany writes all entries in a single transaction.
func (b *BoltDB) SetMany(bucketName string, entries map[string]string) error {
	for key := range entries {
		if key == "" {
			b.logger.Error("key cannot be empty", "bucket", bucketName)
			return &InvalidKeyError{
				Key:    key,
				Reason: "key cannot be empty",
			}
		}
	}

	return b.store.Update(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx, bucketName)
		if err != nil {
			return err
		}

		for key, value := range entries {
			if err := bucket.Put([]byte(key), []byte(value)); err != nil {
				b.logger.Error("failed to set key", "bucket", bucketName, "key", key, "err", err.Error())
				return fmt.Errorf("failed to set key %s: %w", key, err)
			}
		}

		return nil
	})
}

func (b *BoltDB) Get(bucketName string, key string) (string, error) {
	if key == "" {
		b.logger.Error("key cannot be empty", "bucket", bucketName)
		return "", &InvalidKeyError{
			Key:    key,
			Reason: "key cannot be empty",
		}
	}

	var value []byte
	err := b.store.View(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx, bucketName)
		if err != nil {
			return err
		}

		v := bucket.Get([]byte(key))
		if v == nil {
			return &NotFoundError{Bucket: bucketName, Key: key}
		}

		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})

	if err != nil {
		var notFoundErr *NotFoundError
		if errors.As(err, &notFoundErr) {
			b.logger.Debug("key not found", "bucket", bucketName, "key", key)
			return "", notFoundErr
		}
		return "", err
	}

	return string(value), nil
}

func (b *BoltDB) Delete(bucketName string, key string) error {
	if key == "" {
		b.logger.Error("key cannot be empty", "bucket", bucketName)
		return &InvalidKeyError{
			Key:    key,
			Reason: "key cannot be empty",
		}
	}

	return b.DeleteMany(bucketName, []string{key})
}

func (b *BoltDB) DeleteMany(bucketName string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	return b.store.Update(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx, bucketName)
		if err != nil {
			return err
		}

		for _, key := range keys {
			if key == "" {
				continue
			}
			if err := bucket.Delete([]byte(key)); err != nil {
				b.logger.Error("failed to delete key", "bucket", bucketName, "key", key, "err", err.Error())
				return fmt.Errorf("failed to delete key %s: %w", key, err)
			}
		}

		return nil
	})
}

func (b *BoltDB) GetAllKeys(bucketName string) ([]string, error) {
	var keys []string
	err := b.ForEach(bucketName, func(key string, _ string) error {
		keys = append(keys, key)
		return nil
	})

	return keys, err
}

// ForEach visits entries in key order. Values are copied before fn sees them.
func (b *BoltDB) ForEach(bucketName string, fn func(key string, value string) error) error {
	return b.store.View(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx, bucketName)
		if err != nil {
			return err
		}

		return bucket.ForEach(func(k, v []byte) error {
			return fn(string(k), string(v))
		})
	})
}

// Clear drops every entry of the bucket and recreates it empty.
func (b *BoltDB) Clear(bucketName string) error {
	return b.store.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			b.logger.Error("failed to delete bucket", "bucket", bucketName, "err", err.Error())
			return fmt.Errorf("failed to delete bucket %s: %w", bucketName, err)
		}
		if _, err := tx.CreateBucket([]byte(bucketName)); err != nil {
			b.logger.Error("failed to recreate bucket", "bucket", bucketName, "err", err.Error())
			return fmt.Errorf("failed to recreate bucket %s: %w", bucketName, err)
		}
		return nil
	})
}

func (b *BoltDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

func (b *BoltDB) bucket(tx *bolt.Tx, bucketName string) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(bucketName))
	if bucket == nil {
		b.logger.Error("bucket not found", "bucket", bucketName)
		return nil, fmt.Errorf("bucket not found: %s", bucketName)
	}

	return bucket, nil
}
