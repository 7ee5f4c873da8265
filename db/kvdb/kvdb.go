package kvdb

const (
	// DocumentsBucket maps a filename to its JSON registry record.
	DocumentsBucket = "documents"
	// VectorsBucket maps a chunk ID to its encoded embedding.
	VectorsBucket = "vectors"
)

var buckets = []string{DocumentsBucket, VectorsBucket}

type DB interface {
	Set(bucket string, key string, value string) error
	SetMany(bucket string, entries map[string]string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	DeleteMany(bucket string, keys []string) error
	GetAllKeys(bucket string) ([]string, error)
	ForEach(bucket string, fn func(key string, value string) error) error
	Clear(bucket string) error
	Close() error
}
