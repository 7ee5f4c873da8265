package searchdb

type DB interface {
	IndexDocuments(documents []Document) error
	DeleteDocuments(documentIDs []string) error
	SearchKeywords(queryString string, limit int) (*Response, error)
	GetDocuments(documentIDs []string) ([]Result, error)
	GetDocCount() (uint64, error)
	Reset() error
	Close() error
}
