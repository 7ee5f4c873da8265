package index

import (
	"fmt"
	"io"
	"strings"

	"github.com/meghashyamc/ragconsole/db/searchdb"
	"github.com/meghashyamc/ragconsole/services/chunk"
	"github.com/meghashyamc/ragconsole/services/parse"
)

// File is one uploaded file. Open may be called from any worker goroutine.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// Fields that segment metadata may not overwrite on a chunk.
var reservedFields = map[string]bool{
	"filename":      true,
	"parent_id":     true,
	"content":       true,
	"child_content": true,
	"chunk_id":      true,
	"vector":        true,
	"image_data":    true,
	"anchor":        true,
}

func readUpload(file File, maxFileSize int64) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open upload: %w", err)
	}
	defer reader.Close()

	// Read one byte past the limit so oversized files can be detected
	content, err := io.ReadAll(io.LimitReader(reader, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("could not read upload: %w", err)
	}
	if int64(len(content)) > maxFileSize {
		return nil, fmt.Errorf("file exceeds the %d byte upload limit", maxFileSize)
	}

	return content, nil
}

// buildDocuments turns parsed segments into child-chunk documents. Segment i
// and parent p give parent ID "<filename>#s<i>p<p>"; child c of that parent
// gets "<parent ID>c<c>".
func buildDocuments(filename string, segments []parse.Segment) (documents []searchdb.Document, parents int) {
	for segmentIndex, segment := range segments {
		anchor := anchorFor(segment.Metadata)
		sourceType := segment.Metadata[parse.MetaSourceType]
		metadata := extraMetadata(segment.Metadata)

		for parentIndex, parent := range chunk.Parents(segment.Content) {
			parents++
			parentID := fmt.Sprintf("%s#s%dp%d", filename, segmentIndex, parentIndex)

			for childIndex, child := range chunk.Children(parent) {
				documents = append(documents, searchdb.Document{
					ID:           fmt.Sprintf("%sc%d", parentID, childIndex),
					Filename:     filename,
					ParentID:     parentID,
					Content:      parent,
					ChildContent: child,
					ChunkID:      childIndex,
					ImageData:    segment.ImageData,
					Anchor:       anchor,
					SourceType:   sourceType,
					Metadata:     metadata,
				})
			}
		}
	}

	return documents, parents
}

// anchorFor names the place in the source a segment came from.
func anchorFor(metadata map[string]string) string {
	switch {
	case metadata[parse.MetaPageNumber] != "":
		return "Page " + metadata[parse.MetaPageNumber]
	case metadata[parse.MetaSlideNumber] != "":
		return "Slide " + metadata[parse.MetaSlideNumber]
	case metadata[parse.MetaParagraphIndex] != "":
		return "Paragraph " + metadata[parse.MetaParagraphIndex]
	}
	return ""
}

func extraMetadata(metadata map[string]string) map[string]string {
	var extra map[string]string
	for key, value := range metadata {
		if reservedFields[strings.ToLower(key)] || key == parse.MetaSourceType {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[key] = value
	}
	return extra
}
