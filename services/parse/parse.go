package parse

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meghashyamc/ragconsole/logger"
)

const (
	MetaPageNumber     = "page_number"
	MetaSlideNumber    = "slide_number"
	MetaParagraphIndex = "paragraph_index"
	MetaSectionHeader  = "section_header"
	MetaSourceType     = "source_type"
	MetaFilename       = "filename"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// SupportedExtensions lists the lower-cased extensions Parse accepts.
var SupportedExtensions = []string{"pdf", "docx", "pptx", "md", "txt", "jpg", "jpeg", "png"}

// Segment is a unit of extracted document content plus where it came from.
type Segment struct {
	Content   string
	ImageData string // base64
	Metadata  map[string]string
}

func newSegment(content string) Segment {
	return Segment{Content: content, Metadata: make(map[string]string)}
}

func (s *Segment) addMetadata(key string, value any) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = fmt.Sprint(value)
}

type Parser struct {
	logger logger.Logger
}

func New(logger logger.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts segments from a document, dispatching on the file extension.
func (p *Parser) Parse(filename string, data []byte) ([]Segment, error) {
	extension := Extension(filename)

	var segments []Segment
	var err error
	switch extension {
	case "pdf":
		segments, err = p.parsePDF(filename, data)
	case "docx":
		segments, err = parseDOCX(data)
	case "pptx":
		segments, err = parsePPTX(data)
	case "md", "txt":
		segment := newSegment(string(data))
		segment.addMetadata(MetaSourceType, extension)
		segments = []Segment{segment}
	case "jpg", "jpeg", "png":
		segments, err = parseImage(filename, extension, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, extension)
	}
	if err != nil {
		p.logger.Warn("could not parse document", "filename", filename, "err", err.Error())
		return nil, err
	}

	p.logger.Debug("parsed document", "filename", filename, "segments", len(segments))
	return segments, nil
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func IsSupported(filename string) bool {
	extension := Extension(filename)
	for _, supported := range SupportedExtensions {
		if extension == supported {
			return true
		}
	}
	return false
}
