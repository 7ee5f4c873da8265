package parse

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	docxDocumentPath      = "word/document.xml"
	pptxPresentationPath  = "ppt/presentation.xml"
	pptxPresentationRels  = "ppt/_rels/presentation.xml.rels"
	maxOfficePartSize     = 64 * 1024 * 1024
	relationshipSlideType = "/slide"
)

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type docxDocument struct {
	Paragraphs []docxParagraph `xml:"body>p"`
}

type docxParagraph struct {
	Style docxValue `xml:"pPr>pStyle"`
	Inner []byte    `xml:",innerxml"`
}

type docxValue struct {
	Val string `xml:"val,attr"`
}

// parseDOCX emits one segment per non-blank body paragraph. Headings set the
// section header carried by the paragraphs that follow them.
func parseDOCX(data []byte) ([]Segment, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("could not open docx: %w", err)
	}

	part, err := readZipPart(archive, docxDocumentPath)
	if err != nil {
		return nil, err
	}

	var document docxDocument
	if err := xml.Unmarshal(part, &document); err != nil {
		return nil, fmt.Errorf("could not decode docx body: %w", err)
	}

	var segments []Segment
	var texts []string
	sectionHeader := ""

	for i, paragraph := range document.Paragraphs {
		text, err := collectText(paragraph.Inner)
		if err != nil {
			return nil, fmt.Errorf("could not read paragraph %d: %w", i+1, err)
		}
		texts = append(texts, text)

		if strings.TrimSpace(text) == "" {
			continue
		}

		if strings.Contains(strings.ToLower(paragraph.Style.Val), "heading") {
			sectionHeader = strings.TrimSpace(text)
		}

		segment := newSegment(strings.TrimSpace(text))
		segment.addMetadata(MetaSourceType, "docx")
		segment.addMetadata(MetaParagraphIndex, i+1)
		if sectionHeader != "" {
			segment.addMetadata(MetaSectionHeader, sectionHeader)
		}
		segments = append(segments, segment)
	}

	if len(segments) == 0 {
		fallback := strings.TrimSpace(strings.Join(texts, "\n"))
		if fallback == "" {
			return nil, nil
		}
		segment := newSegment(fallback)
		segment.addMetadata(MetaSourceType, "docx")
		return []Segment{segment}, nil
	}

	return segments, nil
}

// collectText concatenates the w:t runs of a paragraph, honouring tabs and breaks.
func collectText(inner []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(inner))
	var text strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				text.WriteByte('\t')
			case "br", "cr":
				text.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}

	return text.String(), nil
}

// parsePPTX emits one segment per slide with text, numbered in presentation order.
func parsePPTX(data []byte) ([]Segment, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("could not open pptx: %w", err)
	}

	slidePaths, err := slideOrder(archive)
	if err != nil {
		return nil, err
	}

	var segments []Segment
	for i, slidePath := range slidePaths {
		part, err := readZipPart(archive, slidePath)
		if err != nil {
			return nil, err
		}

		text, err := slideText(part)
		if err != nil {
			return nil, fmt.Errorf("could not read slide %d: %w", i+1, err)
		}
		if text == "" {
			continue
		}

		segment := newSegment(text)
		segment.addMetadata(MetaSlideNumber, i+1)
		segment.addMetadata(MetaSourceType, "pptx")
		segments = append(segments, segment)
	}

	return segments, nil
}

type pptxPresentation struct {
	SlideIDs []struct {
		RelationshipID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type pptxRelationships struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slideOrder resolves slide parts through the presentation's relationship
// list, falling back to the numeric part names when that list is absent.
func slideOrder(archive *zip.Reader) ([]string, error) {
	presentationPart, presentationErr := readZipPart(archive, pptxPresentationPath)
	relsPart, relsErr := readZipPart(archive, pptxPresentationRels)
	if presentationErr == nil && relsErr == nil {
		var presentation pptxPresentation
		var rels pptxRelationships
		if xml.Unmarshal(presentationPart, &presentation) == nil && xml.Unmarshal(relsPart, &rels) == nil {
			targets := make(map[string]string, len(rels.Relationships))
			for _, rel := range rels.Relationships {
				if strings.HasSuffix(rel.Type, relationshipSlideType) {
					targets[rel.ID] = path.Join("ppt", rel.Target)
				}
			}

			var ordered []string
			for _, slideID := range presentation.SlideIDs {
				if target, ok := targets[slideID.RelationshipID]; ok {
					ordered = append(ordered, target)
				}
			}
			if len(ordered) > 0 {
				return ordered, nil
			}
		}
	}

	type numberedSlide struct {
		number int
		path   string
	}
	var slides []numberedSlide
	for _, file := range archive.File {
		match := slidePartPattern.FindStringSubmatch(file.Name)
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		slides = append(slides, numberedSlide{number: number, path: file.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	ordered := make([]string, 0, len(slides))
	for _, slide := range slides {
		ordered = append(ordered, slide.path)
	}
	return ordered, nil
}

// slideText joins the text of every shape on a slide, one shape per line.
func slideText(part []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(part))
	var slide strings.Builder
	var shape strings.Builder
	shapeDepth := 0
	inText := false

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				shapeDepth++
				if shapeDepth == 1 {
					shape.Reset()
				}
			case "t":
				inText = shapeDepth > 0
			case "br":
				if shapeDepth > 0 {
					shape.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if shapeDepth > 0 {
					shape.WriteByte('\n')
				}
			case "sp":
				shapeDepth--
				if shapeDepth == 0 {
					if text := strings.TrimSpace(shape.String()); text != "" {
						slide.WriteString(text)
						slide.WriteByte('\n')
					}
				}
			}
		case xml.CharData:
			if inText {
				shape.Write(t)
			}
		}
	}

	return strings.TrimSpace(slide.String()), nil
}

func readZipPart(archive *zip.Reader, name string) ([]byte, error) {
	for _, file := range archive.File {
		if file.Name != name {
			continue
		}
		reader, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("could not open %s: %w", name, err)
		}
		defer reader.Close()

		data, err := io.ReadAll(io.LimitReader(reader, maxOfficePartSize))
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("missing part %s", name)
}
