package parse

import (
	"bytes"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const sourceTypePDFImage = "pdf_image"

var disablePDFConfigDir sync.Once

// parsePDF emits one segment per page that has text, followed by one segment
// per image embedded in that page.
func (p *Parser) parsePDF(filename string, data []byte) (segments []Segment, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			segments = nil
			err = fmt.Errorf("could not read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("could not open pdf: %w", err)
	}

	images := p.pdfImages(filename, data)

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if !page.V.IsNull() {
			text, err := page.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("could not extract text from page %d: %w", i, err)
			}

			if text = strings.TrimSpace(text); text != "" {
				segment := newSegment(text)
				segment.addMetadata(MetaPageNumber, i)
				segment.addMetadata(MetaSourceType, "pdf")
				segments = append(segments, segment)
			}
		}

		segments = append(segments, images[i]...)
	}

	return segments, nil
}

// pdfImages returns the image segments of each page keyed by page number.
// Images that cannot be read are skipped and never fail the document.
func (p *Parser) pdfImages(filename string, data []byte) (images map[int][]Segment) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("could not extract pdf images", "filename", filename, "err", fmt.Sprint(r))
			images = nil
		}
	}()

	disablePDFConfigDir.Do(api.DisableConfigDir)

	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, pdfmodel.NewDefaultConfiguration())
	if err != nil {
		p.logger.Warn("could not extract pdf images", "filename", filename, "err", err.Error())
		return nil
	}

	images = make(map[int][]Segment)
	for _, page := range pages {
		extracted := make([]pdfmodel.Image, 0, len(page))
		for _, img := range page {
			extracted = append(extracted, img)
		}
		sort.Slice(extracted, func(i, j int) bool { return extracted[i].ObjNr < extracted[j].ObjNr })

		for _, extractedImage := range extracted {
			decoded, _, err := image.Decode(extractedImage)
			if err != nil {
				p.logger.Debug("skipping pdf image", "filename", filename, "page", extractedImage.PageNr, "name", extractedImage.Name, "type", extractedImage.FileType, "err", err.Error())
				continue
			}

			encoded, err := encodeImage(decoded, "png")
			if err != nil {
				p.logger.Debug("skipping pdf image", "filename", filename, "page", extractedImage.PageNr, "name", extractedImage.Name, "err", err.Error())
				continue
			}

			segment := newSegment(fmt.Sprintf("PDF Image on Page %d in %s", extractedImage.PageNr, extractedImage.Name))
			segment.ImageData = encoded
			segment.addMetadata(MetaPageNumber, extractedImage.PageNr)
			segment.addMetadata(MetaSourceType, sourceTypePDFImage)
			images[extractedImage.PageNr] = append(images[extractedImage.PageNr], segment)
		}
	}

	return images
}
