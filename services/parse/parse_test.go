package parse

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"testing"

	"github.com/meghashyamc/ragconsole/logger"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func buildZip(assert *require.Assertions, parts map[string]string) []byte {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range parts {
		part, err := writer.Create(name)
		assert.NoError(err)
		_, err = part.Write([]byte(content))
		assert.NoError(err)
	}
	assert.NoError(writer.Close())
	return buf.Bytes()
}

// buildPDF writes a single-font PDF with one page per entry in pages. A
// non-empty jpegImage is embedded and drawn on the first page as Im1.
func buildPDF(pages []string, jpegImage []byte) []byte {
	var objects []string
	pageCount := len(pages)
	fontObject := 3 + 2*pageCount
	imageObject := fontObject + 1

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pageCount))
	for i, text := range pages {
		resources := fmt.Sprintf("/Font << /F1 %d 0 R >>", fontObject)
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		if i == 0 && len(jpegImage) > 0 {
			resources += fmt.Sprintf(" /XObject << /Im1 %d 0 R >>", imageObject)
			stream = "q 100 0 0 100 72 500 cm /Im1 Do Q\n" + stream
		}
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << %s >> /Contents %d 0 R >>",
			resources, 4+2*i))
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	if len(jpegImage) > 0 {
		bounds, _, _ := image.DecodeConfig(bytes.NewReader(jpegImage))
		objects = append(objects, fmt.Sprintf(
			"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n%s\nendstream",
			bounds.Width, bounds.Height, len(jpegImage), jpegImage))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, object := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, object)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefOffset)

	return buf.Bytes()
}

func buildImage(assert *require.Assertions, format string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{B: 255, A: 255})

	var buf bytes.Buffer
	switch format {
	case "png":
		assert.NoError(png.Encode(&buf, img))
	default:
		assert.NoError(jpeg.Encode(&buf, img, nil))
	}
	return buf.Bytes()
}

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Introduction</w:t></w:r></w:p>
<w:p><w:r><w:t>First paragraph</w:t></w:r><w:r><w:tab/><w:t>tabbed</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Second</w:t></w:r></w:p>
</w:body></w:document>`

func slideXML(shapes ...string) string {
	body := ""
	for _, shape := range shapes {
		body += fmt.Sprintf(`<p:sp><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`, shape)
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree>` +
		body + `</p:spTree></p:cSld></p:sld>`
}

func TestParseText(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	testCases := []struct {
		name       string
		filename   string
		sourceType string
	}{
		{name: "Markdown", filename: "notes.md", sourceType: "md"},
		{name: "PlainText", filename: "notes.txt", sourceType: "txt"},
		{name: "UppercaseExtension", filename: "NOTES.TXT", sourceType: "txt"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			segments, err := parser.Parse(tc.filename, []byte("# Title\n\nSome body text"))
			assert.NoError(err)
			assert.Len(segments, 1)
			assert.Equal("# Title\n\nSome body text", segments[0].Content)
			assert.Equal(tc.sourceType, segments[0].Metadata[MetaSourceType])
		})
	}
}

func TestParseUnsupported(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	for _, filename := range []string{"archive.xyz", "Makefile", "sheet.xlsx"} {
		_, err := parser.Parse(filename, []byte("data"))
		assert.ErrorIs(err, ErrUnsupportedFormat, filename)
	}
	assert.False(IsSupported("Makefile"))
	assert.True(IsSupported("Report.PDF"))
}

func TestParsePDF(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	segments, err := parser.Parse("report.pdf", buildPDF([]string{"Hello PDF world", "Second page"}, nil))
	assert.NoError(err)
	assert.Len(segments, 2)

	assert.Contains(segments[0].Content, "Hello PDF world")
	assert.Equal("1", segments[0].Metadata[MetaPageNumber])
	assert.Equal("pdf", segments[0].Metadata[MetaSourceType])
	assert.Contains(segments[1].Content, "Second page")
	assert.Equal("2", segments[1].Metadata[MetaPageNumber])
}

func TestParsePDFWithImage(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	data := buildPDF([]string{"Chart overview", "Appendix"}, buildImage(assert, "jpeg"))
	segments, err := parser.Parse("charts.pdf", data)
	assert.NoError(err)
	assert.Len(segments, 3)

	assert.Contains(segments[0].Content, "Chart overview")
	assert.Empty(segments[0].ImageData)

	imageSegment := segments[1]
	assert.Equal("PDF Image on Page 1 in Im1", imageSegment.Content)
	assert.Equal(map[string]string{
		MetaPageNumber: "1",
		MetaSourceType: "pdf_image",
	}, imageSegment.Metadata)

	raw, err := base64.StdEncoding.DecodeString(imageSegment.ImageData)
	assert.NoError(err)
	config, format, err := image.DecodeConfig(bytes.NewReader(raw))
	assert.NoError(err)
	assert.Equal("png", format)
	assert.Equal(2, config.Width)
	assert.Equal(2, config.Height)

	assert.Contains(segments[2].Content, "Appendix")
	assert.Equal("2", segments[2].Metadata[MetaPageNumber])
}

func TestParseCorruptPDF(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	_, err := parser.Parse("broken.pdf", []byte("%PDF-1.4 not really a pdf"))
	assert.Error(err)
}

func TestParseDOCX(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	data := buildZip(assert, map[string]string{docxDocumentPath: testDocumentXML})
	segments, err := parser.Parse("guide.docx", data)
	assert.NoError(err)
	assert.Len(segments, 3)

	assert.Equal("Introduction", segments[0].Content)
	assert.Equal("1", segments[0].Metadata[MetaParagraphIndex])
	assert.Equal("Introduction", segments[0].Metadata[MetaSectionHeader])

	assert.Equal("First paragraph\ttabbed", segments[1].Content)
	assert.Equal("2", segments[1].Metadata[MetaParagraphIndex])
	assert.Equal("Introduction", segments[1].Metadata[MetaSectionHeader])

	assert.Equal("Second", segments[2].Content)
	assert.Equal("4", segments[2].Metadata[MetaParagraphIndex])
	assert.Equal("docx", segments[2].Metadata[MetaSourceType])
}

func TestParseDOCXMissingBody(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	data := buildZip(assert, map[string]string{"word/styles.xml": "<styles/>"})
	_, err := parser.Parse("empty.docx", data)
	assert.Error(err)

	_, err = parser.Parse("notazip.docx", []byte("plain bytes"))
	assert.Error(err)
}

func TestParsePPTX(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	t.Run("NumericOrder", func(t *testing.T) {
		data := buildZip(assert, map[string]string{
			"ppt/slides/slide10.xml": slideXML("Ten"),
			"ppt/slides/slide2.xml":  slideXML(),
			"ppt/slides/slide1.xml":  slideXML("Title", "Body"),
		})

		segments, err := parser.Parse("deck.pptx", data)
		assert.NoError(err)
		assert.Len(segments, 2)

		assert.Equal("Title\nBody", segments[0].Content)
		assert.Equal("1", segments[0].Metadata[MetaSlideNumber])
		assert.Equal("pptx", segments[0].Metadata[MetaSourceType])

		assert.Equal("Ten", segments[1].Content)
		assert.Equal("3", segments[1].Metadata[MetaSlideNumber])
	})

	t.Run("PresentationOrder", func(t *testing.T) {
		data := buildZip(assert, map[string]string{
			pptxPresentationPath: `<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<p:sldIdLst><p:sldId id="256" r:id="rId3"/><p:sldId id="257" r:id="rId2"/></p:sldIdLst></p:presentation>`,
			pptxPresentationRels: `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>
</Relationships>`,
			"ppt/slides/slide1.xml": slideXML("Second in deck"),
			"ppt/slides/slide2.xml": slideXML("First in deck"),
		})

		segments, err := parser.Parse("deck.pptx", data)
		assert.NoError(err)
		assert.Len(segments, 2)
		assert.Equal("First in deck", segments[0].Content)
		assert.Equal("1", segments[0].Metadata[MetaSlideNumber])
		assert.Equal("Second in deck", segments[1].Content)
		assert.Equal("2", segments[1].Metadata[MetaSlideNumber])
	})
}

func TestParseImage(t *testing.T) {
	assert := require.New(t)
	parser := New(newTestLogger())

	testCases := []struct {
		name     string
		filename string
		format   string
		decode   func([]byte) error
	}{
		{
			name:     "PNG",
			filename: "cat.png",
			format:   "png",
			decode: func(data []byte) error {
				_, err := png.Decode(bytes.NewReader(data))
				return err
			},
		},
		{
			name:     "JPEG",
			filename: "holiday photo.jpg",
			format:   "jpeg",
			decode: func(data []byte) error {
				_, err := jpeg.Decode(bytes.NewReader(data))
				return err
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			segments, err := parser.Parse(tc.filename, buildImage(assert, tc.format))
			assert.NoError(err)
			assert.Len(segments, 1)

			segment := segments[0]
			assert.Contains(segment.Content, "Image: ")
			assert.Contains(segment.Content, "("+tc.filename+")")
			assert.Equal("image", segment.Metadata[MetaSourceType])
			assert.Equal(tc.filename, segment.Metadata[MetaFilename])

			raw, err := base64.StdEncoding.DecodeString(segment.ImageData)
			assert.NoError(err)
			assert.NoError(tc.decode(raw))
		})
	}

	_, err := parser.Parse("broken.png", []byte("not an image"))
	assert.Error(err)
}
