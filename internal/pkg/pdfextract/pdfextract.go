package pdfextract

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"sort"

	"github.com/ledongthuc/pdf"
)

// PageImage is one embedded image decoded from a page's XObject resources.
type PageImage struct {
	Index int
	Image image.Image
}

// PageContent holds the extractable content of a single PDF page.
// Page numbers are zero-based.
type PageContent struct {
	Number int
	Text   string
	Images []PageImage
}

// ExtractPages reads the whole PDF from data and returns its pages in order.
// Pages are processed sequentially; an image that cannot be decoded is logged
// and skipped rather than failing the page.
func ExtractPages(data []byte) ([]PageContent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf data")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}

	pages := make([]PageContent, 0, reader.NumPage())
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}

		content := PageContent{Number: n - 1}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("extract text from page %d failed: %v", n, err)
		} else {
			content.Text = text
		}
		content.Images = extractPageImages(page, n)
		pages = append(pages, content)
	}
	return pages, nil
}

// extractPageImages walks the page's XObject resources and decodes every
// image stream it can. The underlying library panics on filters it does not
// implement, so each stream read is isolated and a failed image only costs
// itself.
func extractPageImages(page pdf.Page, pageNum int) []PageImage {
	resources := page.Resources()
	if resources.IsNull() {
		return nil
	}
	xobjects := resources.Key("XObject")
	if xobjects.IsNull() {
		return nil
	}

	names := xobjects.Keys()
	sort.Strings(names)

	var images []PageImage
	index := 0
	for _, name := range names {
		obj := xobjects.Key(name)
		if obj.IsNull() || obj.Key("Subtype").Name() != "Image" {
			continue
		}
		img, err := decodeImageStream(obj)
		if err != nil {
			log.Printf("decode image %d on page %d failed: %v", index, pageNum, err)
			index++
			continue
		}
		images = append(images, PageImage{Index: index, Image: img})
		index++
	}
	return images
}

func decodeImageStream(obj pdf.Value) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("read image stream failed: %v", r)
		}
	}()

	stream := obj.Reader()
	defer stream.Close()

	raw, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read image stream failed: %w", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image failed: %w", err)
	}
	return decoded, nil
}
