package index

import (
	"log"

	"research-assistant/internal/pkg/pdfextract"
)

// ParsePDF is the DocumentParser for PDF bytes: page-wise text plus every
// embedded image canonicalized to PNG. An image that cannot be canonicalized
// is logged and dropped, consistent with the indexer's skip policy.
func ParsePDF(data []byte) ([]Page, error) {
	extracted, err := pdfextract.ExtractPages(data)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(extracted))
	for _, p := range extracted {
		page := Page{Number: p.Number, Text: p.Text}
		for _, img := range p.Images {
			png, err := canonicalPNG(img.Image)
			if err != nil {
				log.Printf("canonicalize image %d on page %d failed, skipping: %v", img.Index, p.Number, err)
				continue
			}
			page.Images = append(page.Images, PageImage{Index: img.Index, PNG: png})
		}
		pages = append(pages, page)
	}
	return pages, nil
}
