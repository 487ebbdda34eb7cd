package pdfextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPagesRejectsCorruptBytes(t *testing.T) {
	_, err := ExtractPages([]byte("this is not a pdf"))
	require.Error(t, err)
}

func TestExtractPagesRejectsEmptyInput(t *testing.T) {
	pages, err := ExtractPages(nil)
	assert.Error(t, err)
	assert.Nil(t, pages)
}
