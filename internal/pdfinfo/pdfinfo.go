// Package pdfinfo inspects uploaded PDF documents.
package pdfinfo

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount returns the number of pages of the PDF read from rs.
// The document is validated in the process; malformed uploads fail here
// instead of producing a source with a bogus page count.
func PageCount(rs io.ReadSeeker) (int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return ctx.PageCount, nil
}

// PageCountFile returns the number of pages of the PDF at path.
func PageCountFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return PageCount(f)
}
