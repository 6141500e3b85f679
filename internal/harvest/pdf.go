package harvest

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"civicroster/internal"
)

func parsePDF(content []byte, pageURL string) (internal.PageInput, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return internal.PageInput{}, err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return fromText(b.String(), pageURL), nil
}
