package harvest

import (
	"bytes"
	"fmt"

	"github.com/jhillyerd/enmime"

	"civicroster/internal"
	"civicroster/internal/util"
)

// parseMHTML unwraps a browser "save as single file" archive and hands the
// HTML part to the HTML adapter.
func parseMHTML(raw []byte, pageURL string) (internal.PageInput, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.PageInput{}, err
	}

	location := util.FirstNonEmpty(
		env.GetHeader("Snapshot-Content-Location"),
		env.GetHeader("Content-Location"),
		pageURL,
	)
	if env.HTML != "" {
		return parseHTML(env.HTML, location)
	}
	if env.Text != "" {
		return fromText(env.Text, location), nil
	}
	return internal.PageInput{}, fmt.Errorf("archive has no html or text part")
}
