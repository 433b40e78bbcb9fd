package tagger

import (
	"context"
	"io"
)

// SuggestPrompt is the shared prompt used by all tagger backends.
const SuggestPrompt = `Suggest short descriptive tags for this photo, suitable for
cataloguing it (subject, setting, colors, notable objects). Respond with tags
only, comma separated, no other text.`

// Suggester proposes catalogue tags for an image. Suggestions are advisory;
// nothing is applied to the catalogue by the backend.
type Suggester interface {
	Suggest(ctx context.Context, r io.Reader, mimeType string) ([]string, error)
}
