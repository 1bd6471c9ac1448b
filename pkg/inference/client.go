// Package inference abstracts the upstream vision-language service. The
// gateway only ever sees the Client interface; vendor SDK types and raw
// vendor errors stay inside this package.
package inference

import (
	"context"

	"github.com/lanternhq/lantern/pkg/content"
)

// Client is the seam between the gateway and the upstream model. Tests
// substitute a fake; production wires the Gemini implementation.
type Client interface {
	// Generate sends an assembled request upstream and returns the
	// generated text. Failures are classified into fault kinds before
	// they cross this boundary.
	Generate(ctx context.Context, req content.Request) (string, error)

	// GenerateStream sends the request upstream and calls emit once per
	// generated text chunk, in order. A non-nil error from emit stops
	// the stream.
	GenerateStream(ctx context.Context, req content.Request, emit func(chunk string) error) error
}
