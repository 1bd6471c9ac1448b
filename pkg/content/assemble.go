package content

import "github.com/lanternhq/lantern/pkg/fault"

// Request is an ordered sequence of content parts bound for the upstream
// model. Order is preserved end to end; the multimodal endpoint fixes it
// as text, then image, then audio, matching the upstream model's
// context-priming expectations.
type Request struct {
	Parts []Part
}

// Assemble composes parts into a Request. It is a pure composition step:
// parts are not mutated and caller order is kept exactly. An empty part
// list is an EmptyRequest error.
func Assemble(parts []Part) (Request, error) {
	if len(parts) == 0 {
		return Request{}, fault.New(fault.EmptyRequest,
			"at least one of text, image, or audio must be provided")
	}
	return Request{Parts: append([]Part(nil), parts...)}, nil
}
