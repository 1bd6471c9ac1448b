// Package content normalizes inbound text and media into the content
// parts an inference request is assembled from.
package content

import (
	"fmt"
	"os"

	"github.com/lanternhq/lantern/pkg/fault"
	"github.com/lanternhq/lantern/pkg/staging"
)

// Part is one normalized unit of input content. Concrete part types
// implement the unexported marker so the set stays closed. Parts are
// immutable once built.
type Part interface{ isPart() }

// TextPart is a plain text segment.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// ImagePart carries inline image bytes tagged with the MIME type the
// uploader declared. Images ride inline because they are small enough
// that a separate upload round-trip costs more than it saves.
type ImagePart struct {
	MIMEType string
	Data     []byte
}

func (ImagePart) isPart() {}

// AudioPart references a staged file by path instead of inlining it; the
// upstream client uploads it through the vendor's file API at call time.
// Audio payloads are large enough that by-reference transfer wins.
type AudioPart struct {
	MIMEType string
	Path     string
}

func (AudioPart) isPart() {}

// Text builds a text part.
func Text(s string) Part {
	return TextPart{Text: s}
}

// ImageFromStaged reads a staged image into an inline part. The part is
// tagged with the MIME type recorded at staging time, never one guessed
// from the file extension: extension-guessing misclassified some
// containers upstream and is deliberately avoided.
func ImageFromStaged(f *staging.StagedFile) (Part, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fault.Wrap(fault.InternalStagingFailure, err,
			fmt.Sprintf("failed to read staged file %s", f.Handle))
	}
	return ImagePart{MIMEType: f.MIMEType, Data: data}, nil
}

// AudioFromStaged builds a by-reference audio part from a staged file,
// tagged with the staging-time MIME type.
func AudioFromStaged(f *staging.StagedFile) Part {
	return AudioPart{MIMEType: f.MIMEType, Path: f.Path}
}
