// Package staging manages request-scoped temporary copies of uploaded
// files. A staged file is owned by exactly one request and must be
// released before that request's response is sent, on every exit path.
package staging

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lanternhq/lantern/pkg/fault"
)

// ImageMIMETypes is the accepted set of image upload types.
var ImageMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// AudioMIMETypes is the accepted set of audio upload types.
var AudioMIMETypes = map[string]bool{
	"audio/mp3":  true,
	"audio/wav":  true,
	"audio/aiff": true,
	"audio/aac":  true,
	"audio/ogg":  true,
	"audio/flac": true,
}

// extByMIME maps accepted MIME types to staged-file extensions. Extensions
// are cosmetic; the declared MIME type recorded on the StagedFile is what
// travels upstream.
var extByMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
	"audio/mp3":  ".mp3",
	"audio/wav":  ".wav",
	"audio/aiff": ".aiff",
	"audio/aac":  ".aac",
	"audio/ogg":  ".ogg",
	"audio/flac": ".flac",
}

// Config holds the limits and location for a staging Manager. It is
// explicit construction state, not ambient globals, so tests can run
// isolated managers with different limits.
type Config struct {
	// Dir is the directory staged files are written to.
	Dir string

	// Accepted is the set of MIME types Stage will admit.
	Accepted map[string]bool

	// MaxSizeBytes is the per-file size cap. Uploads exceeding it abort
	// mid-copy and leave nothing on disk.
	MaxSizeBytes int64
}

// StagedFile is the handle returned by Stage. The declared MIME type is
// the one presented by the uploader, recorded verbatim; it is never
// re-inferred from the file extension.
type StagedFile struct {
	Handle    string
	Path      string
	MIMEType  string
	SizeBytes int64
	CreatedAt time.Time
}

// Manager stages uploads under a scoped temporary directory.
type Manager struct {
	config Config
	logger *zap.Logger
}

// NewManager creates a Manager and ensures the staging directory exists.
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if config.Dir == "" {
		config.Dir = filepath.Join(os.TempDir(), "lantern-staging")
	}
	if err := os.MkdirAll(config.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Manager{config: config, logger: logger}, nil
}

// Dir returns the staging directory in use.
func (m *Manager) Dir() string { return m.config.Dir }

// Stage validates the declared MIME type, copies the upload to a
// collision-free location, and returns a handle. On any failure nothing
// is left on disk: validation rejects before the file is created, and an
// aborted copy removes the partial file.
func (m *Manager) Stage(r io.Reader, declaredMIME string) (*StagedFile, error) {
	mimeType := normalizeMIME(declaredMIME)
	if !m.config.Accepted[mimeType] {
		return nil, fault.New(fault.UnsupportedMediaType,
			fmt.Sprintf("media type %q is not supported", mimeType))
	}

	handle := uuid.NewString()
	path := filepath.Join(m.config.Dir, handle+extByMIME[mimeType])

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fault.Wrap(fault.InternalStagingFailure, err, "failed to stage upload")
	}

	// Copy one byte past the cap so an oversize upload is detectable
	// without reading the whole stream.
	written, err := io.Copy(f, io.LimitReader(r, m.config.MaxSizeBytes+1))
	closeErr := f.Close()

	switch {
	case err != nil:
		m.removePartial(path)
		return nil, fault.Wrap(fault.InternalStagingFailure, err, "failed to stage upload")
	case closeErr != nil:
		m.removePartial(path)
		return nil, fault.Wrap(fault.InternalStagingFailure, closeErr, "failed to stage upload")
	case written > m.config.MaxSizeBytes:
		m.removePartial(path)
		return nil, fault.New(fault.PayloadTooLarge,
			fmt.Sprintf("upload exceeds the %d byte limit", m.config.MaxSizeBytes))
	}

	staged := &StagedFile{
		Handle:    handle,
		Path:      path,
		MIMEType:  mimeType,
		SizeBytes: written,
		CreatedAt: time.Now(),
	}

	m.logger.Debug("staged upload",
		zap.String("handle", handle),
		zap.String("mime_type", mimeType),
		zap.Int64("size_bytes", written),
	)

	return staged, nil
}

// Release deletes the staged file. It is idempotent: releasing twice, or
// releasing a handle whose file is already gone, is not an error. Cleanup
// failures are logged and swallowed since they cannot affect the
// user-visible result.
func (m *Manager) Release(f *StagedFile) {
	if f == nil {
		return
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("failed to release staged file",
			zap.String("handle", f.Handle),
			zap.Error(err),
		)
		return
	}
	m.logger.Debug("released staged file", zap.String("handle", f.Handle))
}

func (m *Manager) removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("failed to remove partial staged file",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

// normalizeMIME lowercases the declared type and strips any parameters
// ("audio/ogg; codecs=opus" -> "audio/ogg").
func normalizeMIME(declared string) string {
	parsed, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return parsed
}
