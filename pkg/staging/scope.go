package staging

import "io"

// Scope tracks every file staged during one request so a single deferred
// ReleaseAll guarantees cleanup on success, error, and abort paths alike.
// A Scope is request-local and never shared across goroutines.
type Scope struct {
	manager *Manager
	files   []*StagedFile
}

// NewScope creates an empty scope bound to the manager.
func (m *Manager) NewScope() *Scope {
	return &Scope{manager: m}
}

// Stage stages the upload through the manager and records the handle for
// release.
func (s *Scope) Stage(r io.Reader, declaredMIME string) (*StagedFile, error) {
	f, err := s.manager.Stage(r, declaredMIME)
	if err != nil {
		return nil, err
	}
	s.files = append(s.files, f)
	return f, nil
}

// ReleaseAll releases every file staged in this scope. Safe to call more
// than once.
func (s *Scope) ReleaseAll() {
	for _, f := range s.files {
		s.manager.Release(f)
	}
	s.files = nil
}

// Len reports the number of files currently held by the scope.
func (s *Scope) Len() int { return len(s.files) }
