package paramstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// NotFoundError is returned by Static for names it does not hold.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("paramstore: parameter %q not found", e.Name)
}

// Static is an in-memory Getter used by the local development server.
type Static struct {
	mu   sync.RWMutex
	vals map[string]string
}

func NewStatic(vals map[string]string) *Static {
	s := &Static{vals: make(map[string]string, len(vals))}
	for k, v := range vals {
		s.vals[k] = v
	}
	return s
}

// Set stores value under name, overwriting any previous value.
func (s *Static) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[strings.TrimSpace(name)] = value
}

func (s *Static) GetParameter(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vals[strings.TrimSpace(name)]
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	return v, nil
}
