package providers

import (
	"io"
	"strings"
	"sync"
)

type nextFunc func() (string, error)

// Stream is a finite, single-pass sequence of completion fragments.
// Next returns io.EOF once the provider finishes. Close must be called
// whether or not the stream was drained; it releases the transport.
//
// Stream is not safe for concurrent use.
type Stream struct {
	next   nextFunc
	closer io.Closer
	done   bool
	once   sync.Once
	err    error
}

func newStream(next nextFunc, closer io.Closer) *Stream {
	return &Stream{next: next, closer: closer}
}

// Next returns the next non-empty text fragment.
func (s *Stream) Next() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		fragment, err := s.next()
		if err != nil {
			s.done = true
			return "", err
		}
		if fragment != "" {
			return fragment, nil
		}
	}
}

// Close releases the underlying response body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.done = true
		if s.closer != nil {
			s.err = s.closer.Close()
		}
	})
	return s.err
}

// Collect drains the stream and returns the concatenated text.
func Collect(s *Stream) (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		fragment, err := s.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
}

// StreamOf yields fixed fragments. Providers without native streaming use it.
func StreamOf(fragments ...string) *Stream {
	i := 0
	return newStream(func() (string, error) {
		if i >= len(fragments) {
			return "", io.EOF
		}
		f := fragments[i]
		i++
		return f, nil
	}, nil)
}
