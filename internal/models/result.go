package models

import "errors"

// StreamResult holds either a value or an error from a streaming operation
type StreamResult[T any] struct {
	Value T
	Err   error
}

// Dropped records one part of a best-effort result that could not be produced.
type Dropped struct {
	Section string `json:"section"`
	Err     error  `json:"-"`
}

// Partial is a best-effort result: Value holds what was parsed and Dropped
// lists what was skipped and why.
type Partial[T any] struct {
	Value   T
	Dropped []Dropped
}

// Drop records a skipped section.
func (p *Partial[T]) Drop(section string, err error) {
	p.Dropped = append(p.Dropped, Dropped{Section: section, Err: err})
}

// Complete reports whether nothing was dropped.
func (p Partial[T]) Complete() bool {
	return len(p.Dropped) == 0
}

// Err joins the errors of every dropped section, or returns nil.
func (p Partial[T]) Err() error {
	errs := make([]error, 0, len(p.Dropped))
	for _, d := range p.Dropped {
		errs = append(errs, d.Err)
	}
	return errors.Join(errs...)
}
