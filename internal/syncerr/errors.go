// Package syncerr defines the typed error kinds used across the ETL
// and delta-sync pipeline, so callers can branch on failure category
// (fatal vs retryable vs warn-and-continue) without string matching.
package syncerr

import "fmt"

type Kind string

const (
	Configuration  Kind = "configuration"
	Download       Kind = "download"
	Parse          Kind = "parse"
	Transform      Kind = "transform"
	MergeGraph     Kind = "merge_graph"
	Version        Kind = "version"
	GraphTransient Kind = "graph_transient"
	GraphPermanent Kind = "graph_permanent"
	Cancellation   Kind = "cancellation"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Is(err error, kind Kind) bool {
	se, ok := err.(*Error)
	if !ok {
		return false
	}
	return se.Kind == kind
}
