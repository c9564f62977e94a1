//go:build !cgo

// Package parser stub for builds without CGO: tree-sitter is unavailable,
// so parsing yields no events and Available reports false. The rest of the
// index (store, resolver, search) works normally on entries loaded from a
// snapshot or fed as events.
package parser

import "context"

// Parser is a no-op placeholder when CGO is not available.
type Parser struct{}

// New creates the stub parser.
func New() *Parser {
	return &Parser{}
}

// Available reports whether parsing is supported in this build.
func Available() bool {
	return false
}

// Parse returns no events when CGO is not available.
func (p *Parser) Parse(ctx context.Context, fileID string, src []byte) ([]Event, error) {
	return nil, nil
}
