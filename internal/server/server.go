// Package server implements the rbls language server over stdio. It
// speaks standard LSP for document sync and workspace symbols, plus
// rbls/* extension methods for resolution and ancestry queries.
package server

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/uri"

	"rbls/internal/config"
	"rbls/internal/engine"
	"rbls/internal/logging"
	"rbls/internal/workspace"
)

// Server handles one editor connection.
type Server struct {
	cfg     *config.Config
	engine  *engine.Engine
	indexer *workspace.Indexer
	logger  *logging.Logger

	mu          sync.Mutex
	root        string
	initialized bool
	shutdown    bool
}

// New creates a server. The indexer may be nil when the build cannot
// parse; document sync is then ignored and queries run on the loaded
// snapshot.
func New(cfg *config.Config, eng *engine.Engine, indexer *workspace.Indexer, logger *logging.Logger) *Server {
	return &Server{
		cfg:     cfg,
		engine:  eng,
		indexer: indexer,
		logger:  logger,
	}
}

// RunStdio serves LSP over stdin/stdout until the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	stream := jsonrpc2.NewBufferedStream(stdrwc{}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(s.handle)))
	defer conn.Close()

	s.logger.Info("language server listening on stdio", nil)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// relPath converts a document URI to a workspace-relative slash path.
func (s *Server) relPath(docURI uri.URI) (string, bool) {
	s.mu.Lock()
	root := s.root
	s.mu.Unlock()

	path := docURI.Filename()
	rel, err := filepath.Rel(root, path)
	if err != nil || filepath.IsAbs(rel) || rel == ".." || len(rel) > 1 && rel[:3] == ".."+string(filepath.Separator) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// absURI converts a workspace-relative path back to a file URI.
func (s *Server) absURI(fileID string) uri.URI {
	s.mu.Lock()
	root := s.root
	s.mu.Unlock()
	return uri.File(filepath.Join(root, filepath.FromSlash(fileID)))
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdrwc) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

var _ io.ReadWriteCloser = stdrwc{}
