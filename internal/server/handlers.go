package server

import (
	"context"
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"rbls/internal/entry"
	rblserrors "rbls/internal/errors"
	"rbls/internal/search"
	"rbls/internal/version"
	"rbls/internal/workspace"
)

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(ctx, req)
	case "initialized":
		return nil, nil
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil
	case "exit":
		return nil, conn.Close()
	case "textDocument/didOpen":
		return nil, s.handleDidOpen(ctx, req)
	case "textDocument/didChange":
		return nil, s.handleDidChange(ctx, req)
	case "textDocument/didSave":
		return nil, s.handleDidSave(ctx, req)
	case "textDocument/didClose":
		return nil, nil
	case "workspace/symbol":
		return s.handleWorkspaceSymbol(ctx, req)
	case "rbls/resolveConstant":
		return s.handleResolveConstant(req)
	case "rbls/resolveMethod":
		return s.handleResolveMethod(req)
	case "rbls/ancestors":
		return s.handleAncestors(req)
	case "rbls/stats":
		return s.engine.Stats(), nil
	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	}
}

func (s *Server) requireInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return rblserrors.Newf(rblserrors.ServerNotInitialized, "initialize has not completed")
	}
	return nil
}

func (s *Server) handleInitialize(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params protocol.InitializeParams
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
	}

	root := s.cfg.WorkspaceRoot
	if params.RootURI != "" {
		root = uri.URI(params.RootURI).Filename()
	}
	s.mu.Lock()
	s.root = root
	s.initialized = true
	s.mu.Unlock()

	if s.indexer != nil {
		if _, err := s.indexer.IndexWorkspace(ctx, root); err != nil {
			s.logger.Error("initial workspace indexing failed", map[string]interface{}{
				"root":  root,
				"error": err.Error(),
			})
		}
	}

	syncKind := float64(protocol.TextDocumentSyncKindFull)
	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync:        syncKind,
			WorkspaceSymbolProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "rbls",
			Version: version.Version,
		},
	}, nil
}

func (s *Server) handleDidOpen(ctx context.Context, req *jsonrpc2.Request) error {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}
	return s.indexDocument(ctx, uri.URI(params.TextDocument.URI), []byte(params.TextDocument.Text))
}

func (s *Server) handleDidChange(ctx context.Context, req *jsonrpc2.Request) error {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}
	// Full sync: the last change carries the whole document.
	if len(params.ContentChanges) == 0 {
		return nil
	}
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	return s.indexDocument(ctx, uri.URI(params.TextDocument.URI), []byte(text))
}

func (s *Server) handleDidSave(ctx context.Context, req *jsonrpc2.Request) error {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}
	if params.Text != "" {
		return s.indexDocument(ctx, uri.URI(params.TextDocument.URI), []byte(params.Text))
	}
	// No text in the notification: reindex from disk, refreshing the
	// snapshot as well.
	fileID, ok := s.relPath(uri.URI(params.TextDocument.URI))
	if !ok || s.indexer == nil {
		return nil
	}
	s.mu.Lock()
	root := s.root
	s.mu.Unlock()
	_, err := s.indexer.IndexFile(ctx, root, fileID)
	return err
}

// indexDocument reindexes in-memory document content. Editor buffers
// bypass the snapshot; only saves persist.
func (s *Server) indexDocument(ctx context.Context, docURI uri.URI, src []byte) error {
	fileID, ok := s.relPath(docURI)
	if !ok {
		return nil
	}
	if !workspace.IsRubyFile(fileID) {
		return nil
	}
	if !s.engine.ParserAvailable() {
		return nil
	}
	if _, err := s.engine.IndexSource(ctx, fileID, src); err != nil {
		s.logger.Warn("document reindex failed", map[string]interface{}{
			"file":  fileID,
			"error": err.Error(),
		})
	}
	return nil
}

func (s *Server) handleWorkspaceSymbol(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	if err := s.requireInitialized(); err != nil {
		return nil, err
	}
	var params protocol.WorkspaceSymbolParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	results := s.engine.Search(params.Query, search.Options{
		Limit: s.cfg.Search.DefaultLimit,
	})
	out := make([]protocol.SymbolInformation, 0, len(results))
	for _, res := range results {
		out = append(out, protocol.SymbolInformation{
			Name: res.Name,
			Kind: lspKind(res.Entry.Kind),
			Location: protocol.Location{
				URI:   protocol.DocumentURI(s.absURI(res.Entry.FileID)),
				Range: lspRange(res.Entry),
			},
			ContainerName: res.Entry.Owner,
		})
	}
	return out, nil
}

func lspKind(k entry.Kind) protocol.SymbolKind {
	switch k {
	case entry.KindClass, entry.KindSingletonClass:
		return protocol.SymbolKindClass
	case entry.KindModule:
		return protocol.SymbolKindModule
	case entry.KindMethod, entry.KindSingletonMethod, entry.KindMethodAlias:
		return protocol.SymbolKindMethod
	case entry.KindAccessor:
		return protocol.SymbolKindProperty
	case entry.KindConstant, entry.KindConstantAlias:
		return protocol.SymbolKindConstant
	default:
		return protocol.SymbolKindVariable
	}
}

func lspRange(e *entry.Entry) protocol.Range {
	loc := e.Location
	if e.NameLocation.StartLine != 0 {
		loc = e.NameLocation
	}
	return protocol.Range{
		Start: protocol.Position{Line: uint32(loc.StartLine - 1), Character: uint32(loc.StartColumn)},
		End:   protocol.Position{Line: uint32(loc.EndLine - 1), Character: uint32(loc.EndColumn)},
	}
}

// resolveConstantParams is the payload of rbls/resolveConstant.
type resolveConstantParams struct {
	Name    string   `json:"name"`
	Nesting []string `json:"nesting,omitempty"`
}

func (s *Server) handleResolveConstant(req *jsonrpc2.Request) (interface{}, error) {
	if err := s.requireInitialized(); err != nil {
		return nil, err
	}
	var params resolveConstantParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}
	return s.engine.ResolveConstant(params.Name, params.Nesting), nil
}

// resolveMethodParams is the payload of rbls/resolveMethod.
type resolveMethodParams struct {
	Name      string `json:"name"`
	Owner     string `json:"owner,omitempty"`
	Singleton bool   `json:"singleton,omitempty"`
}

func (s *Server) handleResolveMethod(req *jsonrpc2.Request) (interface{}, error) {
	if err := s.requireInitialized(); err != nil {
		return nil, err
	}
	var params resolveMethodParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}
	return s.engine.ResolveMethod(params.Name, params.Owner, params.Singleton), nil
}

// ancestorsParams is the payload of rbls/ancestors.
type ancestorsParams struct {
	Name string `json:"name"`
}

func (s *Server) handleAncestors(req *jsonrpc2.Request) (interface{}, error) {
	if err := s.requireInitialized(); err != nil {
		return nil, err
	}
	var params ancestorsParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}
	chain := s.engine.AncestorsOf(params.Name)
	if chain == nil {
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: string(rblserrors.SymbolNotFound) + ": " + params.Name,
		}
	}
	return chain, nil
}
