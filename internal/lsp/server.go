package lsp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.lsp.dev/jsonrpc2"

	"github.com/jarredhawkins/gherkin-lsp/internal/config"
	"github.com/jarredhawkins/gherkin-lsp/internal/index"
	"github.com/jarredhawkins/gherkin-lsp/internal/query"
	"github.com/jarredhawkins/gherkin-lsp/internal/watcher"
	"github.com/jarredhawkins/gherkin-lsp/internal/workspace"
)

const (
	serverName    = "gherkin-lsp"
	serverVersion = "0.1.0"
)

// Options configures the server
type Options struct {
	// Root overrides the workspace root sent by the client
	Root string
	// Watch rebuilds the index when step, feature or settings files change
	Watch bool
}

// Server implements the LSP server
type Server struct {
	opts      Options
	documents *DocumentStore
	workspace atomic.Pointer[workspace.Workspace]

	ctx  context.Context
	conn jsonrpc2.Conn

	mu          sync.Mutex
	watcher     *watcher.Watcher
	warnedURI   string // settings file carrying config warnings
	shutdownReq atomic.Bool
}

// NewServer creates a new LSP server
func NewServer(opts Options) *Server {
	return &Server{
		opts:      opts,
		documents: NewDocumentStore(),
		ctx:       context.Background(),
	}
}

// Serve starts the LSP server on the given reader/writer
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)
	s.ctx = ctx
	s.conn = conn

	conn.Go(ctx, s.handler)
	defer s.stopWatcher()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-conn.Done():
		if s.shutdownReq.Load() {
			return nil
		}
		return conn.Err()
	}
}

func (s *Server) handler(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	slog.Debug("lsp request", "method", req.Method())

	switch req.Method() {
	case "initialize":
		return s.handleInitialize(ctx, reply, req)
	case "initialized":
		return s.handleInitialized(ctx, reply, req)
	case "shutdown":
		s.shutdownReq.Store(true)
		s.stopWatcher()
		return reply(ctx, nil, nil)
	case "exit":
		return s.conn.Close()
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, reply, req)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, reply, req)
	case "textDocument/didClose":
		return s.handleDidClose(ctx, reply, req)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, reply, req)
	case "textDocument/completion":
		return s.handleCompletion(ctx, reply, req)
	case "completionItem/resolve":
		return s.handleCompletionResolve(ctx, reply, req)
	case "textDocument/definition":
		return s.handleDefinition(ctx, reply, req)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(ctx, reply, req)
	default:
		return reply(ctx, nil, &jsonrpc2.Error{
			Code:    jsonrpc2.MethodNotFound,
			Message: "method not supported: " + req.Method(),
		})
	}
}

func invalidParams(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, &jsonrpc2.Error{
		Code:    jsonrpc2.InvalidParams,
		Message: err.Error(),
	})
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return invalidParams(ctx, reply, err)
	}

	root := s.rootFor(params)
	ws, err := workspace.Open(root, params.InitializationOptions)
	if err != nil {
		slog.Warn("invalid settings, using defaults", "root", root, "error", err)
		ws = workspace.New(root, config.Find(root), config.Defaults())
	}
	if err := ws.Rebuild(ctx); err != nil {
		slog.Error("failed to build step index", "root", root, "error", err)
	}
	s.workspace.Store(ws)

	if idx := ws.Index(); idx != nil {
		slog.Info("step index built", "root", ws.Root(), "steps", idx.Len())
	}

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save:      &SaveOptions{},
			},
			CompletionProvider: &CompletionOptions{
				ResolveProvider:   true,
				TriggerCharacters: []string{" "},
			},
			DefinitionProvider: true,
		},
		ServerInfo: &ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
	}
	return reply(ctx, result, nil)
}

func (s *Server) rootFor(params InitializeParams) string {
	switch {
	case s.opts.Root != "":
		return s.opts.Root
	case params.RootURI != "":
		return uriToPath(params.RootURI)
	case params.RootPath != "":
		return params.RootPath
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func (s *Server) handleInitialized(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if s.opts.Watch {
		s.startWatcher()
	}
	s.publishWarnings(ctx)
	return reply(ctx, nil, nil)
}

func (s *Server) startWatcher() {
	ws := s.workspace.Load()
	if ws == nil {
		return
	}

	w, err := watcher.New(ws.Root(), ws.Affects, s.onFilesChanged)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		return
	}
	if err := w.Start(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		w.Close()
		return
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
}

func (s *Server) stopWatcher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

func (s *Server) watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watcher != nil
}

// onFilesChanged rebuilds after step, feature or settings files changed
func (s *Server) onFilesChanged(changed, removed []string) {
	ws := s.workspace.Load()
	if ws == nil {
		return
	}

	reload := false
	for _, path := range append(changed, removed...) {
		if config.IsSettingsFile(ws.Root(), path) {
			reload = true
		}
	}

	var err error
	if reload {
		err = ws.Reload(s.ctx)
	} else {
		err = ws.Rebuild(s.ctx)
	}
	if err != nil {
		slog.Error("failed to rebuild step index", "error", err)
		return
	}
	s.refresh(s.ctx)
}

// refresh republishes diagnostics of open feature documents and the
// configuration warnings
func (s *Server) refresh(ctx context.Context) {
	for _, doc := range s.documents.All() {
		if workspace.IsFeature(uriToPath(doc.URI)) {
			s.publishDiagnostics(ctx, doc)
		}
	}
	s.publishWarnings(ctx)
}

func (s *Server) engine() *query.Engine {
	if ws := s.workspace.Load(); ws != nil {
		return ws.Engine()
	}
	return nil
}

func (s *Server) handleDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	item := params.TextDocument
	s.documents.Open(item.URI, item.Version, item.Text)
	if doc, ok := s.documents.Get(item.URI); ok && workspace.IsFeature(uriToPath(item.URI)) {
		s.publishDiagnostics(ctx, doc)
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	if len(params.ContentChanges) > 0 {
		// Full sync mode - just take the last content
		uri := params.TextDocument.URI
		s.documents.Update(uri, params.TextDocument.Version, params.ContentChanges[len(params.ContentChanges)-1].Text)
		if doc, ok := s.documents.Get(uri); ok && workspace.IsFeature(uriToPath(uri)) {
			s.publishDiagnostics(ctx, doc)
		}
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	uri := params.TextDocument.URI
	s.documents.Close(uri)
	if workspace.IsFeature(uriToPath(uri)) {
		s.notify(ctx, PublishDiagnosticsParams{URI: uri, Diagnostics: []Diagnostic{}})
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	uri := params.TextDocument.URI
	path := uriToPath(uri)
	ws := s.workspace.Load()

	switch {
	case workspace.IsFeature(path):
		if doc, ok := s.documents.Get(uri); ok {
			s.publishDiagnostics(ctx, doc)
		}
	case ws != nil && !s.watching() && ws.Affects(path):
		// without a watcher, saves are the only signal that steps changed
		var err error
		if config.IsSettingsFile(ws.Root(), path) {
			err = ws.Reload(ctx)
		} else {
			err = ws.Rebuild(ctx)
		}
		if err != nil {
			slog.Error("failed to rebuild step index", "error", err)
		} else {
			s.refresh(ctx)
		}
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params CompletionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return invalidParams(ctx, reply, err)
	}

	engine := s.engine()
	if engine == nil {
		return reply(ctx, nil, nil)
	}
	doc, err := s.documents.Load(params.TextDocument.URI)
	if err != nil {
		slog.Warn("failed to read document", "uri", params.TextDocument.URI, "error", err)
		return reply(ctx, nil, nil)
	}

	lineIndex := int(params.Position.Line)
	line := doc.Line(lineIndex)
	prefix := line[:utf16ToByteOffset(line, int(params.Position.Character))]

	candidates := engine.Complete(prefix, lineIndex, doc.Lines)
	if candidates == nil {
		return reply(ctx, nil, nil)
	}
	return reply(ctx, completionItems(candidates), nil)
}

func completionItems(candidates []query.Candidate) []CompletionItem {
	items := make([]CompletionItem, len(candidates))
	for i, c := range candidates {
		items[i] = CompletionItem{
			Label:            c.Label,
			Kind:             completionItemKindSnippet,
			Detail:           c.Detail,
			Documentation:    c.Documentation,
			SortText:         c.SortText,
			InsertText:       c.InsertText,
			InsertTextFormat: insertTextFormatSnippet,
			Data:             c.ID,
		}
	}
	return items
}

func (s *Server) handleCompletionResolve(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var item CompletionItem
	if err := json.Unmarshal(req.Params(), &item); err != nil {
		return invalidParams(ctx, reply, err)
	}

	if id, ok := item.Data.(string); ok && id != "" {
		if engine := s.engine(); engine != nil {
			engine.ResolveAcceptance(id)
		}
	}
	return reply(ctx, item, nil)
}

func (s *Server) handleDefinition(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return invalidParams(ctx, reply, err)
	}

	engine := s.engine()
	if engine == nil {
		return reply(ctx, nil, nil)
	}
	doc, err := s.documents.Load(params.TextDocument.URI)
	if err != nil {
		slog.Warn("failed to read document", "uri", params.TextDocument.URI, "error", err)
		return reply(ctx, nil, nil)
	}

	lineIndex := int(params.Position.Line)
	loc := engine.FindDefinition(doc.Line(lineIndex), lineIndex, doc.Lines)
	if loc == nil {
		return reply(ctx, nil, nil)
	}

	pos := Position{Line: uint32(loc.Line)}
	return reply(ctx, Location{
		URI:   pathToURI(loc.Path),
		Range: Range{Start: pos, End: pos},
	}, nil)
}

func (s *Server) handleDidChangeConfiguration(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidChangeConfigurationParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	ws := s.workspace.Load()
	if ws == nil {
		return reply(ctx, nil, nil)
	}

	settings, err := config.FromLSP(params.Settings, ws.Settings())
	if err == nil {
		err = ws.UpdateSettings(ctx, settings)
	}
	if err != nil {
		slog.Warn("ignoring settings", "error", err)
		return reply(ctx, nil, nil)
	}
	s.refresh(ctx)
	return reply(ctx, nil, nil)
}

// publishDiagnostics validates every line of a feature document
func (s *Server) publishDiagnostics(ctx context.Context, doc *Document) {
	engine := s.engine()
	if engine == nil {
		return
	}

	diagnostics := []Diagnostic{}
	for i, line := range doc.Lines {
		if d := engine.Validate(line, i, doc.Lines); d != nil {
			diagnostics = append(diagnostics, toDiagnostic(line, d))
		}
	}
	s.notify(ctx, PublishDiagnosticsParams{URI: doc.URI, Diagnostics: diagnostics})
}

func toDiagnostic(line string, d *query.Diagnostic) Diagnostic {
	return Diagnostic{
		Range: Range{
			Start: Position{Line: uint32(d.Line), Character: uint32(byteToUTF16Offset(line, d.StartChar))},
			End:   Position{Line: uint32(d.Line), Character: uint32(byteToUTF16Offset(line, d.EndChar))},
		},
		Severity: DiagnosticSeverity(d.Severity),
		Source:   serverName,
		Message:  d.Message,
	}
}

// publishWarnings reports step globs that matched no files on the settings
// file they came from. Without a settings file they are only logged.
func (s *Server) publishWarnings(ctx context.Context) {
	ws := s.workspace.Load()
	if ws == nil {
		return
	}
	warnings := ws.Warnings()
	path := ws.SettingsPath()

	s.mu.Lock()
	previous := s.warnedURI
	s.warnedURI = ""
	s.mu.Unlock()

	if path == "" {
		for _, w := range warnings {
			slog.Warn("config warning", "pattern", w.Pattern, "message", w.Message)
		}
		if previous != "" {
			s.notify(ctx, PublishDiagnosticsParams{URI: previous, Diagnostics: []Diagnostic{}})
		}
		return
	}

	uri := pathToURI(path)
	if previous != "" && previous != uri {
		s.notify(ctx, PublishDiagnosticsParams{URI: previous, Diagnostics: []Diagnostic{}})
	}
	if len(warnings) == 0 && previous == "" {
		return
	}

	content := ""
	if doc, err := s.documents.Load(uri); err == nil {
		content = doc.Content
	}
	s.notify(ctx, PublishDiagnosticsParams{URI: uri, Diagnostics: warningDiagnostics(content, warnings)})

	if len(warnings) > 0 {
		s.mu.Lock()
		s.warnedURI = uri
		s.mu.Unlock()
	}
}

// warningDiagnostics places each warning on its glob in the settings file
// text, or at the start of the file. A quoted occurrence wins over bare text
// so a glob that is a prefix of another one lands on its own entry.
func warningDiagnostics(content string, warnings []index.ConfigWarning) []Diagnostic {
	diagnostics := make([]Diagnostic, 0, len(warnings))
	for _, w := range warnings {
		var r Range
		if i := patternOffset(content, w.Pattern); i >= 0 {
			r = Range{Start: positionAt(content, i), End: positionAt(content, i+len(w.Pattern))}
		}
		diagnostics = append(diagnostics, Diagnostic{
			Range:    r,
			Severity: SeverityWarning,
			Source:   serverName,
			Message:  w.Message,
		})
	}
	return diagnostics
}

// patternOffset returns the byte offset of pattern in content, or -1
func patternOffset(content, pattern string) int {
	if pattern == "" {
		return -1
	}
	for _, q := range []string{`"`, "'"} {
		if i := strings.Index(content, q+pattern+q); i >= 0 {
			return i + len(q)
		}
	}
	return strings.Index(content, pattern)
}

func (s *Server) notify(ctx context.Context, params PublishDiagnosticsParams) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", params); err != nil {
		slog.Warn("failed to publish diagnostics", "uri", params.URI, "error", err)
	}
}

// readWriteCloser wraps reader and writer into a ReadWriteCloser
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
