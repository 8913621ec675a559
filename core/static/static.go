package static

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrymomot/krustie/core/handler"
)

// Errors returned while resolving files.
var (
	ErrNotFound    = errors.New("static: file not found")
	ErrInvalidPath = errors.New("static: invalid path")
)

// Server serves files from an fs.FS. Directory listing is never produced: a
// directory resolves to its index file or not at all.
//
// A Server is immutable once created and safe for concurrent use.
type Server struct {
	fsys         fs.FS
	types        *ContentTypes
	index        string
	stripPrefix  string
	param        string
	fallback     string
	cacheControl string
	excludes     []string
}

// Option configures a Server.
type Option func(*Server)

// WithContentType registers or replaces the content type served for ext.
func WithContentType(ext, contentType string) Option {
	return func(s *Server) {
		s.types.Add(ext, contentType)
	}
}

// WithContentTypes replaces the whole extension table.
func WithContentTypes(types *ContentTypes) Option {
	return func(s *Server) {
		if types != nil {
			s.types = types.clone()
		}
	}
}

// WithIndex sets the file served for directories (default: index.html).
func WithIndex(name string) Option {
	return func(s *Server) {
		s.index = name
	}
}

// WithStripPrefix removes prefix from the request path before resolving it.
// It only applies when the route has no wildcard parameter.
func WithStripPrefix(prefix string) Option {
	return func(s *Server) {
		s.stripPrefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithParam names the route parameter holding the file path (default: "*").
func WithParam(name string) Option {
	return func(s *Server) {
		s.param = name
	}
}

// WithFallback serves name for paths without a file extension that do not
// resolve, letting single page applications handle client side routes.
func WithFallback(name string) Option {
	return func(s *Server) {
		s.fallback = name
	}
}

// WithExcludePaths makes the fallback skip paths starting with one of prefixes.
func WithExcludePaths(prefixes ...string) Option {
	return func(s *Server) {
		s.excludes = prefixes
	}
}

// WithCacheControl sets the Cache-Control header of served files.
func WithCacheControl(value string) Option {
	return func(s *Server) {
		s.cacheControl = value
	}
}

// New creates a Server for fsys.
func New(fsys fs.FS, opts ...Option) *Server {
	s := &Server{
		fsys:  fsys,
		types: NewContentTypes(),
		index: "index.html",
		param: "*",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Dir creates a Server for the directory root.
// Panics at startup if the directory doesn't exist.
func Dir(root string, opts ...Option) *Server {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			panic("static.Dir: directory does not exist: " + root)
		}
		panic("static.Dir: error accessing directory: " + err.Error())
	}

	if !info.IsDir() {
		panic("static.Dir: path is not a directory: " + root)
	}

	return New(os.DirFS(root), opts...)
}

// SPA creates a Dir server that falls back to the index file for client side
// routes, excluding /api by default.
func SPA(root string, opts ...Option) *Server {
	base := []Option{WithFallback("index.html"), WithExcludePaths("/api")}
	return Dir(root, append(base, opts...)...)
}

// Handler returns a route handler, meant for wildcard routes:
//
//	r.Get("/assets/*", static.Dir("./public").Handler())
//
// Files that do not resolve are answered with 404.
func (s *Server) Handler() handler.HandlerFunc {
	return func(req *handler.Request, res *handler.Response) {
		if !s.serve(req, res) {
			res.Status(http.StatusNotFound).Text(http.StatusText(http.StatusNotFound))
		}
	}
}

// Process implements handler.Middleware. A GET or HEAD request for an
// existing file is answered and ends the pipeline; anything else continues.
func (s *Server) Process(req *handler.Request, res *handler.Response) handler.Result {
	if req.Method() != handler.MethodGet && req.Method() != handler.MethodHead {
		return handler.Next
	}
	if s.serve(req, res) {
		return handler.End
	}
	return handler.Next
}

// Open resolves name to a file and returns its contents, content type and
// modification time.
func (s *Server) Open(name string) ([]byte, string, time.Time, error) {
	rel, err := cleanPath(name)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	info, err := fs.Stat(s.fsys, rel)
	if err == nil && info.IsDir() {
		rel = path.Join(rel, s.index)
		info, err = fs.Stat(s.fsys, rel)
	}
	if err != nil || info.IsDir() {
		return nil, "", time.Time{}, ErrNotFound
	}

	b, err := fs.ReadFile(s.fsys, rel)
	if err != nil {
		return nil, "", time.Time{}, ErrNotFound
	}

	return b, s.types.Lookup(rel), info.ModTime(), nil
}

func (s *Server) serve(req *handler.Request, res *handler.Response) bool {
	name := s.requestPath(req)

	b, contentType, modTime, err := s.Open(name)
	if err != nil && s.useFallback(name) {
		b, contentType, modTime, err = s.Open(s.fallback)
	}
	if err != nil {
		return false
	}

	res.Status(http.StatusOK)
	if s.cacheControl != "" {
		res.SetHeader("Cache-Control", s.cacheControl)
	}

	if !modTime.IsZero() {
		res.SetHeader("Last-Modified", modTime.UTC().Format(http.TimeFormat))
		if notModified(req, modTime) {
			res.Status(http.StatusNotModified)
			return true
		}
	}

	res.Body(b, contentType)
	return true
}

func (s *Server) requestPath(req *handler.Request) string {
	if v, ok := req.LookupParam(s.param); ok {
		return v
	}
	p := req.Path()
	if s.stripPrefix != "" {
		p = strings.TrimPrefix(p, s.stripPrefix)
	}
	return p
}

func (s *Server) useFallback(name string) bool {
	if s.fallback == "" || path.Ext(name) != "" {
		return false
	}
	p := "/" + strings.TrimPrefix(name, "/")
	for _, prefix := range s.excludes {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	return true
}

// cleanPath turns a request path into a slash separated path relative to the
// filesystem root.
func cleanPath(name string) (string, error) {
	if strings.Contains(name, "\x00") || strings.Contains(name, "\\") {
		return "", ErrInvalidPath
	}

	rel := strings.TrimPrefix(path.Clean("/"+name), "/")
	if rel == "" {
		rel = "."
	}
	if !fs.ValidPath(rel) {
		return "", ErrInvalidPath
	}
	return rel, nil
}

func notModified(req *handler.Request, modTime time.Time) bool {
	since, err := http.ParseTime(req.Header("If-Modified-Since"))
	if err != nil {
		return false
	}
	return !modTime.Truncate(time.Second).After(since)
}
