package static

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrymomot/krustie/core/handler"
)

// File creates a handler that serves a single static file.
// The file is read on every request so edits show up without a restart.
// Panics at startup if the file doesn't exist or is a directory.
func File(filePath string, opts ...Option) handler.HandlerFunc {
	cleanPath := filepath.Clean(filePath)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			panic("static.File: file does not exist: " + cleanPath)
		}
		panic("static.File: error accessing file: " + err.Error())
	}

	if info.IsDir() {
		panic("static.File: path is a directory, not a file: " + cleanPath)
	}

	s := New(os.DirFS(filepath.Dir(cleanPath)), opts...)
	name := filepath.Base(cleanPath)

	return func(req *handler.Request, res *handler.Response) {
		b, contentType, _, err := s.Open(name)
		if err != nil {
			res.Status(http.StatusNotFound).Text(http.StatusText(http.StatusNotFound))
			return
		}
		res.Body(b, contentType)
	}
}
