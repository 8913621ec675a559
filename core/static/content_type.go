package static

import (
	"maps"
	"mime"
	"path"
	"strings"
)

// DefaultContentType is used for files whose extension is unknown.
const DefaultContentType = "application/octet-stream"

// defaultContentTypes maps lower case extensions, without the dot, to content types.
var defaultContentTypes = map[string]string{
	"html":  "text/html",
	"css":   "text/css",
	"js":    "text/javascript",
	"png":   "image/png",
	"jpg":   "image/jpg",
	"jpeg":  "image/jpeg",
	"gif":   "image/gif",
	"svg":   "image/svg+xml",
	"ico":   "image/x-icon",
	"json":  "application/json",
	"pdf":   "application/pdf",
	"xml":   "application/xml",
	"zip":   "application/zip",
	"gzip":  "application/gzip",
	"mp3":   "audio/mpeg",
	"wav":   "audio/wav",
	"mp4":   "video/mp4",
	"mpeg":  "video/mpeg",
	"webm":  "video/webm",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"ttf":   "font/ttf",
	"otf":   "font/otf",
	"eot":   "font/eot",
}

// ContentTypes resolves file names to content types. The zero value is not
// usable; create one with NewContentTypes.
type ContentTypes struct {
	types map[string]string
}

// NewContentTypes returns the default extension table.
func NewContentTypes() *ContentTypes {
	return &ContentTypes{types: maps.Clone(defaultContentTypes)}
}

// Add registers or replaces the content type for ext. A leading dot is ignored.
func (c *ContentTypes) Add(ext, contentType string) *ContentTypes {
	c.types[normalizeExt(ext)] = contentType
	return c
}

// Lookup returns the content type for name. Extensions missing from the table
// fall back to the system MIME database and finally to DefaultContentType.
func (c *ContentTypes) Lookup(name string) string {
	ext := path.Ext(name)
	if ct, ok := c.types[normalizeExt(ext)]; ok {
		return ct
	}
	if ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return DefaultContentType
}

func (c *ContentTypes) clone() *ContentTypes {
	return &ContentTypes{types: maps.Clone(c.types)}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
