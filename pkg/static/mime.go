package static

import "path/filepath"

const defaultContentType = "application/octet-stream"

// mimeTypes maps extensions, as returned by filepath.Ext, to content types.
// Read-only after package initialization.
var mimeTypes = map[string]string{
	".html": "text/html",
	".js":   "text/javascript",
	".css":  "text/css",
	".json": "application/json",
	".gif":  "image/gif",
	".jpeg": "image/jpg",
	".jpg":  "image/jpg",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// ContentType returns the content type for the extension of name. The lookup
// is case-sensitive, so "INDEX.HTML" is served as application/octet-stream.
func ContentType(name string) string {
	if ctype, ok := mimeTypes[filepath.Ext(name)]; ok {
		return ctype
	}
	return defaultContentType
}
