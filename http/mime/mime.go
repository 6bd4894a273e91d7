package mime

import (
	"path/filepath"
	"strings"

	"github.com/indigo-web/tandem/internal/strutil"
)

type MIME = string

const (
	OctetStream    MIME = "application/octet-stream"
	Plain          MIME = "text/plain"
	HTML           MIME = "text/html"
	XML            MIME = "text/xml"
	JSON           MIME = "application/json"
	YAML           MIME = "application/yaml"
	PDF            MIME = "application/pdf"
	FormUrlencoded MIME = "application/x-www-form-urlencoded"
	Multipart      MIME = "multipart/form-data"
	ZIP            MIME = "application/zip"
	GZIP           MIME = "application/gzip"
	ZLIB           MIME = "application/zlib"
	ZSTD           MIME = "application/zstd"
	AVIF           MIME = "image/avif"
	CSS            MIME = "text/css"
	GIF            MIME = "image/gif"
	JPEG           MIME = "image/jpeg"
	PNG            MIME = "image/png"
	SVG            MIME = "image/svg+xml"
	ICO            MIME = "image/vnd.microsoft.icon"
	WEBP           MIME = "image/webp"
	JS             MIME = "text/javascript"
	WASM           MIME = "application/wasm"
)

// UTF8 is the charset parameter appended to textual types.
const UTF8 = "; charset=utf-8"

var Extension = map[string]MIME{
	".avif": AVIF,
	".css":  CSS,
	".gif":  GIF,
	".htm":  HTML,
	".html": HTML,
	".jpeg": JPEG,
	".jpg":  JPEG,
	".js":   JS,
	".mjs":  JS,
	".json": JSON,
	".pdf":  PDF,
	".png":  PNG,
	".svg":  SVG,
	".txt":  Plain,
	".wasm": WASM,
	".webp": WEBP,
	".xml":  XML,
	".gz":   GZIP,
	".yaml": YAML,
	".yml":  YAML,
	".zip":  ZIP,
	".zlib": ZLIB,
	".zst":  ZSTD,
	".ico":  ICO,
}

// ByPath returns the Content-Type value for the file, judging by its extension. Textual
// types carry the charset parameter. Unknown extensions are octet streams.
func ByPath(path string) string {
	m, found := Extension[strings.ToLower(filepath.Ext(path))]
	if !found {
		return OctetStream
	}

	if strings.HasPrefix(m, "text/") {
		return m + UTF8
	}

	return m
}

// Complies returns whether two MIMEs are compatible. Empty MIME is
// considered compatible with any other MIME
func Complies(mime MIME, with string) bool {
	// get rid of parameters if any
	with = strutil.CutParams(with)
	return len(with) == 0 || strutil.CmpFold(with, mime)
}
