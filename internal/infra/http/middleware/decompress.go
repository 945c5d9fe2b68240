package middleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/contentgraph/api/pkg/apierror"
)

// maxDecompressedSize bounds the decompressed body so a small compressed
// payload cannot expand without limit.
const maxDecompressedSize = 50 << 20

// Decompress transparently decompresses gzip-encoded request bodies, so
// bulk import payloads can be shipped compressed.
func Decompress() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead ||
				r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			encoding := strings.ToLower(r.Header.Get("Content-Encoding"))
			if encoding == "" || encoding == "identity" {
				next.ServeHTTP(w, r)
				return
			}
			if encoding != "gzip" {
				apierror.New(http.StatusUnsupportedMediaType, "unsupported_encoding",
					"Unsupported Content-Encoding: "+encoding).WriteJSON(w)
				return
			}

			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				apierror.BadRequest("Malformed gzip body").WriteJSON(w)
				return
			}
			defer gz.Close()

			r.Body = io.NopCloser(io.LimitReader(gz, maxDecompressedSize))
			r.Header.Del("Content-Encoding")
			r.ContentLength = -1

			next.ServeHTTP(w, r)
		})
	}
}
