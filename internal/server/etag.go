package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

// bufferingWriter captures status, headers and body so the response can be
// fingerprinted before it is sent.
type bufferingWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferingWriter() *bufferingWriter {
	return &bufferingWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferingWriter) Header() http.Header { return b.header }

func (b *bufferingWriter) WriteHeader(status int) { b.status = status }

func (b *bufferingWriter) Write(p []byte) (int, error) { return b.body.Write(p) }

// etag wraps cacheable GET handlers: successful responses get a sha256 body
// ETag and a public max-age directive, and a matching If-None-Match yields
// an empty 304. Responses are buffered whole, which is fine for payloads
// this size.
func etag(maxAge time.Duration) func(http.Handler) http.Handler {
	cacheControl := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := newBufferingWriter()
			next.ServeHTTP(buf, r)

			for k, vals := range buf.header {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}

			if buf.status != http.StatusOK {
				w.WriteHeader(buf.status)
				_, _ = w.Write(buf.body.Bytes())
				return
			}

			sum := sha256.Sum256(buf.body.Bytes())
			tag := `"` + hex.EncodeToString(sum[:]) + `"`
			w.Header().Set("ETag", tag)
			w.Header().Set("Cache-Control", cacheControl)

			if r.Header.Get("If-None-Match") == tag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(buf.body.Bytes())
		})
	}
}
