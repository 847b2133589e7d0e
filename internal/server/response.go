package server

import (
	"bytes"
	"io"
	"net/http"
)

// responseBuffer is the http.ResponseWriter handed to the router. The whole
// response is buffered so it can be written with an exact Content-Length.
type responseBuffer struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header)}
}

func (b *responseBuffer) Header() http.Header { return b.header }

func (b *responseBuffer) WriteHeader(code int) {
	if b.code == 0 {
		b.code = code
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	b.WriteHeader(http.StatusOK)
	return b.body.Write(p)
}

func (b *responseBuffer) status() int {
	if b.code == 0 {
		return http.StatusOK
	}
	return b.code
}

// response converts the buffer into a single-use HTTP/1.1 response that
// closes the connection. req may be nil when the request could not be read.
func (b *responseBuffer) response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        http.StatusText(b.status()),
		StatusCode:    b.status(),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        b.header,
		Body:          io.NopCloser(bytes.NewReader(b.body.Bytes())),
		ContentLength: int64(b.body.Len()),
		Close:         true,
		Request:       req,
	}
}

func badRequest() *responseBuffer {
	b := newResponseBuffer()
	b.header.Set("Content-Type", "text/plain; charset=utf-8")
	b.WriteHeader(http.StatusBadRequest)
	_, _ = b.body.WriteString(http.StatusText(http.StatusBadRequest))
	return b
}
