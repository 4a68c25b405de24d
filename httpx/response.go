package httpx

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ResponseBuffer captures a handler's response so the caller can inspect it
// before deciding whether to forward it.
type ResponseBuffer interface {
	http.ResponseWriter
	Status() int
	Body() []byte
	Flush(w http.ResponseWriter) error
}

type responseBuffer struct {
	status int
	header http.Header
	body   *bytes.Buffer
}

func NewResponseBuffer() ResponseBuffer {
	return &responseBuffer{}
}

// Status is 200 once anything was written without an explicit status.
func (resp *responseBuffer) Status() int {
	if resp.status == 0 && resp.body != nil {
		return http.StatusOK
	}
	return resp.status
}

func (resp *responseBuffer) Header() http.Header {
	if resp.header == nil {
		resp.header = http.Header{}
	}
	return resp.header
}

func (resp *responseBuffer) Body() []byte {
	if resp.body == nil {
		return nil
	}
	return resp.body.Bytes()
}

func (resp *responseBuffer) Write(body []byte) (int, error) {
	if resp.body == nil {
		resp.body = &bytes.Buffer{}
	}
	return resp.body.Write(body)
}

func (resp *responseBuffer) WriteHeader(statusCode int) {
	if resp.status == 0 {
		resp.status = statusCode
	}
}

func (resp *responseBuffer) Flush(w http.ResponseWriter) error {
	if resp.header != nil {
		header := w.Header()
		for key, value := range resp.header {
			header[key] = value
		}
	}
	if resp.status != 0 {
		w.WriteHeader(resp.status)
	}
	if resp.body != nil {
		_, err := w.Write(resp.body.Bytes())
		return err
	}
	return nil
}

// GrantRequest builds the form-encoded token request the bearer server
// expects for the given grant.
func GrantRequest(r *http.Request, grant url.Values) *http.Request {
	body := grant.Encode()
	req, _ := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if r != nil {
		req = req.WithContext(r.Context())
		req.RemoteAddr = r.RemoteAddr
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))
	return req
}
