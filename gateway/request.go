package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request describes an outbound call. It is immutable: every With* method returns a copy,
// and the attempt counter can only be advanced by the gateway itself.
type Request struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	header  http.Header
	attempt int
}

func NewRequest(method, path string) *Request {
	return &Request{method: method, path: path, header: http.Header{}}
}

func (r *Request) Method() string { return r.method }
func (r *Request) Path() string { return r.path }

// Attempt is 0 for the original send and 1 for the single replay after renewal.
func (r *Request) Attempt() int { return r.attempt }

// Retried reports whether this request has already used its one replay.
func (r *Request) Retried() bool { return r.attempt > 0 }

func (r *Request) WithQuery(q url.Values) *Request {
	c := r.clone()
	c.query = url.Values{}
	for k, v := range q {
		c.query[k] = append([]string(nil), v...)
	}
	return c
}

func (r *Request) WithHeader(key, value string) *Request {
	c := r.clone()
	c.header.Set(key, value)
	return c
}

// WithJSON sets v, marshalled, as the request body.
func (r *Request) WithJSON(v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s body: %w", r.method, r.path, err)
	}
	c := r.clone()
	c.body = body
	c.header.Set("Content-Type", "application/json")
	return c, nil
}

func (r *Request) retry() *Request {
	c := r.clone()
	c.attempt = r.attempt + 1
	return c
}

func (r *Request) clone() *Request {
	c := *r
	c.header = r.header.Clone()
	if c.header == nil {
		c.header = http.Header{}
	}
	return &c
}

func (r *Request) String() string {
	return r.method + " " + r.path
}
