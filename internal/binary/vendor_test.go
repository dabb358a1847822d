package binary

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// fakeVendor serves driver downloads from memory and counts every request
// by request URI.
type fakeVendor struct {
	server *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
	total  int32
}

func newFakeVendor(t *testing.T) *fakeVendor {
	t.Helper()

	v := &fakeVendor{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	v.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&v.total, 1)

		v.mu.Lock()
		v.hits[r.URL.RequestURI()]++
		h, ok := v.routes[r.URL.RequestURI()]
		v.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(v.server.Close)
	return v
}

func (v *fakeVendor) URL() string {
	return v.server.URL
}

func (v *fakeVendor) handle(uri string, h http.HandlerFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.routes[uri] = h
}

func (v *fakeVendor) serve(uri string, body []byte) {
	v.handle(uri, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})
}

func (v *fakeVendor) redirect(uri, location string) {
	v.handle(uri, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, location, http.StatusFound)
	})
}

func (v *fakeVendor) hitsFor(uri string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hits[uri]
}

func (v *fakeVendor) requests() int {
	return int(atomic.LoadInt32(&v.total))
}

// mirrors points every family at the fake vendor.
func (v *fakeVendor) mirrors() Mirrors {
	m := make(Mirrors)
	for _, f := range Families() {
		m[f] = v.URL()
	}
	return m
}

// s3Listing renders a ListBucketResult document.
func s3Listing(nextMarker string, keys ...string) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://doc.s3.amazonaws.com/2006-03-01">`)
	for _, k := range keys {
		fmt.Fprintf(&sb, "<Contents><Key>%s</Key><Size>1</Size></Contents>", k)
	}
	if nextMarker != "" {
		fmt.Fprintf(&sb, "<IsTruncated>true</IsTruncated><NextMarker>%s</NextMarker>", nextMarker)
	}
	sb.WriteString("</ListBucketResult>")
	return []byte(sb.String())
}

// fakeProbe reports a fixed browser version.
type fakeProbe struct {
	version string
	err     error
	calls   int32
}

func (p *fakeProbe) BrowserVersion(_ context.Context, _ Family, _ platform.OsType) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	return p.version, p.err
}

func (p *fakeProbe) called() int {
	return int(atomic.LoadInt32(&p.calls))
}

// mapMemo is an in-memory VersionMemo.
type mapMemo struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapMemo() *mapMemo {
	return &mapMemo{data: make(map[string]string)}
}

func (m *mapMemo) Get(family, mode string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[family+"|"+mode]
	return v, ok
}

func (m *mapMemo) Put(family, mode, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[family+"|"+mode] = version
	return nil
}
