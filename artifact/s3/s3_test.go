package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/commonpool/artifact"
	"github.com/hupe1980/commonpool/core"
)

// mockRoundTripper provides a tiny fake S3 subset sufficient to exercise the store without network access.
type mockRoundTripper struct {
	mu    sync.Mutex
	state map[string][]byte
	puts  int
}

func newMock() *mockRoundTripper { return &mockRoundTripper{state: map[string][]byte{}} }

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range m.state {
			if prefix == "" || strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("<?xml version=\"1.0\"?><ListBucketResult><IsTruncated>false</IsTruncated>")
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(m.state[k]))
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	}
	switch req.Method {
	case http.MethodHead:
		if body, ok := m.state[key]; ok {
			return respond(http.StatusOK, nil, http.Header{"Content-Length": {fmt.Sprintf("%d", len(body))}}), nil
		}
		return respond(http.StatusNotFound, nil, http.Header{}), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.puts++
		m.state[key] = body
		return respond(http.StatusOK, nil, http.Header{"ETag": {"\"etag\""}}), nil
	case http.MethodGet:
		if body, ok := m.state[key]; ok {
			return respond(http.StatusOK, body, http.Header{
				"Content-Length": {fmt.Sprintf("%d", len(body))},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			}), nil
		}
		return respond(http.StatusNotFound, nil, http.Header{}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

func respond(code int, body []byte, h http.Header) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(body)), Header: h}
}

// decodeChunked decodes a single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.SplitN(string(b), "\r\n", 3)
	if len(parts) < 3 {
		return nil, false
	}
	var sz int
	if _, err := fmt.Sscanf(parts[0], "%x", &sz); err != nil || sz > len(parts[1])+len(parts[2]) {
		return nil, false
	}
	rest := parts[1] + "\r\n" + parts[2]
	if !strings.HasPrefix(rest[sz:], "\r\n0") {
		return nil, false
	}
	return []byte(rest[:sz]), true
}

func newTestStore(t *testing.T, rt http.RoundTripper, prefix string) *Store {
	t.Helper()
	s, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "sim-bucket",
		Prefix:          prefix,
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: rt},
	})
	require.NoError(t, err)
	return s
}

func record(id string, start time.Time) *core.SimulationRecord {
	rec := core.NewSimulationRecord(id, start)
	rec.InitialStates["Alice"] = core.StateSnapshot{Name: "Alice", Personality: "generous", Resources: map[core.Resource]int{}, Needs: []core.Resource{}}
	rec.FinalStates["Alice"] = rec.InitialStates["Alice"].Clone()
	end := start.Add(time.Minute)
	rec.EndTime = &end
	rec.Summary = "quiet"
	return rec
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestStore_PutGetList(t *testing.T) {
	rt := newMock()
	s := newTestStore(t, rt, "simulation_logs/")
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC)

	payload, name, err := artifact.Encode(record("first", start), false)
	require.NoError(t, err)
	require.NoError(t, s.PutRecord(ctx, name, payload))
	assert.Contains(t, rt.state, "simulation_logs/sim_first_20240301_093015.json")

	zpayload, zname, err := artifact.Encode(record("second", start.Add(time.Hour)), true)
	require.NoError(t, err)
	require.NoError(t, s.PutRecord(ctx, zname, zpayload))

	rt.state["simulation_logs/readme.txt"] = []byte("not a record")

	doc, err := s.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, payload, doc)

	doc, err = s.Get(ctx, zname)
	require.NoError(t, err)
	rec, err := core.ParseSimulationRecord(doc)
	require.NoError(t, err)
	assert.Equal(t, "second", rec.SimulationID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ID)
	assert.Equal(t, zname, list[0].Filename)
	assert.Equal(t, "first", list[1].ID)
	assert.Equal(t, []string{"Alice"}, list[1].Participants)
}

func TestStore_CreateOnly(t *testing.T) {
	rt := newMock()
	s := newTestStore(t, rt, "")
	ctx := context.Background()

	require.NoError(t, s.PutRecord(ctx, "sim_a_20240101_000000.json", []byte(`{}`)))
	err := s.PutRecord(ctx, "sim_a_20240101_000000.json", []byte(`{"x":1}`))
	assert.ErrorIs(t, err, artifact.ErrExists)
	assert.Equal(t, 1, rt.puts)
	assert.Equal(t, []byte(`{}`), rt.state["sim_a_20240101_000000.json"])
}

func TestStore_GetErrors(t *testing.T) {
	s := newTestStore(t, newMock(), "")

	_, err := s.Get(context.Background(), "sim_missing_20240101_000000.json")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = s.Get(context.Background(), "../sim_x.json")
	assert.ErrorIs(t, err, artifact.ErrInvalidFilename)
}

func TestStore_AsFileStoreMirror(t *testing.T) {
	rt := newMock()
	s := newTestStore(t, rt, "runs/")
	fs := artifact.NewFileStore(t.TempDir(), func(o *artifact.FileStoreOptions) { o.Mirror = s })

	_, err := fs.Save(context.Background(), record("mirrored", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, err)
	assert.Contains(t, rt.state, "runs/sim_mirrored_20240102_030405.json")
}

func TestStore_ListEmpty(t *testing.T) {
	s := newTestStore(t, newMock(), "")
	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}
