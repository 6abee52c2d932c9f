package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mzyun/novelgate/internal/errs"
)

// fakeContentsAPI is an in-memory stand-in for the contents endpoint with
// sha-conditional writes.
type fakeContentsAPI struct {
	mu    sync.Mutex
	files map[string]fakeFile // path -> file
	puts  int

	// rejectNextPut forces one 409 regardless of sha, to exercise retries.
	rejectNextPut bool
}

type fakeFile struct {
	content []byte
	sha     string
}

func (f *fakeContentsAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/repos/owner/repo/contents/"))
		path := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/contents/")

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			file, ok := f.files[path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content":  base64.StdEncoding.EncodeToString(file.content),
				"encoding": "base64",
				"sha":      file.sha,
			})
		case http.MethodPut:
			f.puts++
			if f.rejectNextPut {
				f.rejectNextPut = false
				w.WriteHeader(http.StatusConflict)
				return
			}
			var req struct {
				Message string `json:"message"`
				Content string `json:"content"`
				SHA     string `json:"sha"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			existing, exists := f.files[path]
			if exists && req.SHA != existing.sha {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			raw, err := base64.StdEncoding.DecodeString(req.Content)
			require.NoError(t, err)
			newSHA := fmt.Sprintf("sha-%d", f.puts)
			f.files[path] = fakeFile{content: raw, sha: newSHA}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": map[string]any{"sha": newSHA},
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newFakeAPI(t *testing.T) (*fakeContentsAPI, *Client) {
	t.Helper()
	api := &fakeContentsAPI{files: map[string]fakeFile{}}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	client := NewClient("tok", "owner", "repo", "main", WithBaseURL(srv.URL))
	return api, client
}

func TestClient_GetPutRoundTrip(t *testing.T) {
	_, client := newFakeAPI(t)
	ctx := context.Background()

	sha, err := client.PutFile(ctx, "posts/hello.md", []byte("# hi\n"), "", "create")
	require.NoError(t, err)
	require.NotEmpty(t, sha)

	f, err := client.GetFile(ctx, "posts/hello.md")
	require.NoError(t, err)
	require.Equal(t, []byte("# hi\n"), f.Content)
	require.Equal(t, sha, f.SHA)
}

func TestClient_GetMissing(t *testing.T) {
	_, client := newFakeAPI(t)
	_, err := client.GetFile(context.Background(), "nope.md")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestClient_PutStaleSHA(t *testing.T) {
	_, client := newFakeAPI(t)
	ctx := context.Background()

	_, err := client.PutFile(ctx, "a.md", []byte("v1"), "", "create")
	require.NoError(t, err)

	_, err = client.PutFile(ctx, "a.md", []byte("v2"), "stale", "update")
	require.ErrorIs(t, err, errs.ErrVersionConflict)
}
