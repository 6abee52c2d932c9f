package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/repository/github"
)

type fakeFiles struct {
	files map[string][]byte

	rejectNextPut bool
	puts          int
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: map[string][]byte{}}
}

func blobSHA(content []byte) string {
	h := sha1.Sum(content)
	return hex.EncodeToString(h[:])
}

func (f *fakeFiles) GetFile(_ context.Context, path string) (*github.File, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &github.File{Content: content, SHA: blobSHA(content)}, nil
}

func (f *fakeFiles) PutFile(_ context.Context, path string, content []byte, sha, _ string) (string, error) {
	f.puts++
	if f.rejectNextPut {
		f.rejectNextPut = false
		return "", errs.ErrVersionConflict
	}
	if existing, ok := f.files[path]; ok && sha != blobSHA(existing) {
		return "", errs.ErrVersionConflict
	}
	f.files[path] = content
	return blobSHA(content), nil
}

func frontMatterOf(t *testing.T, doc []byte) map[string]any {
	t.Helper()
	fm, _, ok := splitFrontMatter(doc)
	require.True(t, ok)
	out := map[string]any{}
	require.NoError(t, yaml.Unmarshal(fm, &out))
	return out
}

func TestUpdateMarkdown_FrontMatterSetAndDelete(t *testing.T) {
	files := newFakeFiles()
	files.files["posts/a.md"] = []byte("---\ntitle: Old\ndraft: true\n---\nbody text\n")
	c := NewContent(files)

	res, err := c.UpdateMarkdown(context.Background(), UpdateRequest{
		Path:        "posts/a.md",
		FrontMatter: map[string]any{"title": "New", "draft": nil, "tags": []string{"x"}},
	})
	require.NoError(t, err)
	require.Equal(t, "posts/a.md", res.Path)
	require.NotEmpty(t, res.SHA)

	got := frontMatterOf(t, files.files["posts/a.md"])
	require.Equal(t, "New", got["title"])
	require.NotContains(t, got, "draft")
	require.Contains(t, got, "tags")

	_, body, _ := splitFrontMatter(files.files["posts/a.md"])
	require.Equal(t, "body text\n", string(body))
}

func TestUpdateMarkdown_BodyReplaceAndAppend(t *testing.T) {
	files := newFakeFiles()
	files.files["posts/a.md"] = []byte("---\ntitle: T\n---\nold body")
	c := NewContent(files)

	newBody := "fresh body"
	_, err := c.UpdateMarkdown(context.Background(), UpdateRequest{Path: "posts/a.md", Body: &newBody})
	require.NoError(t, err)
	_, body, _ := splitFrontMatter(files.files["posts/a.md"])
	require.Equal(t, "fresh body", string(body))

	_, err = c.UpdateMarkdown(context.Background(), UpdateRequest{Path: "posts/a.md", AppendBody: "chapter two"})
	require.NoError(t, err)
	_, body, _ = splitFrontMatter(files.files["posts/a.md"])
	require.Equal(t, "fresh body\nchapter two", string(body))

	// front matter untouched by body edits
	got := frontMatterOf(t, files.files["posts/a.md"])
	require.Equal(t, "T", got["title"])
}

func TestUpdateMarkdown_NoFrontMatterDoc(t *testing.T) {
	files := newFakeFiles()
	files.files["raw.md"] = []byte("plain body, no header\n")
	c := NewContent(files)

	// body edit keeps the document header-free
	body := "replaced\n"
	_, err := c.UpdateMarkdown(context.Background(), UpdateRequest{Path: "raw.md", Body: &body})
	require.NoError(t, err)
	require.Equal(t, "replaced\n", string(files.files["raw.md"]))

	// a front-matter edit creates the header block
	_, err = c.UpdateMarkdown(context.Background(), UpdateRequest{
		Path:        "raw.md",
		FrontMatter: map[string]any{"title": "Added"},
	})
	require.NoError(t, err)
	got := frontMatterOf(t, files.files["raw.md"])
	require.Equal(t, "Added", got["title"])
}

func TestUpdateMarkdown_MissingPath(t *testing.T) {
	c := NewContent(newFakeFiles())

	body := "x"
	_, err := c.UpdateMarkdown(context.Background(), UpdateRequest{Path: "gone.md", Body: &body})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateMarkdown_Validation(t *testing.T) {
	c := NewContent(newFakeFiles())

	_, err := c.UpdateMarkdown(context.Background(), UpdateRequest{})
	require.ErrorIs(t, err, errs.ErrBadRequest)

	_, err = c.UpdateMarkdown(context.Background(), UpdateRequest{Path: "a.md"})
	require.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestUpdateMarkdown_RetriesOnceOnConflict(t *testing.T) {
	files := newFakeFiles()
	files.files["posts/a.md"] = []byte("---\ntitle: T\n---\nbody")
	files.rejectNextPut = true
	c := NewContent(files)

	body := "after race"
	_, err := c.UpdateMarkdown(context.Background(), UpdateRequest{Path: "posts/a.md", Body: &body})
	require.NoError(t, err)
	require.Equal(t, 2, files.puts)
	_, got, _ := splitFrontMatter(files.files["posts/a.md"])
	require.Equal(t, "after race", string(got))
}

func TestSplitFrontMatter(t *testing.T) {
	fm, body, ok := splitFrontMatter([]byte("---\na: 1\n---\nbody"))
	require.True(t, ok)
	require.Equal(t, "a: 1\n", string(fm))
	require.Equal(t, "body", string(body))

	// unterminated header is treated as plain body
	_, body, ok = splitFrontMatter([]byte("---\na: 1\nno close"))
	require.False(t, ok)
	require.Equal(t, "---\na: 1\nno close", string(body))

	_, body, ok = splitFrontMatter([]byte("no header"))
	require.False(t, ok)
	require.Equal(t, "no header", string(body))

	// a bare delimiter never closes a block: plain body, no panic
	for _, doc := range []string{"---", "---\n", "--"} {
		require.NotPanics(t, func() {
			_, body, ok = splitFrontMatter([]byte(doc))
			require.False(t, ok, "doc %q", doc)
			require.Equal(t, doc, string(body))
		})
	}
}

func TestUpdateMarkdown_BareDelimiterDoc(t *testing.T) {
	files := newFakeFiles()
	files.files["odd.md"] = []byte("---")
	c := NewContent(files)

	_, err := c.UpdateMarkdown(context.Background(), UpdateRequest{Path: "odd.md", AppendBody: "hi"})
	require.NoError(t, err)
	require.Equal(t, "---\nhi", string(files.files["odd.md"]))
}
