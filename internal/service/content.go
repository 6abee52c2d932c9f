package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/repository/github"
)

// FileStore is the Git hosting collaborator for content edits.
type FileStore interface {
	GetFile(ctx context.Context, path string) (*github.File, error)
	PutFile(ctx context.Context, path string, content []byte, sha, message string) (string, error)
}

// UpdateRequest describes one Markdown edit: front-matter field updates
// and/or a body change.
type UpdateRequest struct {
	Path        string         `json:"path"`
	FrontMatter map[string]any `json:"frontMatter,omitempty"`
	Body        *string        `json:"body,omitempty"`
	AppendBody  string         `json:"appendBody,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// UpdateResult reports the written file and its new content sha.
type UpdateResult struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
}

// ContentService mediates Markdown edits through the Git hosting API.
type ContentService interface {
	UpdateMarkdown(ctx context.Context, req UpdateRequest) (*UpdateResult, error)
}

// Content implements ContentService.
type Content struct {
	files FileStore
}

// NewContent constructs the content service.
func NewContent(files FileStore) *Content { return &Content{files: files} }

// UpdateMarkdown fetches the file, applies front-matter and body edits, and
// writes it back conditioned on the fetched sha. A sha conflict (someone else
// wrote in between) is retried once with a fresh read, then surfaced as a
// version conflict.
func (s *Content) UpdateMarkdown(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("%w: missing path", errs.ErrBadRequest)
	}
	if len(req.FrontMatter) == 0 && req.Body == nil && req.AppendBody == "" {
		return nil, fmt.Errorf("%w: nothing to update", errs.ErrBadRequest)
	}
	msg := req.Message
	if msg == "" {
		msg = fmt.Sprintf("content: update %s", req.Path)
	}

	for attempt := 0; ; attempt++ {
		f, err := s.files.GetFile(ctx, req.Path)
		if err != nil {
			return nil, err
		}
		next, err := applyEdits(f.Content, req)
		if err != nil {
			return nil, err
		}
		sha, err := s.files.PutFile(ctx, req.Path, next, f.SHA, msg)
		if err == nil {
			return &UpdateResult{Path: req.Path, SHA: sha}, nil
		}
		if !errors.Is(err, errs.ErrVersionConflict) || attempt >= 1 {
			return nil, err
		}
	}
}

func applyEdits(doc []byte, req UpdateRequest) ([]byte, error) {
	fm, body, hasFM := splitFrontMatter(doc)

	if req.Body != nil {
		body = []byte(*req.Body)
	}
	if req.AppendBody != "" {
		if len(body) > 0 && !bytes.HasSuffix(body, []byte("\n")) {
			body = append(body, '\n')
		}
		body = append(body, []byte(req.AppendBody)...)
	}

	if len(req.FrontMatter) == 0 {
		if !hasFM {
			return body, nil
		}
		return assemble(fm, body), nil
	}

	fields := map[string]any{}
	if hasFM {
		if err := yaml.Unmarshal(fm, &fields); err != nil {
			return nil, fmt.Errorf("%w: bad front matter in %s", errs.ErrBadRequest, req.Path)
		}
	}
	for k, v := range req.FrontMatter {
		if v == nil {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	out, err := yaml.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return assemble(out, body), nil
}

// splitFrontMatter separates a leading "---" YAML block from the body. A
// document that is a bare delimiter (or otherwise never closes the block) has
// no front matter.
func splitFrontMatter(doc []byte) (fm, body []byte, ok bool) {
	const delim = "---"
	text := string(doc)
	if !strings.HasPrefix(text, delim+"\n") {
		return nil, doc, false
	}
	rest := text[len(delim)+1:]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, doc, false
	}
	fm = []byte(rest[:idx+1])
	tail := rest[idx+1+len(delim):]
	tail = strings.TrimPrefix(tail, "\n")
	return fm, []byte(tail), true
}

func assemble(fm, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	if !bytes.HasSuffix(fm, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString("---\n")
	buf.Write(body)
	return buf.Bytes()
}
