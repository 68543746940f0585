// Package content serves the front-matter markdown articles the comments
// attach to. Files live in a flat content directory; the library keeps an
// in-memory index refreshed on filesystem changes.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("article not found")

// Meta is the article front matter. Keys match the historical content
// files, which were authored in French.
type Meta struct {
	Title        string   `yaml:"titre" json:"titre"`
	Date         string   `yaml:"date" json:"date"`
	Author       string   `yaml:"auteur" json:"auteur"`
	Category     string   `yaml:"categoriePrincipale" json:"categoriePrincipale"`
	Tags         []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Excerpt      string   `yaml:"extrait,omitempty" json:"extrait,omitempty"`
	BasePortions int      `yaml:"basePortions,omitempty" json:"basePortions,omitempty"`
}

// Article is a loaded content file. Slug comes from the file name.
type Article struct {
	Meta
	Slug     string `json:"slug"`
	Markdown string `json:"-"`
}

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// Library indexes the content directory. It is the only process-wide
// cache in the service; comment handling stays request-scoped.
type Library struct {
	dir string
	log *zap.Logger

	mu     sync.RWMutex
	bySlug map[string]Article
}

func NewLibrary(dir string, log *zap.Logger) (*Library, error) {
	l := &Library{dir: dir, log: log, bySlug: make(map[string]Article)}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Watch reloads the index whenever the content directory changes.
// It blocks until ctx is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(l.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := l.reload(); err != nil {
				l.log.Warn("content reload failed", zap.Error(err))
			} else {
				l.log.Info("content reloaded", zap.String("trigger", ev.Name))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("content watcher error", zap.Error(err))
		}
	}
}

// All returns every article, newest date first.
func (l *Library) All() []Article {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Article, 0, len(l.bySlug))
	for _, a := range l.bySlug {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

func (l *Library) Get(slug string) (Article, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.bySlug[slug]
	return a, ok
}

// Render converts an article's markdown to sanitized HTML.
func (l *Library) Render(a Article) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(a.Markdown), &buf); err != nil {
		return "", err
	}
	return string(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

// Save writes an article file (front matter + markdown) and refreshes
// its index entry. New slugs create new files.
func (l *Library) Save(slug string, meta Meta, markdown string) (Article, error) {
	path := l.pathFor(slug)
	if path == "" {
		path = filepath.Join(l.dir, slug+".mdx")
	}

	fm, err := yaml.Marshal(meta)
	if err != nil {
		return Article{}, err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimSpace(markdown))
	buf.WriteString("\n")

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Article{}, err
	}

	a := Article{Meta: meta, Slug: slug, Markdown: strings.TrimSpace(markdown)}
	l.mu.Lock()
	l.bySlug[slug] = a
	l.mu.Unlock()
	return a, nil
}

// pathFor finds the existing file for a slug, trying both extensions.
func (l *Library) pathFor(slug string) string {
	for _, ext := range []string{".mdx", ".md"} {
		p := filepath.Join(l.dir, slug+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (l *Library) reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return err
	}

	next := make(map[string]Article, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".md" && ext != ".mdx" {
			continue
		}
		slug := strings.TrimSuffix(name, ext)

		a, err := parseFile(filepath.Join(l.dir, name), slug)
		if err != nil {
			if l.log != nil {
				l.log.Warn("skipping unreadable article", zap.String("file", name), zap.Error(err))
			}
			continue
		}
		next[slug] = a
	}

	l.mu.Lock()
	l.bySlug = next
	l.mu.Unlock()
	return nil
}

func parseFile(path, slug string) (Article, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Article{}, err
	}

	meta, body, err := splitFrontMatter(raw)
	if err != nil {
		return Article{}, fmt.Errorf("%s: %w", path, err)
	}
	return Article{Meta: meta, Slug: slug, Markdown: body}, nil
}

// splitFrontMatter separates the leading YAML block (between --- fences)
// from the markdown body. Files without a fence are all body.
func splitFrontMatter(raw []byte) (Meta, string, error) {
	var meta Meta
	s := string(raw)

	if !strings.HasPrefix(s, "---\n") && !strings.HasPrefix(s, "---\r\n") {
		return meta, strings.TrimSpace(s), nil
	}

	rest := s[strings.Index(s, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return meta, "", errors.New("unterminated front matter")
	}

	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return meta, "", err
	}

	body := rest[end+len("\n---"):]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return meta, strings.TrimSpace(body), nil
}
