package boards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Package boards contains the listing-page (bulletin board) registry loaded from YAML/JSON.

const (
	DefaultMarkerSelector = ".bo_tit"
	DefaultRowSelector    = "tr"
)

var (
	DefaultTitleSelectors = []string{".bo_tit a"}
	DefaultDateSelectors  = []string{".td_date", ".td_datetime"}
)

// Board describes one listing page and the structural selectors used to read it.
type Board struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	URL            string         `json:"url" yaml:"url"`
	MarkerSelector string         `json:"marker_selector" yaml:"marker_selector"`
	RowSelector    string         `json:"row_selector" yaml:"row_selector"`
	TitleSelectors []string       `json:"title_selectors" yaml:"title_selectors"`
	DateSelectors  []string       `json:"date_selectors" yaml:"date_selectors"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type fileRegistry struct {
	Boards []Board `json:"boards" yaml:"boards"`
}

// Registry holds the validated boards in file order.
type Registry struct {
	mu     sync.RWMutex
	boards []Board
	idx    map[string]Board
}

// LoadRegistry loads the board registry from file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("boards file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boards file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read boards file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(reg.Boards) == 0 {
		return nil, errors.New("boards file contains no boards entries")
	}

	return NewRegistry(reg.Boards...)
}

// NewRegistry validates boards and builds a registry from them.
func NewRegistry(boards ...Board) (*Registry, error) {
	r := &Registry{
		boards: make([]Board, 0, len(boards)),
		idx:    make(map[string]Board, len(boards)),
	}
	for i := range boards {
		b := Sanitize(boards[i])
		if err := Validate(b); err != nil {
			return nil, fmt.Errorf("board[%d]: %w", i, err)
		}
		if _, exists := r.idx[b.ID]; exists {
			return nil, fmt.Errorf("duplicate board id %q", b.ID)
		}
		r.boards = append(r.boards, b)
		r.idx[b.ID] = b
	}
	return r, nil
}

func parseRegistry(data []byte, ext string) (fileRegistry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return fileRegistry{}, errors.New("boards file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (fileRegistry, error) {
	var reg fileRegistry
	if err := fn(data, &reg); err != nil {
		return fileRegistry{}, fmt.Errorf("decode %s boards: %w", name, err)
	}
	return reg, nil
}

// Sanitize trims fields and fills selector defaults.
func Sanitize(b Board) Board {
	b.ID = strings.TrimSpace(b.ID)
	b.Name = strings.TrimSpace(b.Name)
	b.URL = strings.TrimSpace(b.URL)
	b.MarkerSelector = strings.TrimSpace(b.MarkerSelector)
	b.RowSelector = strings.TrimSpace(b.RowSelector)

	if b.Name == "" {
		b.Name = b.ID
	}
	if b.MarkerSelector == "" {
		b.MarkerSelector = DefaultMarkerSelector
	}
	if b.RowSelector == "" {
		b.RowSelector = DefaultRowSelector
	}
	b.TitleSelectors = cleanSelectors(b.TitleSelectors, DefaultTitleSelectors)
	b.DateSelectors = cleanSelectors(b.DateSelectors, DefaultDateSelectors)

	if b.Config == nil {
		b.Config = map[string]any{}
	}
	return b
}

func cleanSelectors(in, fallback []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

// Validate checks that required fields are present.
func Validate(b Board) error {
	if b.ID == "" {
		return errors.New("id is required")
	}
	if b.URL == "" {
		return fmt.Errorf("url is required for board %q", b.ID)
	}
	u, err := url.Parse(b.URL)
	if err != nil {
		return fmt.Errorf("parse url for board %q: %w", b.ID, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url for board %q must be http or https", b.ID)
	}
	return nil
}

// All returns a copy of the boards in file order.
func (r *Registry) All() []Board {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Board, len(r.boards))
	copy(out, r.boards)
	return out
}

// ByID returns the board entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Board, bool) {
	if r == nil {
		return Board{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Board{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.idx[id]
	return b, ok
}
