package sites

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package sites models news sources as data: one Site value per source plus
// pure parsing functions. There is no per-source code.

const (
	defaultMaxPages           = 200
	defaultStaleStopThreshold = 1
	defaultRequestDelayMs     = 300
	defaultPageDelayMs        = 100

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

	pagePlaceholder = "{page}"
)

// DetailSelectors lists candidate selectors for detail-page fields, tried in
// order until one matches. Sites change their markup; alternates keep a
// source alive without a code change.
type DetailSelectors struct {
	Subtitle []string `json:"subtitle" yaml:"subtitle"`
	Content  []string `json:"content" yaml:"content"`
}

// Site is the full configuration for one news source. It is immutable once
// loaded; a crawl run reads it, never writes it.
type Site struct {
	Name       string `json:"name" yaml:"name"`
	Press      string `json:"press" yaml:"press"`
	Region     string `json:"region" yaml:"region"`
	BaseURL    string `json:"base_url" yaml:"base_url"`
	ListingURL string `json:"listing_url" yaml:"listing_url"` // contains {page}

	ItemSelector        string `json:"item_selector" yaml:"item_selector"`
	DateSelector        string `json:"date_selector" yaml:"date_selector"`
	TitleSelector       string `json:"title_selector" yaml:"title_selector"`
	LinkSelector        string `json:"link_selector" yaml:"link_selector"`
	DescriptionSelector string `json:"description_selector" yaml:"description_selector"`
	ImageSelector       string `json:"image_selector" yaml:"image_selector"`

	Detail DetailSelectors `json:"detail" yaml:"detail"`

	NoiseSelectors []string `json:"noise_selectors" yaml:"noise_selectors"`
	NoiseKeywords  []string `json:"noise_keywords" yaml:"noise_keywords"`

	MaxPages           int `json:"max_pages" yaml:"max_pages"`
	StaleStopThreshold int `json:"stale_stop_threshold" yaml:"stale_stop_threshold"`
	RequestDelayMs     int `json:"request_delay_ms" yaml:"request_delay_ms"`
	PageDelayMs        int `json:"page_delay_ms" yaml:"page_delay_ms"`

	ExtraHeaders map[string]string `json:"headers" yaml:"headers"`
}

// ListingPageURL renders the listing URL for a 1-based page number.
func (s Site) ListingPageURL(page int) string {
	return strings.ReplaceAll(s.ListingURL, pagePlaceholder, strconv.Itoa(page))
}

// RequestDelay is the per-detail-request throttle.
func (s Site) RequestDelay() time.Duration {
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// PageDelay is the pause between listing pages.
func (s Site) PageDelay() time.Duration {
	return time.Duration(s.PageDelayMs) * time.Millisecond
}

// RequestHeaders builds the headers sent with every request to this site.
func (s Site) RequestHeaders() map[string]string {
	headers := map[string]string{
		"User-Agent": defaultUserAgent,
		"Accept":     defaultAccept,
	}
	for k, v := range s.ExtraHeaders {
		if key := strings.TrimSpace(k); key != "" && strings.TrimSpace(v) != "" {
			headers[key] = strings.TrimSpace(v)
		}
	}
	return headers
}

type registryFile struct {
	Sites []Site `json:"sites" yaml:"sites"`
}

// Registry materializes site definitions loaded from a config file.
type Registry struct {
	sites []Site
	idx   map[string]Site
}

// LoadRegistry loads the site registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sites file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sites file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry decodes registry bytes; ext selects the decoder (".yaml",
// ".yml", ".json"; empty tries each).
func ParseRegistry(raw []byte, ext string) (*Registry, error) {
	fileReg, err := decodeRegistry(raw, ext)
	if err != nil {
		return nil, err
	}
	if len(fileReg.Sites) == 0 {
		return nil, errors.New("sites file contains no site entries")
	}

	reg := &Registry{
		sites: make([]Site, len(fileReg.Sites)),
		idx:   make(map[string]Site, len(fileReg.Sites)),
	}

	for i := range fileReg.Sites {
		s := sanitizeSite(fileReg.Sites[i])
		if err := validateSite(s); err != nil {
			return nil, fmt.Errorf("site[%d]: %w", i, err)
		}
		if _, exists := reg.idx[s.Name]; exists {
			return nil, fmt.Errorf("duplicate site name %q", s.Name)
		}
		reg.sites[i] = s
		reg.idx[s.Name] = s
	}

	return reg, nil
}

func decodeRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yamlUnmarshal},
		{name: "yaml", ext: ".yml", fn: yamlUnmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sites file format not recognized (expected YAML or JSON)")
}

func yamlUnmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

func sanitizeSite(s Site) Site {
	s.Name = strings.TrimSpace(s.Name)
	s.Press = strings.TrimSpace(s.Press)
	s.Region = strings.ToLower(strings.TrimSpace(s.Region))
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	s.ListingURL = strings.TrimSpace(s.ListingURL)

	if s.MaxPages <= 0 {
		s.MaxPages = defaultMaxPages
	}
	if s.StaleStopThreshold <= 0 {
		s.StaleStopThreshold = defaultStaleStopThreshold
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}
	if s.PageDelayMs <= 0 {
		s.PageDelayMs = defaultPageDelayMs
	}

	return s
}

func validateSite(s Site) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Press == "" {
		return fmt.Errorf("press is required for site %q", s.Name)
	}
	if s.Region == "" {
		return fmt.Errorf("region is required for site %q", s.Name)
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required for site %q", s.Name)
	}
	if s.ListingURL == "" {
		return fmt.Errorf("listing_url is required for site %q", s.Name)
	}
	if !strings.Contains(s.ListingURL, pagePlaceholder) {
		return fmt.Errorf("listing_url for site %q must contain %s", s.Name, pagePlaceholder)
	}
	if s.ItemSelector == "" {
		return fmt.Errorf("item_selector is required for site %q", s.Name)
	}
	if s.LinkSelector == "" {
		return fmt.Errorf("link_selector is required for site %q", s.Name)
	}
	if s.DateSelector == "" {
		return fmt.Errorf("date_selector is required for site %q", s.Name)
	}
	if len(s.Detail.Content) == 0 {
		return fmt.Errorf("detail.content selectors are required for site %q", s.Name)
	}
	return nil
}

// All returns a copy of every configured site.
func (r *Registry) All() []Site {
	if r == nil {
		return nil
	}
	out := make([]Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// ByRegion returns the sites configured for the given region.
func (r *Registry) ByRegion(region string) []Site {
	if r == nil {
		return nil
	}
	region = strings.ToLower(strings.TrimSpace(region))
	var out []Site
	for _, s := range r.sites {
		if s.Region == region {
			out = append(out, s)
		}
	}
	return out
}

// ByName returns the site with the given name, if configured.
func (r *Registry) ByName(name string) (Site, bool) {
	if r == nil {
		return Site{}, false
	}
	s, ok := r.idx[strings.TrimSpace(name)]
	return s, ok
}

// Regions returns the sorted distinct regions across all sites.
func (r *Registry) Regions() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range r.sites {
		if !seen[s.Region] {
			seen[s.Region] = true
			out = append(out, s.Region)
		}
	}
	sort.Strings(out)
	return out
}
