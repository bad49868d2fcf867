package jobs

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Logical field names understood by the extractor.
const (
	FieldTitle       = "title"
	FieldCompany     = "company"
	FieldLocation    = "location"
	FieldDescription = "description"
	FieldLink        = "link"
)

var defaultFieldSelectors = map[string]string{
	FieldTitle:       "h2 a, h3 a",
	FieldCompany:     ".company",
	FieldLocation:    ".location",
	FieldDescription: "p",
	FieldLink:        "a",
}

// DetailPageConfig describes how to enrich a card from its linked page.
type DetailPageConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Description  string `mapstructure:"description" yaml:"description"`
	Requirements string `mapstructure:"requirements" yaml:"requirements"`
}

// DescriptionSelector returns the configured selector or ".content".
func (d DetailPageConfig) DescriptionSelector() string {
	if strings.TrimSpace(d.Description) == "" {
		return ".content"
	}
	return d.Description
}

// RequirementsSelector returns the configured selector or "ul".
func (d DetailPageConfig) RequirementsSelector() string {
	if strings.TrimSpace(d.Requirements) == "" {
		return "ul"
	}
	return d.Requirements
}

// SiteConfig identifies one target site and how to read its listing markup.
type SiteConfig struct {
	Name              string            `mapstructure:"name" yaml:"name"`
	BaseURL           string            `mapstructure:"base_url" yaml:"base_url"`
	ListURL           string            `mapstructure:"list_url" yaml:"list_url"`
	CardSelector      string            `mapstructure:"job_card_selector" yaml:"job_card_selector"`
	FallbackSelectors []string          `mapstructure:"fallback_selectors" yaml:"fallback_selectors"`
	Fields            map[string]string `mapstructure:"fields" yaml:"fields"`
	Detail            DetailPageConfig  `mapstructure:"detail_page" yaml:"detail_page"`
	RequestDelay      float64           `mapstructure:"request_delay" yaml:"request_delay"`
	FallbackLocation  string            `mapstructure:"fallback_location" yaml:"fallback_location"`
}

// FieldSelector returns the selector configured for field, or its default.
func (s SiteConfig) FieldSelector(field string) string {
	if sel := strings.TrimSpace(s.Fields[field]); sel != "" {
		return sel
	}
	return defaultFieldSelectors[field]
}

// Delay converts RequestDelay (seconds) to a duration.
func (s SiteConfig) Delay() time.Duration {
	if s.RequestDelay <= 0 {
		return 0
	}
	return time.Duration(s.RequestDelay * float64(time.Second))
}

// Location returns the site-wide fallback location.
func (s SiteConfig) Location() string {
	if s.FallbackLocation == "" {
		return DefaultLocation
	}
	return s.FallbackLocation
}

// Validate checks URLs and compiles every selector so typos surface at startup.
func (s SiteConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("site name is required")
	}
	for key, raw := range map[string]string{"base_url": s.BaseURL, "list_url": s.ListURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("site %q: %s must be an absolute http(s) url, got %q", s.Name, key, raw)
		}
	}
	if s.RequestDelay < 0 {
		return fmt.Errorf("site %q: request_delay must be >= 0", s.Name)
	}
	if strings.TrimSpace(s.CardSelector) == "" {
		return fmt.Errorf("site %q: job_card_selector is required", s.Name)
	}
	selectors := []string{s.CardSelector}
	selectors = append(selectors, s.FallbackSelectors...)
	for _, field := range []string{FieldTitle, FieldCompany, FieldLocation, FieldDescription, FieldLink} {
		selectors = append(selectors, s.FieldSelector(field))
	}
	if s.Detail.Enabled {
		selectors = append(selectors, s.Detail.DescriptionSelector(), s.Detail.RequirementsSelector())
	}
	for _, sel := range selectors {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return fmt.Errorf("site %q: invalid selector %q: %w", s.Name, sel, err)
		}
	}
	return nil
}
