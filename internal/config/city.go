package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	NameOrderAuto      = "auto"
	NameOrderRoleFirst = "role_first"
	NameOrderNameFirst = "name_first"
)

// RoleKeyword binds one spelling of a role ("council member") to a role name
// understood by internal.ParseRole.
type RoleKeyword struct {
	Phrase string `yaml:"phrase"`
	Role   string `yaml:"role"`
}

// SlugPrefix maps a URL slug prefix such as "mayor-pro-tem-" to a role.
type SlugPrefix struct {
	Prefix string `yaml:"prefix"`
	Role   string `yaml:"role"`
}

type PageSource struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
	Rank string `yaml:"rank"`
}

type OverrideRow struct {
	Name      string `yaml:"name"`
	District  string `yaml:"district"`
	TermStart int    `yaml:"term_start"`
	TermEnd   int    `yaml:"term_end"`
}

type OverrideSheet struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Range         string `yaml:"range"`
}

// CityConfig is the declarative description of one city: where its saved
// pages live, how its site spells roles, and its verified ground truth.
type CityConfig struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	EmailDomain string `yaml:"email_domain"`

	NameOrder     string `yaml:"name_order"`
	TermLength    int    `yaml:"term_length"`
	ContextWindow int    `yaml:"context_window"`
	InferBareYear *bool  `yaml:"infer_bare_year"`

	RoleKeywords []RoleKeyword `yaml:"role_keywords"`
	SkipWords    []string      `yaml:"skip_words"`
	SlugPrefixes []SlugPrefix  `yaml:"slug_prefixes"`

	Pages         []PageSource   `yaml:"pages"`
	Overrides     []OverrideRow  `yaml:"overrides"`
	OverrideSheet *OverrideSheet `yaml:"override_sheet"`

	// BaseDir is the directory of the YAML file; page paths are relative to it.
	BaseDir string `yaml:"-"`
}

// DefaultCity carries the shared dialect every city starts from.
func DefaultCity() CityConfig {
	return CityConfig{
		NameOrder:     NameOrderAuto,
		TermLength:    4,
		ContextWindow: 160,
		RoleKeywords: []RoleKeyword{
			{Phrase: "mayor pro tempore", Role: "vice_mayor"},
			{Phrase: "mayor pro tem", Role: "vice_mayor"},
			{Phrase: "vice mayor", Role: "vice_mayor"},
			{Phrase: "deputy mayor", Role: "vice_mayor"},
			{Phrase: "city council member", Role: "councilmember"},
			{Phrase: "council member", Role: "councilmember"},
			{Phrase: "councilmember", Role: "councilmember"},
			{Phrase: "councilwoman", Role: "councilmember"},
			{Phrase: "councilman", Role: "councilmember"},
			{Phrase: "councilor", Role: "councilmember"},
			{Phrase: "councillor", Role: "councilmember"},
			{Phrase: "alderperson", Role: "councilmember"},
			{Phrase: "alderman", Role: "councilmember"},
			{Phrase: "mayor", Role: "mayor"},
		},
		SkipWords: []string{
			"and", "the", "of", "for", "to", "a", "an", "in", "on", "at", "by", "with",
			"council", "city", "town", "village", "mayor", "vice", "deputy", "pro", "tem", "tempore",
			"member", "members", "councilmember", "district", "ward", "seat", "large",
			"meet", "our", "your", "contact", "email", "phone", "call", "about", "home", "welcome",
			"honorable", "hon", "elected", "term", "office", "staff", "agenda", "view", "read", "more",
		},
		SlugPrefixes: []SlugPrefix{
			{Prefix: "mayor-pro-tem-", Role: "vice_mayor"},
			{Prefix: "mayor-pro-tempore-", Role: "vice_mayor"},
			{Prefix: "vice-mayor-", Role: "vice_mayor"},
			{Prefix: "deputy-mayor-", Role: "vice_mayor"},
			{Prefix: "city-council-member-", Role: "councilmember"},
			{Prefix: "council-member-", Role: "councilmember"},
			{Prefix: "councilmember-", Role: "councilmember"},
			{Prefix: "councilwoman-", Role: "councilmember"},
			{Prefix: "councilman-", Role: "councilmember"},
			{Prefix: "mayor-", Role: "mayor"},
		},
	}
}

// LoadCity reads one city YAML file and layers it over defaults. City word
// tables are prepended to the defaults, scalar fields keep the city value.
func LoadCity(path string, defaults CityConfig) (CityConfig, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return CityConfig{}, err
	}
	return ParseCity(blob, filepath.Dir(path), defaults)
}

func ParseCity(blob []byte, baseDir string, defaults CityConfig) (CityConfig, error) {
	var city CityConfig
	if err := yaml.Unmarshal(blob, &city); err != nil {
		return CityConfig{}, fmt.Errorf("parse city config: %w", err)
	}
	// mergo follows pointers and treats false as empty
	explicitBare := city.InferBareYear
	city.InferBareYear = nil
	if err := mergo.Merge(&city, defaults, mergo.WithAppendSlice); err != nil {
		return CityConfig{}, fmt.Errorf("merge city defaults: %w", err)
	}
	if explicitBare != nil {
		city.InferBareYear = explicitBare
	}

	city.BaseDir = baseDir
	city.Name = strings.TrimSpace(city.Name)
	if city.Name == "" {
		return CityConfig{}, fmt.Errorf("city config in %s has no name", baseDir)
	}
	if city.Slug == "" {
		city.Slug = Slugify(city.Name)
	}
	switch city.NameOrder {
	case NameOrderAuto, NameOrderRoleFirst, NameOrderNameFirst:
	default:
		return CityConfig{}, fmt.Errorf("city %s: unsupported name_order %q", city.Name, city.NameOrder)
	}
	return city, nil
}

// PagePath resolves a configured page path against the config directory.
func (c CityConfig) PagePath(p PageSource) string {
	if filepath.IsAbs(p.Path) || c.BaseDir == "" {
		return p.Path
	}
	return filepath.Join(c.BaseDir, p.Path)
}

func (c CityConfig) BareYear() bool {
	if c.InferBareYear == nil {
		return true
	}
	return *c.InferBareYear
}

func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
