package challenges

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Descriptor file names, in lookup order.
const (
	descriptorJSON = "chall.json"
	descriptorYAML = "chall.yaml"
	descriptorYML  = "chall.yml"
	scriptFile     = "chall.lua"

	defaultDescriptionFile = "description.md"
)

// Scoring functions of the decay variant.
const (
	DecayLinear      = "linear"
	DecayLogarithmic = "logarithmic"
)

// maxIDLen matches solves.challenge_id VARCHAR(128).
const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

var ErrNoDescriptor = errors.New("no chall.json or chall.yaml")

// Metadata is the parsed and validated challenge descriptor.
type Metadata struct {
	ID              string
	Title           string
	Category        string
	Points          int
	Type            string
	Flag            string
	Flags           []string
	Minimum         int
	Decay           int
	Function        string
	DescriptionFile string
	Files           []string
	Author          string
	Hint            string
}

// descriptor is the on-disk shape. Pointers separate "absent" from zero.
type descriptor struct {
	ID              string   `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	Category        string   `json:"category" yaml:"category"`
	Points          *int     `json:"points" yaml:"points"`
	Type            string   `json:"type" yaml:"type"`
	Flag            string   `json:"flag" yaml:"flag"`
	Flags           []string `json:"flags" yaml:"flags"`
	Minimum         *int     `json:"minimum" yaml:"minimum"`
	Decay           *int     `json:"decay" yaml:"decay"`
	Function        string   `json:"function" yaml:"function"`
	DescriptionFile string   `json:"description_file" yaml:"description_file"`
	Files           []string `json:"files" yaml:"files"`
	Author          string   `json:"author" yaml:"author"`
	Hint            string   `json:"hint" yaml:"hint"`
}

// readMetadata locates and parses the descriptor in dir. chall.json wins
// over chall.yaml, which wins over chall.yml.
func readMetadata(dir string) (Metadata, error) {
	var d descriptor

	switch {
	case fileExists(filepath.Join(dir, descriptorJSON)):
		b, err := os.ReadFile(filepath.Join(dir, descriptorJSON))
		if err != nil {
			return Metadata{}, err
		}
		if err := json.Unmarshal(b, &d); err != nil {
			return Metadata{}, fmt.Errorf("%s: %w", descriptorJSON, err)
		}
	case fileExists(filepath.Join(dir, descriptorYAML)), fileExists(filepath.Join(dir, descriptorYML)):
		name := descriptorYAML
		if !fileExists(filepath.Join(dir, name)) {
			name = descriptorYML
		}
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return Metadata{}, err
		}
		if err := yaml.Unmarshal(b, &d); err != nil {
			return Metadata{}, fmt.Errorf("%s: %w", name, err)
		}
	default:
		return Metadata{}, ErrNoDescriptor
	}

	return d.toMetadata(dir)
}

func (d descriptor) toMetadata(dir string) (Metadata, error) {
	m := Metadata{
		ID:              strings.TrimSpace(d.ID),
		Title:           strings.TrimSpace(d.Title),
		Category:        strings.TrimSpace(d.Category),
		Type:            strings.ToLower(strings.TrimSpace(d.Type)),
		Flag:            d.Flag,
		Flags:           d.Flags,
		Function:        strings.ToLower(strings.TrimSpace(d.Function)),
		DescriptionFile: d.DescriptionFile,
		Files:           d.Files,
		Author:          d.Author,
		Hint:            d.Hint,
	}

	if !idPattern.MatchString(m.ID) {
		return m, fmt.Errorf("invalid or missing id %q (want 1-%d of A-Z a-z 0-9 _ -)", d.ID, maxIDLen)
	}
	if m.Title == "" {
		return m, errors.New("missing title")
	}
	if m.Category == "" {
		return m, errors.New("missing category")
	}
	if d.Points == nil {
		return m, errors.New("missing points")
	}
	if *d.Points < 0 {
		return m, fmt.Errorf("points must be >= 0, got %d", *d.Points)
	}
	m.Points = *d.Points

	if m.Type == "" {
		m.Type = VariantStatic
		if fileExists(filepath.Join(dir, scriptFile)) {
			m.Type = VariantScript
		}
	}
	if m.DescriptionFile == "" {
		m.DescriptionFile = defaultDescriptionFile
	}
	if !filepath.IsLocal(m.DescriptionFile) {
		return m, fmt.Errorf("description_file %q escapes the challenge directory", m.DescriptionFile)
	}

	if m.Type == VariantDecay {
		if d.Minimum == nil || d.Decay == nil {
			return m, errors.New("decay challenges need minimum and decay")
		}
		m.Minimum, m.Decay = *d.Minimum, *d.Decay
		if m.Minimum < 0 || m.Minimum > m.Points {
			return m, fmt.Errorf("minimum must be within [0, points], got %d", m.Minimum)
		}
		if m.Decay <= 0 {
			return m, fmt.Errorf("decay must be > 0, got %d", m.Decay)
		}
		if m.Function == "" {
			m.Function = DecayLinear
		}
		if m.Function != DecayLinear && m.Function != DecayLogarithmic {
			return m, fmt.Errorf("unknown decay function %q", m.Function)
		}
	}

	for _, f := range m.Files {
		if !filepath.IsLocal(f) {
			return m, fmt.Errorf("attachment %q escapes the challenge directory", f)
		}
		if !fileExists(filepath.Join(dir, f)) {
			return m, fmt.Errorf("attachment %q not found", f)
		}
	}

	return m, nil
}

// acceptedFlags returns flag and flags, trimmed, without empties.
func (m Metadata) acceptedFlags() []string {
	out := make([]string, 0, 1+len(m.Flags))
	for _, f := range append([]string{m.Flag}, m.Flags...) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// HasFile reports whether name is a listed attachment.
func (m Metadata) HasFile(name string) bool {
	return slices.Contains(m.Files, name)
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
