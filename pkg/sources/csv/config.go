package csv

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// Params holds CSV-specific configuration.
// Parsed from source.Config.Params using mapstructure.
type Params struct {
	// NoInfer keeps every cell as text instead of typing columns.
	NoInfer bool `mapstructure:"no_infer"`

	// NAValues are extra cell values read as missing, on top of the defaults.
	NAValues []string `mapstructure:"na_values"`

	// Comment starts a line that is skipped entirely (e.g. "#").
	Comment string `mapstructure:"comment"`
}

// Options controls how Read parses delimited text.
type Options struct {
	Delimiter rune   // default ','
	Encoding  string // IANA name; default UTF-8
	NoInfer   bool
	NAValues  []string
	Comment   rune
}

// OptionsFromConfig builds read options from a source config.
func OptionsFromConfig(cfg source.Config) (Options, error) {
	var p Params
	if cfg.Params != nil {
		if err := mapstructure.Decode(cfg.Params, &p); err != nil {
			return Options{}, fmt.Errorf("failed to decode csv params: %w", err)
		}
	}

	opts := Options{
		Encoding: cfg.Encoding,
		NoInfer:  p.NoInfer,
		NAValues: p.NAValues,
	}

	delim, err := parseDelimiter(cfg.Delimiter, cfg.Path)
	if err != nil {
		return Options{}, err
	}
	opts.Delimiter = delim

	if p.Comment != "" {
		r, size := utf8.DecodeRuneInString(p.Comment)
		if size != len(p.Comment) {
			return Options{}, fmt.Errorf("csv comment must be a single character, got %q", p.Comment)
		}
		opts.Comment = r
	}
	return opts, nil
}

// parseDelimiter accepts a single character or the names "tab" / `\t`.
// An empty delimiter means tab for .tsv files and comma otherwise.
func parseDelimiter(s, path string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			return '\t', nil
		}
		return ',', nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("csv delimiter must be a single character, got %q", s)
	}
	return r, nil
}
