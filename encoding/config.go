package encoding

import (
	"io"

	"github.com/illuscio-dev/spangraph-go/graph"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

/*
Config holds the settings of a SpanEngine. It can be written as YAML:

	allowSniff: true
	codings: [zstd, gzip]
	graph:
	  sortProperties: true
	  maxDepth: 64

Codings are offered in the listed order when negotiating Accept-Encoding.
*/
type Config struct {
	// Whether the engine will attempt to decode content with an unknown mimetype.
	AllowSniff bool `yaml:"allowSniff"`

	// Content-codings the engine may apply when encoding.
	Codings []string `yaml:"codings"`

	// Settings of the graph used to walk and build content.
	Graph graph.Config `yaml:"graph"`
}

// DefaultConfig returns the settings NewContentEngine uses.
func DefaultConfig() Config {
	return Config{
		AllowSniff: false,
		Codings:    []string{"gzip", "deflate", "zstd"},
		Graph:      graph.DefaultConfig(),
	}
}

/*
LoadConfig reads YAML settings from reader over DefaultConfig. Unknown keys are an
error. Empty input yields the defaults.
*/
func LoadConfig(reader io.Reader) (Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(reader)
	decoder.SetStrict(true)

	if err := decoder.Decode(&config); err != nil && err != io.EOF {
		return Config{}, xerrors.Errorf("error reading engine config: %w", err)
	}
	return config, nil
}
