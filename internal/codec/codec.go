// Package codec converts stored runs to and from interchange formats.
//
// The tsv format reproduces the tabular log written next to each run: one
// row per saved tick with the time, setpoint, the impaired vectors of both
// directions and the per-lane channel states. json and yaml carry the full
// run record and can be read back.
package codec

import (
	"fmt"
	"io"
	"sort"

	"tesim/internal/domain"
)

// RunLog is a run together with its saved ticks
type RunLog struct {
	Run   *domain.Run   `json:"run" yaml:"run"`
	Ticks []domain.Tick `json:"ticks" yaml:"ticks"`
}

// Importer interface for reading run logs from various formats
type Importer interface {
	Parse(r io.Reader) (*RunLog, error)
	Format() string
}

// Exporter interface for writing run logs to various formats
type Exporter interface {
	Export(log *RunLog, w io.Writer) error
	Format() string
	ContentType() string
}

var (
	exporters = map[string]Exporter{}
	importers = map[string]Importer{}
)

// register adds c as an exporter, and as an importer when it can parse
func register(c Exporter) {
	exporters[c.Format()] = c
	if i, ok := c.(Importer); ok {
		importers[c.Format()] = i
	}
}

func init() {
	register(NewTSVCodec())
	register(NewJSONCodec())
	register(NewYAMLCodec())
}

// Lookup returns the exporter for a format name
func Lookup(format string) (Exporter, error) {
	e, ok := exporters[format]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	return e, nil
}

// LookupImporter returns the importer for a format name
func LookupImporter(format string) (Importer, error) {
	i, ok := importers[format]
	if !ok {
		return nil, fmt.Errorf("unknown import format %q", format)
	}
	return i, nil
}

// Formats lists the registered export formats
func Formats() []string {
	names := make([]string, 0, len(exporters))
	for name := range exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
