package bundler

import (
	"slices"
	"time"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// BuildMetadata is the subset of the engine's metafile the report uses.
type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes   int          `json:"bytes"`
	Imports []ImportInfo `json:"imports"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

// Modules returns the bundled input paths in sorted order.
func (m *BuildMetadata) Modules() []string {
	modules := make([]string, 0, len(m.Inputs))
	for path := range m.Inputs {
		modules = append(modules, path)
	}
	slices.Sort(modules)
	return modules
}

// ExternalImports returns the distinct imports left unbundled.
func (m *BuildMetadata) ExternalImports() []string {
	var external []string
	for _, out := range m.Outputs {
		for _, imp := range out.Imports {
			if imp.External && !slices.Contains(external, imp.Path) {
				external = append(external, imp.Path)
			}
		}
	}
	slices.Sort(external)
	return external
}

// Report describes a completed build.
type Report struct {
	BuildID         string         `json:"buildId" yaml:"buildId"`
	Entry           string         `json:"entry" yaml:"entry"`
	Duration        time.Duration  `json:"duration" yaml:"duration"`
	Outputs         []OutputReport `json:"outputs" yaml:"outputs"`
	Modules         []string       `json:"modules,omitempty" yaml:"modules,omitempty"`
	ExternalImports []string       `json:"externalImports,omitempty" yaml:"externalImports,omitempty"`
	Transformed     int64          `json:"transformed" yaml:"transformed"`
	Metafile        string         `json:"metafile,omitempty" yaml:"metafile,omitempty"`
	Warnings        []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// OutputReport describes one emitted file.
type OutputReport struct {
	Path       string   `json:"path" yaml:"path"`
	Bytes      int      `json:"bytes" yaml:"bytes"`
	Checksum   string   `json:"checksum" yaml:"checksum"`
	Compressed []string `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// Checksum returns the base58 encoded CRC64-NVME of data.
func Checksum(data []byte) string {
	h := crc64nvme.New()
	h.Write(data)
	return base58.Encode(h.Sum(nil))
}
