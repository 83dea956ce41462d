package provider

import (
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/srand/jolt/workforce/pkg/utils"
	"github.com/srand/jolt/workforce/pkg/workforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CatalogTestSuite struct {
	suite.Suite
	fs afero.Fs
}

func (s *CatalogTestSuite) SetupTest() {
	s.fs = afero.NewMemMapFs()
}

func (s *CatalogTestSuite) write(path, content string) {
	s.Require().NoError(afero.WriteFile(s.fs, path, []byte(content), 0644))
}

func (s *CatalogTestSuite) TestLoadFile() {
	s.write("/etc/jolt/providers.yaml", `
providers:
  - id: gpu-1
    runtime: echo
    attributes:
      label: gpu
  - id: cpu-1
    runtime: pingpong
    available: false
    attributes:
      label: cpu
`)

	catalog, err := LoadCatalog(s.fs, "/etc/jolt/providers.yaml")
	s.Require().NoError(err)
	s.Require().Len(catalog.Providers, 2)
	s.Equal(map[string]string{"gpu-1": "echo", "cpu-1": "pingpong"}, catalog.Runtimes())

	r := NewRegistry()
	s.Require().NoError(catalog.Register(r))

	gpu := r.Lookup("gpu-1")
	s.Require().NotNil(gpu)
	s.True(gpu.Available())
	s.Equal(workforce.Attributes{"label": "gpu"}, gpu.Attributes())

	cpu := r.Lookup("cpu-1")
	s.Require().NotNil(cpu)
	s.False(cpu.Available())
}

func (s *CatalogTestSuite) TestLoadDirectory() {
	s.write("/providers/b.yaml", "providers:\n  - id: b\n")
	s.write("/providers/a.yml", "defaults: true\nproviders:\n  - id: a\n    attributes:\n      node.os: plan9\n")
	s.write("/providers/README", "not yaml")

	catalog, err := LoadCatalog(s.fs, "/providers")
	s.Require().NoError(err)
	s.Require().Len(catalog.Providers, 2)
	s.Equal("a", catalog.Providers[0].Id)
	s.Equal("b", catalog.Providers[1].Id)
	s.True(catalog.Defaults)

	attrs := catalog.Attributes(catalog.Providers[0])
	s.Equal("plan9", attrs["node.os"])
	s.Equal(runtime.GOARCH, attrs["node.arch"])
}

func (s *CatalogTestSuite) TestInvalid() {
	s.write("/dup.yaml", "providers:\n  - id: a\n  - id: a\n")
	_, err := LoadCatalog(s.fs, "/dup.yaml")
	s.ErrorIs(err, utils.ErrBadRequest)

	s.write("/noid.yaml", "providers:\n  - runtime: echo\n")
	_, err = LoadCatalog(s.fs, "/noid.yaml")
	s.ErrorIs(err, utils.ErrBadRequest)

	s.write("/broken.yaml", "providers: [")
	_, err = LoadCatalog(s.fs, "/broken.yaml")
	s.ErrorIs(err, utils.ErrParse)

	_, err = LoadCatalog(s.fs, "/missing.yaml")
	s.Error(err)
}

func TestCatalogTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogTestSuite))
}

func TestDefaultAttributes(t *testing.T) {
	attrs := DefaultAttributes()
	assert.Equal(t, runtime.GOARCH, attrs["node.arch"])
	assert.Equal(t, runtime.GOOS, attrs["node.os"])
	assert.NotEmpty(t, attrs["node.cpus"])

	requirement := workforce.Attributes{"node.os": runtime.GOOS}
	assert.True(t, attrs.Fulfills(requirement))
}

func TestParseAttributes(t *testing.T) {
	attrs, err := ParseAttributes([]string{"label=gpu", " zone =eu=1"})
	require.NoError(t, err)
	assert.Equal(t, workforce.Attributes{"label": "gpu", "zone": "eu=1"}, attrs)

	_, err = ParseAttributes([]string{"label"})
	assert.ErrorIs(t, err, utils.ErrParse)

	merged := Merge(workforce.Attributes{"a": "1", "b": "2"}, workforce.Attributes{"b": "3"})
	assert.Equal(t, workforce.Attributes{"a": "1", "b": "3"}, merged)
}
