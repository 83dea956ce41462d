package workforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesFulfills(t *testing.T) {
	a := Attributes{"node.os": "linux", "node.arch": "amd64"}

	assert.True(t, a.Fulfills(nil))
	assert.True(t, a.Fulfills(Attributes{"node.os": "linux"}))
	assert.False(t, a.Fulfills(Attributes{"node.os": "darwin"}))
	assert.False(t, a.Fulfills(Attributes{"label": "gpu"}))

	assert.Equal(t, "node.arch=amd64\nnode.os=linux\n", a.String())
}

func TestRequireAttributes(t *testing.T) {
	filter := RequireAttributes(Attributes{"label": "gpu"})

	ok, err := filter(Attributes{"label": "gpu", "name": "A"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = filter(Attributes{"name": "A"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUniqueBy(t *testing.T) {
	filter := UniqueBy("name", "region")

	h1, err := filter(Attributes{"name": "A", "region": "eu", "extra": "1"})
	require.NoError(t, err)
	h2, err := filter(Attributes{"name": "A", "region": "eu", "extra": "2"})
	require.NoError(t, err)
	h3, err := filter(Attributes{"name": "A", "region": "us"})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotEmpty(t, h1)

	_, err = UniqueBy()(Attributes{})
	assert.Error(t, err)
}
