package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	params := map[string]any{"q": "milk", "page": 1}

	k1, err := Key("items:list", "tenant-a", params)
	require.NoError(t, err)
	k2, err := Key("items:list", "tenant-a", params)
	require.NoError(t, err)
	other, err := Key("items:list", "tenant-a", map[string]any{"q": "bread", "page": 1})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, other)
	assert.True(t, strings.HasPrefix(k1, TenantPrefix("items:list", "tenant-a")))
	assert.False(t, strings.HasPrefix(k1, TenantPrefix("items:list", "tenant-b")))
}
