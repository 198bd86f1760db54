package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FormatKey(t *testing.T) {
	key, err := formatKey("u1", "3", "03.2024")
	require.NoError(t, err)
	assert.Equal(t, "u1:3:03.2024", key)

	for name, part := range map[string]string{
		"space":    "user one",
		"newline":  "u1\n",
		"too long": strings.Repeat("a", maxKeyLength),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := formatKey(part, "0", "03.2024")
			assert.ErrorIs(t, err, ErrBadKey)
		})
	}
}
