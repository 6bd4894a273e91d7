package uri

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	for _, tc := range []struct {
		Name, Path, Want string
	}{
		{"single slash", "/", "/"},
		{"empty", "", "/"},
		{"only slashes", "///", "/"},
		{"single trailing", "/api/", "/api"},
		{"multiple trailing", "/api/////", "/api"},
		{"short", "/a", "/a"},
		{"untouched", "/api/v1", "/api/v1"},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			require.Equal(t, tc.Want, Normalize(tc.Path))
		})
	}
}
