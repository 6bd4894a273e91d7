package status

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	for _, code := range KnownCodes {
		require.Equal(t, strconv.Itoa(int(code)), StringCode(code))
		require.True(t, Valid(code))
		require.NotEqual(t, Status("Unknown Status Code"), Text(code))
	}

	require.Equal(t, Status("Not Found"), Text(NotFound))
	require.Equal(t, Status("Unknown Status Code"), Text(599))
	require.False(t, Valid(99))
	require.False(t, Valid(600))
	require.True(t, Bodiless(NoContent))
	require.True(t, Bodiless(Continue))
	require.False(t, Bodiless(OK))
}
