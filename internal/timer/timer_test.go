package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTime(t *testing.T) {
	const (
		threshold = 50 * time.Millisecond
		// 1.5*Resolution to tolerate the scheduling lag of the updating goroutine
		resolution = Resolution + Resolution/2
	)

	for range time.Second / threshold {
		if time.Since(Now()) > resolution {
			require.Fail(t, "the timer is too slow")
		}

		time.Sleep(threshold)
	}
}

func TestDeadline(t *testing.T) {
	require.True(t, Deadline(0).IsZero())
	require.True(t, Deadline(-time.Second).IsZero())

	deadline := Deadline(time.Minute)
	require.WithinDuration(t, time.Now().Add(time.Minute), deadline, 2*Resolution)
}
