package transport

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http/status"
	"github.com/stretchr/testify/require"
)

type transportMock struct {
	stopped     *atomic.Bool
	closed      bool
	bound       bool
	once        bool
	loop        time.Duration
	returnError error
}

func newMock(loop time.Duration, returnError error, once bool) *transportMock {
	return &transportMock{
		stopped:     new(atomic.Bool),
		once:        once,
		loop:        loop,
		returnError: returnError,
	}
}

func (t *transportMock) Bind(string) error {
	t.bound = true
	return nil
}

func (t *transportMock) Addr() string {
	return "mock"
}

func (t *transportMock) Listen(config.NET, func(conn Conn)) error {
	for !t.stopped.Load() && !t.once {
		time.Sleep(t.loop)
	}

	return t.returnError
}

func (t *transportMock) Stop() {
	t.stopped.Store(true)
}

func (t *transportMock) Close() {
	t.closed = true
}

func (t *transportMock) Wait() {
	for !t.stopped.Load() {
		time.Sleep(1 * time.Millisecond)
	}
}

func runParallel(fn func() error) chan error {
	c := make(chan error)

	go func() {
		c <- fn()
	}()

	return c
}

func runAtMost(sup *Supervisor, timeout time.Duration) error {
	select {
	case err := <-runParallel(func() error {
		return sup.Run(config.Default().NET)
	}):
		return err
	case <-time.After(timeout):
		return fmt.Errorf("supervisor timeouted")
	}
}

func TestSupervisor(t *testing.T) {
	newSupervisor := func(ts ...*transportMock) (*Supervisor, error) {
		sup := NewSupervisor()
		for _, transport := range ts {
			if err := sup.Add("", transport, nil); err != nil {
				return nil, err
			}
		}

		return &sup, nil
	}

	t.Run("die without error", func(t *testing.T) {
		sup, err := newSupervisor(
			newMock(100*time.Millisecond, nil, false),
			newMock(200*time.Millisecond, nil, true),
		)
		require.NoError(t, err)
		require.NoError(t, runAtMost(sup, 300*time.Millisecond))
	})

	t.Run("die with error", func(t *testing.T) {
		sup, err := newSupervisor(
			newMock(100*time.Millisecond, nil, false),
			newMock(200*time.Millisecond, status.ErrTransport, true),
		)
		require.NoError(t, err)
		require.EqualError(t, runAtMost(sup, 300*time.Millisecond), status.ErrTransport.Error())
	})

	t.Run("stop", func(t *testing.T) {
		sup, err := newSupervisor(
			newMock(100*time.Millisecond, nil, false),
			newMock(200*time.Millisecond, nil, false),
		)
		require.NoError(t, err)
		c := runParallel(func() error {
			return sup.Run(config.Default().NET)
		})
		time.Sleep(200 * time.Millisecond)
		c2 := runParallel(func() error {
			sup.Stop()
			return nil
		})

		select {
		case err = <-c2:
			require.NoError(t, err)
		case <-time.After(300 * time.Millisecond):
			require.Fail(t, "supervisor did not stop on time")
		}

		select {
		case err = <-c:
			require.NoError(t, err)
		case <-time.After(50 * time.Millisecond):
			require.Fail(t, "supervisor did not stop running on time")
		}
	})

	t.Run("stop after failure", func(t *testing.T) {
		sup, err := newSupervisor(newMock(time.Millisecond, status.ErrTransport, true))
		require.NoError(t, err)
		require.Error(t, runAtMost(sup, 100*time.Millisecond))
		sup.Stop()
	})

	t.Run("real TCP", func(t *testing.T) {
		sup := NewSupervisor()
		cfg := config.Default().NET
		cfg.AcceptLoopInterruptPeriod = 50 * time.Millisecond

		err := sup.Add("127.0.0.1:0", NewTCP(), func(conn Conn) {
			require.False(t, conn.IsSecure())
			_, _ = conn.Write([]byte("hello"))
		})
		require.NoError(t, err)

		c := runParallel(func() error {
			return sup.Run(cfg)
		})

		conn, err := Dial(context.Background(), sup.Addrs()[0], nil, time.Second)
		require.NoError(t, err)
		data, err := io.ReadAll(conn)
		require.NoError(t, err)
		require.Equal(t, "hello", string(data))
		require.NoError(t, conn.Close())

		sup.Stop()
		require.NoError(t, <-c)
	})
}
