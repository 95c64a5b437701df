package watcher_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/watcher"
)

// batches records every callback invocation.
type batches struct {
	mu  sync.Mutex
	all [][]string
}

func (b *batches) add(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, paths)
}

func (b *batches) get() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.all...)
}

func TestDebouncer_CoalescesAndSorts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(100*time.Millisecond, b.add)

		d.Add("app/styles/main.styl")
		d.Add("app/index.html")
		d.Add("app/styles/main.styl")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Len(t, b.get(), 1)
		assert.Equal(t, []string{"app/index.html", "app/styles/main.styl"}, b.get()[0])
	})
}

func TestDebouncer_TimerReset(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(100*time.Millisecond, b.add)

		d.Add("a")
		time.Sleep(50 * time.Millisecond)
		d.Add("b")
		time.Sleep(50 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, b.get())

		time.Sleep(60 * time.Millisecond)
		synctest.Wait()
		require.Len(t, b.get(), 1)
		assert.Equal(t, []string{"a", "b"}, b.get()[0])
	})
}

func TestDebouncer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(100*time.Millisecond, b.add)

		d.Add("a")
		d.Flush()
		require.Len(t, b.get(), 1)

		// The stopped timer must not deliver again.
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Len(t, b.get(), 1)
	})
}

func TestDebouncer_FlushEmpty(t *testing.T) {
	var b batches
	d := watcher.NewDebouncer(100*time.Millisecond, b.add)

	d.Flush()
	assert.Empty(t, b.get())
}

func TestDebouncer_FlushAfterFire(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(50*time.Millisecond, b.add)

		d.Add("a")
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		require.Len(t, b.get(), 1)

		d.Flush()
		assert.Len(t, b.get(), 1)
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(_ *testing.T) {
		d := watcher.NewDebouncer(50*time.Millisecond, nil)
		d.Add("a")
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		d.Flush()
	})
}
