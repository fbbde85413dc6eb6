package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func testCache(t *testing.T, stale time.Duration, refetch bool) (*Cache[[]int], clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return New[[]int](Options{StaleTime: stale, RefetchOnMount: refetch, Clock: clock}), clock
}

// next reads states from ch until one satisfies ok.
func next(t *testing.T, ch <-chan State[[]int], ok func(State[[]int]) bool) State[[]int] {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, open := <-ch:
			if !open {
				t.Fatal("subscription closed")
			}
			if ok(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for state")
		}
	}
}

func settled(s State[[]int]) bool {
	return !s.Fetching && s.Status != StatusPending
}

func TestGetUnknownKeyIsPending(t *testing.T) {
	c, _ := testCache(t, time.Minute, true)
	s := c.Get("nope")
	if s.Status != StatusPending || !s.Loading() {
		t.Errorf("expected pending loading state, got %+v", s)
	}
	if !c.IsStale("nope") {
		t.Error("unknown key should be stale")
	}
}

func TestMountFetchesAndNotifies(t *testing.T) {
	c, clock := testCache(t, time.Minute, true)
	ch, unsub := c.Subscribe("k")
	defer unsub()

	st := c.Mount(context.Background(), "k", func(context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	if !st.Loading() || !st.Fetching {
		t.Errorf("expected loading+fetching right after mount, got %+v", st)
	}

	got := next(t, ch, settled)
	if got.Status != StatusSuccess {
		t.Fatalf("expected success, got %v", got.Status)
	}
	if len(got.Data) != 3 {
		t.Errorf("expected 3 items, got %v", got.Data)
	}
	if !got.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, clock.Now())
	}
}

func TestMountErrorState(t *testing.T) {
	c, _ := testCache(t, time.Minute, true)
	ch, unsub := c.Subscribe("k")
	defer unsub()

	boom := errors.New("boom")
	c.Mount(context.Background(), "k", func(context.Context) ([]int, error) {
		return nil, boom
	})

	got := next(t, ch, settled)
	if got.Status != StatusError {
		t.Fatalf("expected error status, got %v", got.Status)
	}
	if !errors.Is(got.Err, boom) {
		t.Errorf("expected boom, got %v", got.Err)
	}
	if got.HasData {
		t.Error("error without prior data should not have data")
	}
}

func TestMountDoesNotRefetchFreshEntry(t *testing.T) {
	c, clock := testCache(t, 5*time.Minute, true)
	var calls atomic.Int32
	fn := func(context.Context) ([]int, error) {
		calls.Add(1)
		return []int{1}, nil
	}

	if _, err := c.Fetch(context.Background(), "k", fn); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	clock.Advance(time.Minute)
	st := c.Mount(context.Background(), "k", fn)
	if st.Fetching {
		t.Error("fresh entry should not refetch on mount")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestMountRefetchesStaleEntry(t *testing.T) {
	c, clock := testCache(t, 5*time.Minute, true)
	var calls atomic.Int32
	fn := func(context.Context) ([]int, error) {
		n := calls.Add(1)
		return []int{int(n)}, nil
	}
	if _, err := c.Fetch(context.Background(), "k", fn); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	ch, unsub := c.Subscribe("k")
	defer unsub()

	clock.Advance(6 * time.Minute)
	if !c.IsStale("k") {
		t.Fatal("expected entry to be stale")
	}
	st := c.Mount(context.Background(), "k", fn)
	if !st.Fetching || st.Loading() {
		t.Errorf("stale refetch should keep showing data while fetching, got %+v", st)
	}

	got := next(t, ch, func(s State[[]int]) bool { return settled(s) && s.Data[0] == 2 })
	if got.Status != StatusSuccess {
		t.Errorf("expected success, got %v", got.Status)
	}
}

func TestMountWithoutRefetchOnMountKeepsStaleData(t *testing.T) {
	c, clock := testCache(t, time.Minute, false)
	var calls atomic.Int32
	fn := func(context.Context) ([]int, error) {
		calls.Add(1)
		return []int{1}, nil
	}
	if _, err := c.Fetch(context.Background(), "k", fn); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	clock.Advance(time.Hour)

	st := c.Mount(context.Background(), "k", fn)
	if st.Fetching || st.Status != StatusSuccess {
		t.Errorf("expected cached success without refetch, got %+v", st)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c, _ := testCache(t, time.Hour, true)
	fn := func(context.Context) ([]int, error) { return []int{1}, nil }
	if _, err := c.Fetch(context.Background(), "k", fn); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if c.IsStale("k") {
		t.Fatal("fresh entry reported stale")
	}
	c.Invalidate("k")
	if !c.IsStale("k") {
		t.Error("invalidated entry should be stale")
	}
	if st := c.Mount(context.Background(), "k", fn); !st.Fetching {
		t.Error("mount after invalidate should refetch")
	}
}

func TestFailedRefetchKeepsData(t *testing.T) {
	c, _ := testCache(t, 0, true)
	if _, err := c.Fetch(context.Background(), "k", func(context.Context) ([]int, error) {
		return []int{7}, nil
	}); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	_, err := c.Fetch(context.Background(), "k", func(context.Context) ([]int, error) {
		return nil, errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	st := c.Get("k")
	if st.Status != StatusError {
		t.Errorf("expected error status, got %v", st.Status)
	}
	if !st.HasData || st.Data[0] != 7 {
		t.Errorf("expected previous data kept, got %+v", st)
	}
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	c, _ := testCache(t, time.Minute, true)
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) ([]int, error) {
		calls.Add(1)
		<-release
		return []int{1}, nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Fetch(context.Background(), "k", fn)
		}()
	}

	// Let the callers pile up on the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 underlying fetch, got %d", n)
	}
}

func TestRepeatedMountWhileFetchingStartsOneFetch(t *testing.T) {
	c, _ := testCache(t, 0, true)
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) ([]int, error) {
		calls.Add(1)
		<-release
		return []int{1}, nil
	}

	ch, unsub := c.Subscribe("k")
	defer unsub()
	for range 3 {
		c.Mount(context.Background(), "k", fn)
	}
	close(release)
	next(t, ch, settled)

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 fetch, got %d", n)
	}
}

func TestSubscribeDeliversCurrentState(t *testing.T) {
	c, _ := testCache(t, time.Minute, true)
	if _, err := c.Fetch(context.Background(), "k", func(context.Context) ([]int, error) {
		return []int{4}, nil
	}); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	ch, unsub := c.Subscribe("k")
	defer unsub()
	select {
	case s := <-ch:
		if s.Status != StatusSuccess || s.Data[0] != 4 {
			t.Errorf("unexpected initial state %+v", s)
		}
	default:
		t.Fatal("expected current state to be buffered")
	}
}

func TestSubscribeKeepsOnlyLatest(t *testing.T) {
	c, _ := testCache(t, 0, true)
	ch, unsub := c.Subscribe("k")
	defer unsub()

	for i := 1; i <= 3; i++ {
		v := i
		if _, err := c.Fetch(context.Background(), "k", func(context.Context) ([]int, error) {
			return []int{v}, nil
		}); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}

	s := <-ch
	if s.Data[0] != 3 || s.Fetching {
		t.Errorf("expected newest settled state, got %+v", s)
	}
	select {
	case extra := <-ch:
		t.Errorf("expected no backlog, got %+v", extra)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	c, _ := testCache(t, time.Minute, true)
	ch, unsub := c.Subscribe("k")
	<-ch
	unsub()
	unsub()

	if _, open := <-ch; open {
		t.Error("expected channel to be closed")
	}
	// Publishing after unsubscribe must not panic.
	if _, err := c.Fetch(context.Background(), "k", func(context.Context) ([]int, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusPending: "pending",
		StatusError:   "error",
		StatusSuccess: "success",
		Status(9):     "Status(9)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
