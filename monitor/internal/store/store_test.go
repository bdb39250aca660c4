package store

import (
	"sync"
	"testing"
	"time"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/compute"
)

func result(id string, celsius float64) *compute.Result {
	return &compute.Result{ThermometerID: id, Celsius: celsius}
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(ttl time.Duration) (*Store, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	st := New(ttl)
	st.now = c.now
	return st, c
}

func TestPut_Overwrites(t *testing.T) {
	st, _ := newTestStore(5 * time.Second)
	st.Put(result("water", 22))
	st.Put(result("water", 21))

	got := st.Results()
	if len(got) != 1 {
		t.Fatalf("Results: got %d, want 1", len(got))
	}
	if got[0].Celsius != 21 {
		t.Errorf("Celsius: got %v, want 21", got[0].Celsius)
	}
}

func TestResults_SortedAndFresh(t *testing.T) {
	st, c := newTestStore(5 * time.Second)
	st.Put(result("water", 21))
	c.t = c.t.Add(3 * time.Second)
	st.Put(result("room", 23))
	st.Put(result("ambient", 19))

	got := st.Results()
	if len(got) != 3 {
		t.Fatalf("Results: got %d, want 3", len(got))
	}
	for i, want := range []string{"ambient", "room", "water"} {
		if got[i].ThermometerID != want {
			t.Errorf("Results[%d] = %q, want %q", i, got[i].ThermometerID, want)
		}
	}

	// water was stored 5s ago and is now stale.
	c.t = c.t.Add(2 * time.Second)
	got = st.Results()
	if len(got) != 2 {
		t.Fatalf("Results after staleness: got %d, want 2", len(got))
	}
	if len(st.data) != 3 {
		t.Errorf("stale entries are kept until Evict, held = %d", len(st.data))
	}
}

func TestEvict(t *testing.T) {
	st, c := newTestStore(5 * time.Second)
	st.Put(result("water", 21))
	c.t = c.t.Add(4 * time.Second)
	st.Put(result("room", 23))

	c.t = c.t.Add(time.Second)
	if n := st.Evict(); n != 1 {
		t.Errorf("Evict: removed %d, want 1", n)
	}
	if _, ok := st.data["water"]; ok {
		t.Error("water should have been evicted")
	}
	if _, ok := st.data["room"]; !ok {
		t.Error("room should remain")
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				st.Put(result(string(rune('a'+i)), float64(j)))
				_ = st.Results()
				st.Evict()
			}
		}(i)
	}
	wg.Wait()
	if got := len(st.Results()); got != 8 {
		t.Errorf("Results: got %d, want 8", got)
	}
}
