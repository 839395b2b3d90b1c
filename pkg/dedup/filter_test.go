package dedup

import (
	"testing"
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"
)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time        { return f.t }
func (f *fakeTime) tick(d time.Duration)  { f.t = f.t.Add(d) }
func on() entities.DeviceStatus           { return entities.DeviceStatus{Name: "ON"} }
func off() entities.DeviceStatus          { return entities.DeviceStatus{Name: "OFF"} }
func dim(level int) entities.DeviceStatus { return entities.DeviceStatus{Name: "DIM", DimLevel: &level} }

const window = time.Second

func newTestFilter() (*Filter[entities.DeviceID, entities.DeviceStatus], *fakeTime, *int) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	f := NewFilter(window, WithNow[entities.DeviceID, entities.DeviceStatus](ft.now))
	calls := new(int)
	return f, ft, calls
}

func TestFilterFires(t *testing.T) {
	f, _, calls := newTestFilter()
	send := f.Wrap(func(entities.DeviceID, entities.DeviceStatus) { *calls++ })
	send(1, on())
	if *calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", *calls)
	}
}

func TestFilterSuppressesDuplicate(t *testing.T) {
	f, _, calls := newTestFilter()
	send := f.Wrap(func(entities.DeviceID, entities.DeviceStatus) { *calls++ })
	send(1, on())
	send(1, on())
	if *calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", *calls)
	}
}

func TestFilterFiresAgainAfterWindow(t *testing.T) {
	f, ft, calls := newTestFilter()
	send := f.Wrap(func(entities.DeviceID, entities.DeviceStatus) { *calls++ })
	send(1, on())
	ft.tick(window)
	send(1, on())
	if *calls != 2 {
		t.Fatalf("expected 2 deliveries, got %d", *calls)
	}
}

func TestFilterKeysOnExactStatus(t *testing.T) {
	f, _, calls := newTestFilter()
	send := f.Wrap(func(entities.DeviceID, entities.DeviceStatus) { *calls++ })
	send(1, on())
	send(1, off())
	send(1, on())
	if *calls != 2 {
		t.Fatalf("expected one delivery per distinct status, got %d", *calls)
	}
}

func TestFilterDuplicateExtendsWindow(t *testing.T) {
	f, ft, _ := newTestFilter()
	if !f.Allow(1, on()) {
		t.Fatalf("expected first report delivered")
	}
	ft.tick(window - time.Millisecond)
	if f.Allow(1, on()) {
		t.Fatalf("expected duplicate suppressed")
	}
	ft.tick(window - time.Millisecond)
	if f.Allow(1, on()) {
		t.Fatalf("expected refreshed window to still suppress")
	}
	ft.tick(window)
	if !f.Allow(1, on()) {
		t.Fatalf("expected delivery once the refreshed window ran out")
	}
}

func TestFilterDimLevels(t *testing.T) {
	f, _, _ := newTestFilter()
	cases := []struct {
		name   string
		device entities.DeviceID
		status entities.DeviceStatus
		want   bool
	}{
		{"first dim", 1, dim(10), true},
		{"same level", 1, dim(10), false},
		{"other level", 1, dim(20), true},
		{"dim without level", 1, entities.DeviceStatus{Name: "DIM"}, true},
		{"other device", 2, dim(10), true},
	}
	for _, tc := range cases {
		if got := f.Allow(tc.device, tc.status); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFilterScrubsEveryDevice(t *testing.T) {
	f, ft, _ := newTestFilter()
	f.Allow(1, on())
	f.Allow(2, off())
	f.Allow(3, dim(5))
	if n := f.Live(); n != 3 {
		t.Fatalf("expected 3 live entries, got %d", n)
	}
	ft.tick(window)
	f.Allow(4, on())
	if n := f.Live(); n != 1 {
		t.Fatalf("expected expired entries of other devices scrubbed, got %d live", n)
	}
}

func TestDeduperTTL(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	d := New(time.Minute, 2)
	d.now = ft.now
	if !d.ShouldProcess("a") || d.ShouldProcess("a") {
		t.Fatalf("expected first seen processed and repeat dropped")
	}
	if !d.ShouldProcess("") || !d.ShouldProcess("") {
		t.Fatalf("expected empty id always processed")
	}
	ft.tick(time.Minute)
	if !d.ShouldProcess("a") {
		t.Fatalf("expected id processed again after ttl")
	}
	d.ShouldProcess("b")
	d.ShouldProcess("c")
	if n := d.Len(); n > 2 {
		t.Fatalf("expected cap of 2 ids, got %d", n)
	}
}
