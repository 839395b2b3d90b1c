package txqueue

import (
	"testing"
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"
)

func TestSupersedes(t *testing.T) {
	on1 := entities.Command{DeviceID: 1, Action: entities.ActionTurnOn}
	off1 := entities.Command{DeviceID: 1, Action: entities.ActionTurnOff}
	on2 := entities.Command{DeviceID: 2, Action: entities.ActionTurnOn}
	dim100 := entities.Command{DeviceID: 1, Action: entities.ActionDim, Level: 100}
	dim200 := entities.Command{DeviceID: 1, Action: entities.ActionDim, Level: 200}
	dimDev2 := entities.Command{DeviceID: 2, Action: entities.ActionDim, Level: 200}

	cases := []struct {
		name     string
		existing entities.Command
		incoming entities.Command
		want     bool
	}{
		{"same device different action", on1, off1, true},
		{"different device", on1, on2, false},
		{"identical command", on1, on1, false},
		{"dim level changed", dim100, dim200, true},
		{"dim same level", dim100, dim100, false},
		{"dim other device", dim100, dimDev2, false},
		{"dim after on", on1, dim100, true},
	}
	for _, tc := range cases {
		if got := Supersedes(tc.existing, tc.incoming); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestSupersedesEveryActionPair(t *testing.T) {
	for _, a := range entities.Actions {
		for _, b := range entities.Actions {
			existing := entities.Command{DeviceID: 7, Action: a}
			incoming := entities.Command{DeviceID: 7, Action: b}
			if got, want := Supersedes(existing, incoming), a != b; got != want {
				t.Fatalf("%s then %s: expected %v, got %v", a, b, want, got)
			}
		}
	}
}

func TestCandidateLowestTierInQueueOrder(t *testing.T) {
	q := NewQueue(DefaultConfig())
	now := time.Unix(0, 0)
	if q.Candidate() != nil {
		t.Fatalf("expected no candidate on empty queue")
	}
	a, _ := q.Enqueue(entities.Command{DeviceID: 1, Action: entities.ActionTurnOn}, nil, now)
	b, _ := q.Enqueue(entities.Command{DeviceID: 2, Action: entities.ActionTurnOn}, nil, now)
	c, _ := q.Enqueue(entities.Command{DeviceID: 3, Action: entities.ActionTurnOn}, nil, now)
	a.repeatCount, b.repeatCount, c.repeatCount = 2, 1, 1

	if got := q.Candidate(); got != b {
		t.Fatalf("expected device 2, got %v", got.Command())
	}
	q.MoveToBack(b)
	if got := q.Candidate(); got != c {
		t.Fatalf("expected device 3 after round-robin, got %v", got.Command())
	}
}

func TestScrubReasons(t *testing.T) {
	cfg := DefaultConfig()
	q := NewQueue(cfg)
	now := time.Unix(0, 0)
	completed := map[entities.DeviceID]int{}
	done := func(id entities.DeviceID) func(error) {
		return func(err error) {
			if err != nil {
				t.Errorf("device %d: expected nil error, got %v", id, err)
			}
			completed[id]++
		}
	}

	fresh, _ := q.Enqueue(entities.Command{DeviceID: 1, Action: entities.ActionTurnOn}, done(1), now)
	sent, _ := q.Enqueue(entities.Command{DeviceID: 2, Action: entities.ActionTurnOn}, done(2), now)
	spent, _ := q.Enqueue(entities.Command{DeviceID: 3, Action: entities.ActionTurnOn}, done(3), now)
	q.Enqueue(entities.Command{DeviceID: 4, Action: entities.ActionTurnOn}, done(4), now)
	_, superseded := q.Enqueue(entities.Command{DeviceID: 4, Action: entities.ActionTurnOff}, done(5), now)
	if len(superseded) != 1 {
		t.Fatalf("expected one superseded command, got %v", superseded)
	}
	sent.repeatCount = 1
	spent.repeatCount = cfg.MaxRepeat + 1

	later := now.Add(cfg.MaxResendTTL)
	removed := q.Scrub(later)
	Complete(removed, nil)

	reasons := map[entities.DeviceID]DropReason{}
	for _, rm := range removed {
		reasons[rm.Record.Command().DeviceID] = rm.Reason
	}
	if reasons[2] != DropExpired || reasons[3] != DropExhausted || reasons[4] != DropInvalidated {
		t.Fatalf("unexpected drop reasons %v", reasons)
	}
	if _, ok := reasons[1]; ok {
		t.Fatalf("record never sent must not expire")
	}
	if q.Len() != 2 || q.Candidate() != fresh {
		t.Fatalf("expected fresh turnOn and the turnOff to remain, got %d records", q.Len())
	}
	for _, id := range []entities.DeviceID{2, 3, 4} {
		if completed[id] != 1 {
			t.Fatalf("device %d: expected one completion, got %d", id, completed[id])
		}
	}

	Complete(q.Scrub(later), nil)
	for _, id := range []entities.DeviceID{2, 3, 4} {
		if completed[id] != 1 {
			t.Fatalf("device %d: completion fired again", id)
		}
	}
}

func TestMoveToBackIgnoresRemovedRecord(t *testing.T) {
	q := NewQueue(DefaultConfig())
	rec, _ := q.Enqueue(entities.Command{DeviceID: 1, Action: entities.ActionBell}, nil, time.Unix(0, 0))
	q.Clear()
	if q.MoveToBack(rec) {
		t.Fatalf("expected MoveToBack to report a missing record")
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue to stay empty")
	}
}

func TestManualClockFiresInDeadlineOrder(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	var order []int
	c.AfterFunc(200*time.Millisecond, func() { order = append(order, 2) })
	c.AfterFunc(100*time.Millisecond, func() {
		order = append(order, 1)
		c.AfterFunc(50*time.Millisecond, func() { order = append(order, 3) })
	})
	stopped := c.AfterFunc(120*time.Millisecond, func() { order = append(order, 99) })
	if !stopped.Stop() {
		t.Fatalf("expected Stop to cancel a pending timer")
	}
	c.Advance(time.Second)
	want := []int{1, 3, 2}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers")
	}
}
