package lens

import (
	"testing"
	"time"
)

func TestDebouncerJitterKeepsOneTimer(t *testing.T) {
	doc := mustDoc(t, `<p id="a">Alpha</p><p id="b">Beta</p>`)
	a, b := doc.Query("#a"), doc.Query("#b")
	sched := &fakeScheduler{}
	d := NewDebouncer(0, sched, nil)

	var fired []uint64
	record := func(gen uint64) { fired = append(fired, gen) }
	for i := 0; i < 10; i++ {
		d.Touch(a, record)
		d.Touch(b, record)
	}
	if sched.Active() != 1 {
		t.Fatalf("active timers = %d, want 1", sched.Active())
	}
	if d.Delay() != DefaultHoverDelay {
		t.Fatalf("delay = %s", d.Delay())
	}

	sched.FireAll()
	if len(fired) != 1 {
		t.Fatalf("fired %d times", len(fired))
	}
	target, ok := d.Fire(fired[0])
	if !ok || target != b {
		t.Fatalf("Fire = %v, %v; want last touched element", target, ok)
	}
	if d.Scheduled() {
		t.Fatal("still scheduled after fire")
	}
	if _, ok := d.Fire(fired[0]); ok {
		t.Fatal("second Fire with the same generation must be ignored")
	}
}

func TestDebouncerStaleGeneration(t *testing.T) {
	doc := mustDoc(t, `<p id="a">Alpha</p>`)
	a := doc.Query("#a")
	d := NewDebouncer(10*time.Millisecond, &fakeScheduler{}, nil)

	var gens []uint64
	d.Touch(a, func(g uint64) { gens = append(gens, g) })
	first := d.gen
	d.Touch(a, func(g uint64) { gens = append(gens, g) })

	// Срабатывание первого таймера уже в очереди цикла, но таймер перезапущен.
	if _, ok := d.Fire(first); ok {
		t.Fatal("stale generation accepted")
	}

	cur := d.gen
	d.Cancel()
	if _, ok := d.Fire(cur); ok {
		t.Fatal("fire after Cancel accepted")
	}
	if d.RawTarget() != nil || d.Scheduled() || !d.ScheduledAt().IsZero() {
		t.Fatal("Cancel must forget the target")
	}
}

func TestDebouncerScheduledAt(t *testing.T) {
	doc := mustDoc(t, `<p id="a">Alpha</p>`)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(time.Second, &fakeScheduler{}, func() time.Time { return at })
	d.Touch(doc.Query("#a"), func(uint64) {})
	if !d.ScheduledAt().Equal(at) || !d.Scheduled() {
		t.Fatalf("ScheduledAt = %s", d.ScheduledAt())
	}
}

func TestRealtimeSchedulerStop(t *testing.T) {
	done := make(chan struct{}, 1)
	stop := RealtimeScheduler{}.AfterFunc(time.Hour, func() { done <- struct{}{} })
	if !stop() {
		t.Fatal("stop of a pending timer must report true")
	}
	select {
	case <-done:
		t.Fatal("stopped timer fired")
	case <-time.After(10 * time.Millisecond):
	}
}
