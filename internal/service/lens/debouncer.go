package lens

import (
	"time"

	"golang.org/x/net/html"
)

const DefaultHoverDelay = 250 * time.Millisecond

// Scheduler откладывает вызов f на d. Возвращаемая функция отменяет вызов,
// true — если отмена успела до срабатывания.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// RealtimeScheduler — планировщик на time.AfterFunc.
type RealtimeScheduler struct{}

func (RealtimeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Debouncer сводит поток pointer-over в одну отложенную оценку на период «зависания» курсора.
// Состояние явное: последняя «сырая» цель, момент планирования и поколение таймера.
// Срабатывание таймера возвращается в цикл событий, устаревшие поколения отбрасываются.
type Debouncer struct {
	delay time.Duration
	sched Scheduler
	now   func() time.Time

	rawTarget   *html.Node
	scheduledAt time.Time
	gen         uint64
	stop        func() bool
}

func NewDebouncer(delay time.Duration, sched Scheduler, now func() time.Time) *Debouncer {
	if delay <= 0 {
		delay = DefaultHoverDelay
	}
	if sched == nil {
		sched = RealtimeScheduler{}
	}
	if now == nil {
		now = time.Now
	}
	return &Debouncer{delay: delay, sched: sched, now: now}
}

// Touch отменяет запланированную оценку, запоминает новую цель и планирует заново.
// elapsed вызывается из горутины планировщика с поколением таймера.
func (d *Debouncer) Touch(target *html.Node, elapsed func(gen uint64)) {
	d.cancelTimer()
	d.rawTarget = target
	d.gen++
	gen := d.gen
	d.scheduledAt = d.now()
	d.stop = d.sched.AfterFunc(d.delay, func() { elapsed(gen) })
}

// Fire принимает срабатывание таймера. Возвращает запомненную на данный момент цель,
// если поколение актуально и оценка не была отменена.
func (d *Debouncer) Fire(gen uint64) (*html.Node, bool) {
	if gen != d.gen || d.stop == nil {
		return nil, false
	}
	d.stop = nil
	d.scheduledAt = time.Time{}
	return d.rawTarget, d.rawTarget != nil
}

// Cancel отменяет запланированную оценку и забывает цель.
func (d *Debouncer) Cancel() {
	d.cancelTimer()
	d.rawTarget = nil
}

func (d *Debouncer) cancelTimer() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.scheduledAt = time.Time{}
	// Сдвигаем поколение, чтобы уже отправленное в цикл срабатывание стало устаревшим.
	d.gen++
}

func (d *Debouncer) Scheduled() bool { return d.stop != nil }

func (d *Debouncer) ScheduledAt() time.Time { return d.scheduledAt }

func (d *Debouncer) RawTarget() *html.Node { return d.rawTarget }

func (d *Debouncer) Delay() time.Duration { return d.delay }
