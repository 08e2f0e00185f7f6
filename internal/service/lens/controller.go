package lens

import (
	"context"
	"errors"
	"sync"
	"time"

	"LinguaLens/internal/ai"
	"LinguaLens/internal/dom"
	"LinguaLens/internal/service/notify"
	"LinguaLens/internal/settings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var errUnmounted = errors.New("lens: unmounted")

// Options конфигурирует контроллер одного документа.
type Options struct {
	Settings   settings.Settings
	Translator ai.Translator
	Notifier   notify.Notifier
	Logger     *zap.SugaredLogger

	HoverDelay    time.Duration // Задержка debounce наведения, 0 — DefaultHoverDelay
	MinTextLength int           // 0 — DefaultMinTextLength
	MaxTextLength int           // 0 — DefaultMaxTextLength

	Scheduler Scheduler        // nil — RealtimeScheduler
	Now       func() time.Time // nil — time.Now

	// OnMutation вызывается из цикла событий после каждого изменения текста.
	// Не должен блокироваться и вызывать синхронные методы контроллера.
	OnMutation func(Mutation)
}

type eventType int

const (
	evPointerOver eventType = iota + 1
	evPointerOut
	evSelectionEnd
	evKeyDown
	evNodeRemoved
	evHoverElapsed
	evCall
)

type event struct {
	typ     eventType
	target  *html.Node
	related *html.Node
	sel     dom.Selection
	key     KeyEvent
	gen     uint64
	fn      func()
	reply   chan bool
}

// loop — один смонтированный цикл событий. Пересоздаётся при каждом Mount,
// чтобы результаты предыдущего монтирования не попадали в новое.
type loop struct {
	ctx  context.Context
	in   chan event
	done chan struct{}
}

func (l *loop) alive() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Snapshot — состояние ядра на момент запроса.
type Snapshot struct {
	Status         Status
	Pending        *Candidate
	InFlight       *Candidate
	Undo           *UndoRecord
	HoverScheduled bool
	Requests       int
}

// Controller владеет слушателями документа и всем изменяемым состоянием ядра.
// Вся работа идёт в одной горутине цикла событий; единственная точка приостановки —
// вызов бэкенда перевода, результат которого возвращается в цикл.
type Controller struct {
	doc    *dom.Document
	opts   Options
	logger *zap.SugaredLogger

	resolver  *Resolver
	debouncer *Debouncer
	session   *Session
	undo      *UndoSlot
	hotkeys   Dispatcher

	mu     sync.Mutex
	cur    *loop
	cancel context.CancelCauseFunc
}

func New(doc *dom.Document, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.Translator == nil {
		opts.Translator = ai.NewStubClient()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Controller{
		doc:     doc,
		opts:    opts,
		logger:  opts.Logger,
		hotkeys: NewDispatcher(opts.Settings),
	}
	c.resolver = NewResolver(opts.MinTextLength, opts.MaxTextLength, opts.Now)
	c.debouncer = NewDebouncer(opts.HoverDelay, opts.Scheduler, opts.Now)

	var session *Session
	busy := func() bool { return session.Translating() }
	c.undo = NewUndoSlot(doc, opts.Notifier, c.logger, busy, c.emit)
	applier := NewApplier(doc, c.undo, c.emit)
	session = NewSession(opts.Settings, opts.Translator, loopExecutor{c}, applier, opts.Notifier, c.logger)
	c.session = session
	return c
}

func (c *Controller) Document() *dom.Document { return c.doc }

func (c *Controller) Settings() settings.Settings { return c.opts.Settings }

// Mount подключает слушатели и запускает цикл событий. Повторный вызов безопасен.
// При выключенном переводе (Settings.Enabled == false) ничего не подключает и возвращает false.
func (c *Controller) Mount(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil && c.cur.alive() {
		return true
	}
	if !c.opts.Settings.Enabled {
		c.logger.Infow("Hover translate disabled, listeners not attached")
		return false
	}

	loopCtx, cancel := context.WithCancelCause(ctx)
	l := &loop{ctx: loopCtx, in: make(chan event, 64), done: make(chan struct{})}
	c.cur = l
	c.cancel = cancel
	go c.run(l)

	c.logger.Infow("Mounted",
		"language", c.opts.Settings.TargetLanguage,
		"translate", c.opts.Settings.HotkeyLabel(c.opts.Settings.TranslateKey),
		"undo", c.opts.Settings.HotkeyLabel(c.opts.Settings.UndoKey),
		"hoverDelay", c.debouncer.Delay().String(),
	)
	return true
}

// Unmount отключает слушатели: останавливает цикл, отменяет таймер debounce,
// отменяет контекст выполняющегося перевода и очищает слот отмены.
func (c *Controller) Unmount() {
	c.mu.Lock()
	l, cancel := c.cur, c.cancel
	c.cur, c.cancel = nil, nil
	c.mu.Unlock()

	if l == nil {
		return
	}
	cancel(errUnmounted)
	<-l.done
	c.logger.Infow("Unmounted")
}

// Mounted сообщает, работает ли цикл событий.
func (c *Controller) Mounted() bool {
	l := c.current()
	return l != nil && l.alive()
}

// PointerOver — курсор вошёл в target.
func (c *Controller) PointerOver(target *html.Node) bool {
	return c.send(event{typ: evPointerOver, target: target})
}

// PointerOut — курсор ушёл из from в to (to может быть nil — за пределы окна).
func (c *Controller) PointerOut(from, to *html.Node) bool {
	return c.send(event{typ: evPointerOut, target: from, related: to})
}

// SelectionEnd — пользователь завершил выделение текста.
func (c *Controller) SelectionEnd(sel dom.Selection) bool {
	return c.send(event{typ: evSelectionEnd, sel: sel})
}

// NodeRemoved — хост удалил узел из документа.
func (c *Controller) NodeRemoved(n *html.Node) bool {
	return c.send(event{typ: evNodeRemoved, target: n})
}

// KeyDown обрабатывает нажатие синхронно и возвращает true,
// если стандартную обработку сочетания нужно подавить.
func (c *Controller) KeyDown(k KeyEvent) bool {
	l := c.current()
	if l == nil {
		return false
	}
	reply := make(chan bool, 1)
	if !c.post(l, event{typ: evKeyDown, key: k, reply: reply}) {
		return false
	}
	select {
	case v := <-reply:
		return v
	case <-l.done:
		return false
	}
}

// Do выполняет fn внутри цикла событий и ждёт завершения. Через Do хост безопасно
// читает документ (например, разрешает пути узлов). false — контроллер не смонтирован.
func (c *Controller) Do(fn func(doc *dom.Document)) bool {
	l := c.current()
	if l == nil {
		return false
	}
	reply := make(chan bool, 1)
	ev := event{typ: evCall, reply: reply, fn: func() { fn(c.doc) }}
	if !c.post(l, ev) {
		return false
	}
	select {
	case <-reply:
		return true
	case <-l.done:
		return false
	}
}

// Edit применяет правку хоста к зеркалу документа внутри цикла событий (вставка узлов,
// изменение текста на странице) и затем забывает цели наведения, кандидатов и запись
// отмены, выпавшие из дерева. Правки хоста в слот отмены не попадают.
func (c *Controller) Edit(fn func(doc *dom.Document) error) error {
	var err error
	ok := c.Do(func(doc *dom.Document) {
		if err = fn(doc); err == nil {
			c.dropDetached()
		}
	})
	if !ok {
		return ErrNotMounted
	}
	return err
}

// Snapshot возвращает копию состояния, снятую внутри цикла.
func (c *Controller) Snapshot() (Snapshot, bool) {
	var s Snapshot
	ok := c.Do(func(*dom.Document) {
		s.Status = c.session.Status()
		if p, has := c.session.Pending(); has {
			s.Pending = &p
		}
		if f, has := c.session.InFlight(); has {
			s.InFlight = &f
		}
		if r, has := c.undo.Peek(); has {
			s.Undo = &r
		}
		s.HoverScheduled = c.debouncer.Scheduled()
		s.Requests = c.session.Requests()
	})
	return s, ok
}

func (c *Controller) current() *loop {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *Controller) send(ev event) bool {
	l := c.current()
	if l == nil {
		return false
	}
	return c.post(l, ev)
}

func (c *Controller) post(l *loop, ev event) bool {
	select {
	case <-l.done:
		return false
	case <-l.ctx.Done():
		return false
	case l.in <- ev:
		return true
	}
}

func (c *Controller) run(l *loop) {
	defer close(l.done)
	defer c.teardown()

	for {
		select {
		case <-l.ctx.Done():
			return
		case ev := <-l.in:
			c.handle(l, ev)
		}
	}
}

// teardown не оставляет висящих таймеров и ссылок на элементы после размонтирования.
func (c *Controller) teardown() {
	c.debouncer.Cancel()
	c.session.abandon()
	c.undo.Clear()
}

func (c *Controller) handle(l *loop, ev event) {
	switch ev.typ {
	case evPointerOver:
		c.debouncer.Touch(ev.target, func(gen uint64) {
			c.post(l, event{typ: evHoverElapsed, gen: gen})
		})
	case evHoverElapsed:
		c.onHoverElapsed(ev.gen)
	case evPointerOut:
		c.onPointerOut(ev.target, ev.related)
	case evSelectionEnd:
		c.onSelectionEnd(ev.sel)
	case evKeyDown:
		ev.reply <- c.onKeyDown(ev.key)
	case evNodeRemoved:
		c.onNodeRemoved(ev.target)
	case evCall:
		if ev.fn != nil {
			ev.fn()
		}
		if ev.reply != nil {
			ev.reply <- true
		}
	}
}

func (c *Controller) onHoverElapsed(gen uint64) {
	target, ok := c.debouncer.Fire(gen)
	if !ok {
		return
	}
	if !c.doc.Attached(target) {
		c.logger.Debugw("Hover target rejected", "reason", "detached")
		c.session.Reset()
		return
	}
	cand, err := c.resolver.Hover(target)
	if err != nil {
		c.logger.Debugw("Hover target rejected", "reason", err)
		c.session.Reset()
		return
	}
	c.promote(cand)
}

func (c *Controller) onSelectionEnd(sel dom.Selection) {
	if sel.Collapsed() {
		return
	}
	c.debouncer.Cancel()
	cand, err := c.resolver.Selection(sel)
	if err != nil {
		c.logger.Debugw("Selection target rejected", "reason", err)
		c.session.Reset()
		return
	}
	c.promote(cand)
}

// promote делает кандидата целью, если он отличается от текущей.
func (c *Controller) promote(cand Candidate) {
	if cur, ok := c.session.Pending(); ok && cur.Same(cand) {
		return
	}
	c.session.Capture(cand)
}

// onPointerOut сбрасывает цель, когда курсор покидает зафиксированный элемент
// не в сторону оверлея и не внутрь элемента. Выполняющийся перевод не прерывается.
func (c *Controller) onPointerOut(from, to *html.Node) {
	if c.session.Translating() {
		return
	}
	if to != nil && c.resolver.IsOverlay(to) {
		return
	}
	committed := c.debouncer.RawTarget()
	if p, ok := c.session.Pending(); ok {
		committed = p.Element
	}
	if committed == nil {
		committed = from
	}
	if to != nil && dom.Contains(committed, to) {
		return
	}
	c.debouncer.Cancel()
	c.session.Reset()
}

func (c *Controller) onKeyDown(k KeyEvent) bool {
	switch c.hotkeys.Match(k) {
	case ActionTranslate:
		if c.session.Status() != StatusPending {
			return false
		}
		return c.session.RequestTranslation()
	case ActionUndo:
		if err := c.undo.Consume(); err != nil {
			c.logger.Debugw("Undo not applied", "reason", err)
		}
		return true
	default:
		return false
	}
}

func (c *Controller) onNodeRemoved(n *html.Node) {
	if !c.doc.Remove(n) {
		return
	}
	c.dropDetached()
}

func (c *Controller) dropDetached() {
	if p, ok := c.session.Pending(); ok && !c.doc.Attached(p.Element) {
		c.session.Reset()
	}
	c.dropDetachedHover()
	c.undo.DropDetached()
}

// dropDetachedHover отменяет оценку наведения, если её цель выпала из документа
// (удаление узла или замена текста, отсоединяющая детей элемента).
func (c *Controller) dropDetachedHover() {
	if raw := c.debouncer.RawTarget(); raw != nil && !c.doc.Attached(raw) {
		c.debouncer.Cancel()
	}
}

func (c *Controller) emit(m Mutation) {
	c.dropDetachedHover()
	if c.opts.OnMutation != nil {
		c.opts.OnMutation(m)
	}
}

// loopExecutor запускает перевод в отдельной горутине с контекстом текущего монтирования
// и возвращает результат в тот же цикл. После размонтирования результат отбрасывается.
type loopExecutor struct{ c *Controller }

func (e loopExecutor) Go(work func(ctx context.Context) (string, error), done func(string, error)) {
	l := e.c.current()
	if l == nil {
		return
	}
	go func() {
		out, err := work(l.ctx)
		e.c.post(l, event{typ: evCall, fn: func() { done(out, err) }})
	}()
}
