package lens

import (
	"context"
	"errors"

	"LinguaLens/internal/ai"
	"LinguaLens/internal/service/notify"
	"LinguaLens/internal/settings"

	"go.uber.org/zap"
)

// Status — состояние сессии перевода. Единственный источник истины для защиты от повторного входа.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusTranslating
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusTranslating:
		return "translating"
	default:
		return "unknown"
	}
}

// Executor выполняет блокирующую работу вне цикла событий;
// done вызывается уже внутри цикла.
type Executor interface {
	Go(work func(ctx context.Context) (string, error), done func(out string, err error))
}

// Session — машина состояний Idle → Pending → Translating → Idle.
// Запрос перевода достижим только из Pending и сразу переводит в Translating,
// поэтому в полёте всегда не больше одного запроса.
type Session struct {
	settings   settings.Settings
	translator ai.Translator
	exec       Executor
	applier    *Applier
	notifier   notify.Notifier
	logger     *zap.SugaredLogger

	status   Status
	pending  *Candidate
	inflight *Candidate
	requests int
}

func NewSession(st settings.Settings, tr ai.Translator, exec Executor, applier *Applier, notifier notify.Notifier, logger *zap.SugaredLogger) *Session {
	return &Session{
		settings:   st,
		translator: tr,
		exec:       exec,
		applier:    applier,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *Session) Status() Status { return s.status }

func (s *Session) Translating() bool { return s.status == StatusTranslating }

// Pending возвращает текущую цель, ожидающую перевода.
func (s *Session) Pending() (Candidate, bool) {
	if s.pending == nil {
		return Candidate{}, false
	}
	return *s.pending, true
}

// InFlight возвращает цель запроса, который сейчас выполняется.
func (s *Session) InFlight() (Candidate, bool) {
	if s.inflight == nil {
		return Candidate{}, false
	}
	return *s.inflight, true
}

// Requests — сколько запросов перевода было отправлено.
func (s *Session) Requests() int { return s.requests }

// Capture делает кандидата текущей целью. Во время перевода игнорируется,
// чтобы не затереть цель выполняющегося запроса.
func (s *Session) Capture(c Candidate) bool {
	if s.status == StatusTranslating {
		s.logger.Debugw("Capture ignored while translating", "source", c.Source)
		return false
	}
	s.pending = &c
	s.status = StatusPending
	s.logger.Debugw("Target captured", "source", c.Source, "chars", len([]rune(c.Text)))
	return true
}

// Reset возвращает сессию в Idle и забывает цель. Во время перевода — no-op.
func (s *Session) Reset() bool {
	if s.status == StatusTranslating {
		return false
	}
	s.pending = nil
	s.status = StatusIdle
	return true
}

// RequestTranslation отправляет текущую цель в бэкенд. Вне Pending — no-op.
func (s *Session) RequestTranslation() bool {
	if s.status != StatusPending || s.pending == nil {
		return false
	}
	c := *s.pending
	s.pending = nil
	s.inflight = &c
	s.status = StatusTranslating
	s.requests++

	lang, prompt := s.settings.TargetLanguage, s.settings.CustomPrompt
	s.logger.Infow("Translation requested", "source", c.Source, "language", lang, "chars", len([]rune(c.Text)))
	s.exec.Go(
		func(ctx context.Context) (string, error) {
			return s.translator.Translate(ctx, c.Text, lang, prompt)
		},
		func(out string, err error) { s.complete(c, out, err) },
	)
	return true
}

func (s *Session) complete(c Candidate, out string, err error) {
	s.inflight = nil
	s.status = StatusIdle
	if err != nil {
		s.logger.Warnw("Translation failed", "error", err)
		s.notifier.Notify(notify.Notification{
			Kind:    notify.KindError,
			Title:   "Translation Failed",
			Message: "Could not translate the text. Please try again.",
		})
		return
	}
	if err := s.applier.Apply(c.Element, out); err != nil {
		if errors.Is(err, ErrStaleTarget) {
			s.logger.Debugw("Translation dropped: target detached")
			return
		}
		s.logger.Warnw("Translation not applied", "error", err)
		return
	}
	s.logger.Infow("Translation applied", "source", c.Source)
}

// abandon сбрасывает всё, включая выполняющийся запрос. Только для размонтирования.
func (s *Session) abandon() {
	s.pending = nil
	s.inflight = nil
	s.status = StatusIdle
}
