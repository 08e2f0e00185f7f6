package notify

import (
	"time"

	"go.uber.org/zap"
)

// Kind — тип уведомления.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification — одно уведомление для пользователя.
type Notification struct {
	Kind     Kind
	Title    string
	Message  string
	Duration time.Duration // Подсказка длительности показа, 0 — на усмотрение хоста
}

// Notifier — приёмник уведомлений по принципу fire-and-forget: не блокирует и не возвращает ошибок.
type Notifier interface {
	Notify(n Notification)
}

// Func позволяет использовать функцию как Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Multi рассылает уведомление всем приёмникам по очереди.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}

// LogNotifier пишет уведомления в лог.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier { return &LogNotifier{logger: logger} }

func (l *LogNotifier) Notify(n Notification) {
	if l.logger == nil {
		return
	}
	switch n.Kind {
	case KindError:
		l.logger.Warnw("Notification", "kind", n.Kind, "title", n.Title, "message", n.Message)
	default:
		l.logger.Infow("Notification", "kind", n.Kind, "title", n.Title, "message", n.Message)
	}
}
