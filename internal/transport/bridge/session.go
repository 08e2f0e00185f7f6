package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"LinguaLens/internal/dom"
	"LinguaLens/internal/service/lens"
	"LinguaLens/internal/service/notify"
	"LinguaLens/internal/settings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const outboxSize = 64

// session — одно websocket-соединение со страницей и её зеркало документа.
// Читает только горутина run, пишет только writeLoop.
type session struct {
	id     uuid.UUID
	srv    *Server
	conn   *websocket.Conn
	logger *zap.SugaredLogger

	out  chan any
	done chan struct{}

	ctrl *lens.Controller
}

func newSession(srv *Server, conn *websocket.Conn) *session {
	id := uuid.New()
	return &session{
		id:     id,
		srv:    srv,
		conn:   conn,
		logger: srv.logger.With("session", id.String()),
		out:    make(chan any, outboxSize),
		done:   make(chan struct{}),
	}
}

// run обслуживает соединение до его закрытия или отмены ctx.
func (s *session) run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()

	defer func() {
		if s.ctrl != nil {
			s.ctrl.Unmount()
		}
		close(s.done)
		wg.Wait()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
		s.logger.Infow("Bridge session closed")
	}()

	s.logger.Infow("Bridge session opened", "remote", s.conn.RemoteAddr().String())
	for {
		if ctx.Err() != nil {
			return
		}
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugw("Bridge read stopped", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		in, err := decode(data)
		if err != nil {
			s.fail(err)
			continue
		}
		s.dispatch(ctx, in)
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case m := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.srv.cfg.WriteTimeout))
			if err := s.conn.WriteJSON(m); err != nil {
				s.logger.Warnw("Bridge write failed", "error", err)
				_ = s.conn.Close()
				return
			}
		}
	}
}

// send ставит сообщение в очередь не блокируясь: цикл событий ядра не должен ждать сеть.
func (s *session) send(m any) {
	select {
	case <-s.done:
	case s.out <- m:
	default:
		s.logger.Warnw("Bridge outbox full, message dropped")
	}
}

func (s *session) fail(err error) {
	s.logger.Debugw("Bridge message rejected", "error", err)
	s.send(ErrorMsg{Type: MsgError, Message: err.Error()})
}

func (s *session) dispatch(ctx context.Context, in inbound) {
	if in.typ == MsgHello {
		s.hello(ctx, in.body.(*helloMsg))
		return
	}
	if s.ctrl == nil {
		s.fail(errors.New("bridge: hello expected first"))
		return
	}

	switch m := in.body.(type) {
	case *pointerMsg:
		from, ok := s.resolve(m.Path)
		if !ok {
			return
		}
		if in.typ == MsgOver {
			s.ctrl.PointerOver(from)
			return
		}
		var to *html.Node
		if m.To != "" {
			to, _ = s.resolve(m.To)
		}
		s.ctrl.PointerOut(from, to)
	case *selectionMsg:
		anchor, ok := s.resolve(m.Anchor)
		if !ok {
			return
		}
		focus, ok := s.resolve(m.Focus)
		if !ok {
			focus = anchor
		}
		s.ctrl.SelectionEnd(dom.Selection{Anchor: anchor, Focus: focus, Text: m.Text})
	case *keyMsg:
		suppress := s.ctrl.KeyDown(m.event())
		s.send(KeyAckMsg{Type: MsgKeyAck, ID: m.ID, Suppress: suppress})
	case *removedMsg:
		if n, ok := s.resolve(m.Path); ok {
			s.ctrl.NodeRemoved(n)
		}
	case *insertedMsg:
		s.edit(m.Path, func(doc *dom.Document, n *html.Node) error {
			_, err := doc.Insert(n, m.Index, m.HTML)
			return err
		})
	case *textMsg:
		s.edit(m.Path, func(doc *dom.Document, n *html.Node) error {
			return doc.ReplaceText(n, m.Text)
		})
	}
}

// edit разрешает путь и применяет правку одним шагом цикла ядра,
// чтобы между ними не вклинилось применение перевода.
func (s *session) edit(path string, fn func(doc *dom.Document, n *html.Node) error) {
	p, err := dom.ParsePath(path)
	if err != nil {
		s.fail(err)
		return
	}
	err = s.ctrl.Edit(func(doc *dom.Document) error {
		n, err := doc.Resolve(p)
		if err != nil {
			return err
		}
		return fn(doc, n)
	})
	if err != nil {
		// Зеркало разошлось со страницей: странице нужно прислать hello заново.
		s.fail(fmt.Errorf("bridge: edit %s: %w", path, err))
	}
}

// hello строит зеркало документа и монтирует ядро. Повторный hello (навигация)
// размонтирует предыдущее зеркало.
func (s *session) hello(ctx context.Context, m *helloMsg) {
	if s.ctrl != nil {
		s.ctrl.Unmount()
		s.ctrl = nil
	}
	doc, err := dom.ParseString(m.HTML)
	if err != nil {
		s.fail(err)
		return
	}

	st, err := s.srv.store.Load()
	if err != nil {
		s.logger.Warnw("Settings unavailable, using defaults", "error", err)
		st = settings.Defaults()
	}

	opts := s.srv.opts
	s.ctrl = lens.New(doc, lens.Options{
		Settings:      st,
		Translator:    opts.Translator,
		Notifier:      notify.Multi{opts.Notifier, notify.Func(s.notify)},
		Logger:        s.logger,
		HoverDelay:    opts.HoverDelay,
		MinTextLength: opts.MinTextLength,
		MaxTextLength: opts.MaxTextLength,
		OnMutation: func(mu lens.Mutation) {
			// Вызывается из цикла ядра: читать дерево здесь безопасно.
			p, ok := doc.PathOf(mu.Element)
			if !ok {
				return
			}
			s.send(MutationMsg{Type: MsgMutation, Kind: string(mu.Kind), Path: p.String(), Text: mu.Text})
		},
	})
	mounted := s.ctrl.Mount(ctx)

	s.logger.Infow("Page attached", "url", m.URL, "bytes", len(m.HTML), "enabled", mounted)
	s.send(ReadyMsg{
		Type:            MsgReady,
		Session:         s.id.String(),
		Enabled:         mounted,
		Language:        st.TargetLanguage,
		Modifier:        string(st.Modifier),
		TranslateKey:    strings.ToLower(st.TranslateKey),
		UndoKey:         strings.ToLower(st.UndoKey),
		TranslateHotkey: st.HotkeyLabel(st.TranslateKey),
		UndoHotkey:      st.HotkeyLabel(st.UndoKey),
	})
}

func (s *session) notify(n notify.Notification) {
	s.send(newNotifyMsg(n))
}

// resolve находит узел зеркала по пути. Дерево читается внутри цикла ядра.
func (s *session) resolve(path string) (*html.Node, bool) {
	p, err := dom.ParsePath(path)
	if err != nil {
		s.fail(err)
		return nil, false
	}
	var n *html.Node
	var rerr error
	if !s.ctrl.Do(func(doc *dom.Document) { n, rerr = doc.Resolve(p) }) {
		return nil, false
	}
	if rerr != nil {
		s.logger.Debugw("Path not resolved", "path", path, "error", rerr)
		return nil, false
	}
	return n, true
}
