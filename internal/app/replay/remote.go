package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"LinguaLens/internal/transport/bridge"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Remote проигрывает тот же сценарий через работающий мост: клиент моста
// изображает страницу, а пути узлов уходят на сервер как есть.
type Remote struct {
	cl     *bridge.Client
	logger *zap.SugaredLogger

	// Quiet — сколько ждать тишины от сервера в шаге settle.
	Quiet time.Duration

	keyID     int64
	mutations []bridge.Message
}

func NewRemote(cl *bridge.Client, logger *zap.SugaredLogger) *Remote {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Remote{cl: cl, logger: logger, Quiet: 500 * time.Millisecond}
}

// Attach отправляет снимок страницы и ждёт ready. false — перевод выключен в настройках.
func (r *Remote) Attach(ctx context.Context, html, url string) (bool, error) {
	if err := r.cl.Hello(html, url); err != nil {
		return false, err
	}
	ready, err := r.await(ctx, bridge.MsgReady)
	if err != nil {
		return false, err
	}
	return ready.Raw.Get("enabled").Bool(), nil
}

// Mutations возвращает мутации, полученные от сервера, в порядке прихода.
func (r *Remote) Mutations() []bridge.Message { return r.mutations }

func (r *Remote) Run(ctx context.Context, script io.Reader) error {
	return run(script, func(raw string) error { return r.step(ctx, raw) })
}

func (r *Remote) step(ctx context.Context, raw string) error {
	st := gjson.Parse(raw)
	op := st.Get("op").String()
	r.logger.Debugw("Remote replay step", "op", op)

	switch op {
	case OpOver:
		return r.cl.Send(map[string]any{"type": bridge.MsgOver, "path": st.Get("path").String()})
	case OpOut:
		return r.cl.Send(map[string]any{"type": bridge.MsgOut, "path": st.Get("path").String(), "to": st.Get("to").String()})
	case OpSelect:
		anchor := st.Get("anchor").String()
		focus := anchor
		if p := st.Get("focus"); p.Exists() {
			focus = p.String()
		}
		return r.cl.Send(map[string]any{"type": bridge.MsgSelection, "anchor": anchor, "focus": focus, "text": st.Get("text").String()})
	case OpKey:
		r.keyID++
		err := r.cl.Send(map[string]any{
			"type":  bridge.MsgKeyDown,
			"id":    r.keyID,
			"key":   st.Get("key").String(),
			"alt":   st.Get("alt").Bool(),
			"ctrl":  st.Get("ctrl").Bool(),
			"meta":  st.Get("meta").Bool(),
			"shift": st.Get("shift").Bool(),
		})
		if err != nil {
			return err
		}
		ack, err := r.await(ctx, bridge.MsgKeyAck)
		if err != nil {
			return err
		}
		r.logger.Infow("Key", "key", st.Get("key").String(), "suppressed", ack.Raw.Get("suppress").Bool())
		return nil
	case OpRemove:
		return r.cl.Send(map[string]any{"type": bridge.MsgRemoved, "path": st.Get("path").String()})
	case OpInsert:
		return r.cl.Send(map[string]any{
			"type":  bridge.MsgInserted,
			"path":  st.Get("path").String(),
			"index": st.Get("index").Int(),
			"html":  st.Get("html").String(),
		})
	case OpText:
		return r.cl.Send(map[string]any{"type": bridge.MsgText, "path": st.Get("path").String(), "text": st.Get("text").String()})
	case OpWait:
		return sleep(ctx, time.Duration(st.Get("ms").Int())*time.Millisecond)
	case OpSettle:
		return r.settle(ctx)
	default:
		return fmt.Errorf("unknown op %q", op)
	}
}

// settle ждёт, пока сервер не замолчит на Quiet. Состояние ядра удалённо не видно,
// поэтому Quiet должен быть больше задержки наведения и времени перевода.
func (r *Remote) settle(ctx context.Context) error {
	t := time.NewTimer(r.Quiet)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-t.C:
			return nil
		case m, ok := <-r.cl.Messages():
			if !ok {
				return errors.New("bridge connection closed")
			}
			r.observe(m)
			t.Reset(r.Quiet)
		}
	}
}

// await ждёт сообщение типа typ; остальные сообщения по пути учитываются.
func (r *Remote) await(ctx context.Context, typ string) (bridge.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return bridge.Message{}, context.Cause(ctx)
		case m, ok := <-r.cl.Messages():
			if !ok {
				return bridge.Message{}, errors.New("bridge connection closed")
			}
			if m.Type == typ {
				return m, nil
			}
			r.observe(m)
		}
	}
}

func (r *Remote) observe(m bridge.Message) {
	switch m.Type {
	case bridge.MsgMutation:
		r.mutations = append(r.mutations, m)
		r.logger.Infow("Mutation", "kind", m.Raw.Get("kind").String(), "path", m.Raw.Get("path").String(), "text", m.Raw.Get("text").String())
	case bridge.MsgNotify:
		r.logger.Infow("Notification", "kind", m.Raw.Get("kind").String(), "title", m.Raw.Get("title").String())
	case bridge.MsgError:
		r.logger.Warnw("Bridge error", "message", m.Raw.Get("message").String())
	}
}
