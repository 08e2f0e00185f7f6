package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"LinguaLens/internal/service/lens"
	"LinguaLens/internal/service/notify"

	"github.com/tidwall/gjson"
)

// Сообщения страница → сервер. Узлы адресуются путями dom.Path ("0/1/3").
const (
	MsgHello     = "hello"     // Снимок HTML страницы, создаёт зеркало документа
	MsgOver      = "over"      // pointerover
	MsgOut       = "out"       // pointerout; пустой to — курсор ушёл за пределы окна
	MsgSelection = "selection" // mouseup с непустым выделением
	MsgKeyDown   = "keydown"
	MsgRemoved   = "removed"  // Узел удалён со страницы
	MsgInserted  = "inserted" // В узел path вставлен фрагмент html, первым узлом на позицию index
	MsgText      = "text"     // Страница изменила текст узла path
)

// Сообщения сервер → страница.
const (
	MsgReady    = "ready"
	MsgMutation = "mutation"
	MsgNotify   = "notify"
	MsgKeyAck   = "key"
	MsgError    = "error"
)

type helloMsg struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

type pointerMsg struct {
	Path string `json:"path"`
	To   string `json:"to"`
}

type selectionMsg struct {
	Anchor string `json:"anchor"`
	Focus  string `json:"focus"`
	Text   string `json:"text"`
}

type keyMsg struct {
	ID    int64  `json:"id"`
	Key   string `json:"key"`
	Alt   bool   `json:"alt"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
}

func (k keyMsg) event() lens.KeyEvent {
	return lens.KeyEvent{Key: k.Key, Alt: k.Alt, Ctrl: k.Ctrl, Meta: k.Meta, Shift: k.Shift}
}

type removedMsg struct {
	Path string `json:"path"`
}

type insertedMsg struct {
	Path  string `json:"path"`
	Index int    `json:"index"`
	HTML  string `json:"html"`
}

type textMsg struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// ReadyMsg подтверждает hello. Подавление стандартной обработки хоткеев страница
// выполняет сама по биндингам из этого сообщения: KeyDown в браузере не может ждать ответа.
type ReadyMsg struct {
	Type            string `json:"type"`
	Session         string `json:"session"`
	Enabled         bool   `json:"enabled"`
	Language        string `json:"language"`
	Modifier        string `json:"modifier"`
	TranslateKey    string `json:"translateKey"`
	UndoKey         string `json:"undoKey"`
	TranslateHotkey string `json:"translateHotkey"`
	UndoHotkey      string `json:"undoHotkey"`
}

// MutationMsg — текст элемента по пути Path заменён на Text.
type MutationMsg struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
	Path string `json:"path"`
	Text string `json:"text"`
}

type NotifyMsg struct {
	Type       string `json:"type"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

func newNotifyMsg(n notify.Notification) NotifyMsg {
	return NotifyMsg{
		Type:       MsgNotify,
		Kind:       string(n.Kind),
		Title:      n.Title,
		Message:    n.Message,
		DurationMs: n.Duration.Milliseconds(),
	}
}

// KeyAckMsg — фактическое решение ядра по нажатию с идентификатором ID.
type KeyAckMsg struct {
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	Suppress bool   `json:"suppress"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// inbound — разобранное входящее сообщение.
type inbound struct {
	typ  string
	body any
}

// decode определяет тип сообщения по полю type и разбирает тело в нужную структуру.
func decode(data []byte) (inbound, error) {
	if !gjson.ValidBytes(data) {
		return inbound{}, errors.New("bridge: invalid json")
	}
	typ := gjson.GetBytes(data, "type").String()
	var body any
	switch typ {
	case MsgHello:
		body = &helloMsg{}
	case MsgOver, MsgOut:
		body = &pointerMsg{}
	case MsgSelection:
		body = &selectionMsg{}
	case MsgKeyDown:
		body = &keyMsg{}
	case MsgRemoved:
		body = &removedMsg{}
	case MsgInserted:
		body = &insertedMsg{}
	case MsgText:
		body = &textMsg{}
	default:
		return inbound{}, fmt.Errorf("bridge: unknown message type %q", typ)
	}
	if err := json.Unmarshal(data, body); err != nil {
		return inbound{}, fmt.Errorf("bridge: decode %s: %w", typ, err)
	}
	return inbound{typ: typ, body: body}, nil
}
