package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Message — входящее сообщение сервера моста.
type Message struct {
	Type string
	Raw  gjson.Result
	At   time.Time
}

// Client — Go-клиент моста: играет роль скрипта страницы (тесты, сценарии, отладка).
type Client struct {
	url     string
	token   string
	conn    *websocket.Conn
	mu      sync.Mutex
	started bool

	// Канал входящих сообщений (закрывается при остановке клиента).
	messages chan Message
	done     chan struct{}
	once     sync.Once
}

// NewClient создаёт клиент без установления соединения. url — ws://host:port/path.
func NewClient(url, token string) *Client {
	return &Client{url: url, token: token, messages: make(chan Message, 64), done: make(chan struct{})}
}

// Start открывает WebSocket и запускает горутину приёма сообщений.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("bridge client: уже запущено")
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 15 * time.Second,
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("bridge client: не удалось подключиться к %s: %s (HTTP %d): %w", c.url, http.StatusText(resp.StatusCode), resp.StatusCode, err)
		}
		return fmt.Errorf("bridge client: не удалось подключиться к %s: %w", c.url, err)
	}
	c.conn = conn

	go c.readLoop()

	c.started = true
	return nil
}

// readLoop читает сообщения сервера и публикует их в канал messages.
func (c *Client) readLoop() {
	defer close(c.messages)
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage || !gjson.ValidBytes(data) {
			continue
		}
		res := gjson.ParseBytes(data)
		select {
		case c.messages <- Message{Type: res.Get("type").String(), Raw: res, At: time.Now()}:
		case <-c.done:
			return
		}
	}
}

// Send отправляет сообщение страницы текстовым JSON-фреймом.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.conn == nil {
		return errors.New("bridge client: соединение не установлено (Start не вызывался)")
	}
	return c.conn.WriteJSON(v)
}

// Hello отправляет снимок страницы.
func (c *Client) Hello(html, url string) error {
	return c.Send(map[string]any{"type": MsgHello, "html": html, "url": url})
}

// Messages возвращает канал с сообщениями сервера.
func (c *Client) Messages() <-chan Message { return c.messages }

// Await ждёт сообщение типа typ, пропуская остальные.
func (c *Client) Await(ctx context.Context, typ string) (Message, error) {
	for {
		select {
		case <-ctx.Done():
			return Message{}, context.Cause(ctx)
		case m, ok := <-c.messages:
			if !ok {
				return Message{}, errors.New("bridge client: соединение закрыто")
			}
			if m.Type == typ {
				return m, nil
			}
		}
	}
}

// Close корректно завершает соединение.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.once.Do(func() { close(c.done) })
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = c.conn.Close()
	}
	c.started = false
	return nil
}
