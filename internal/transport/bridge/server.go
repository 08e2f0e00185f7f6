package bridge

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"LinguaLens/internal/ai"
	"LinguaLens/internal/config"
	"LinguaLens/internal/service/notify"
	"LinguaLens/internal/settings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// HTTP-пути моста помимо websocket.
const (
	SettingsPath  = "/settings"
	LanguagesPath = "/languages"
	ScriptPath    = "/lens.js"
)

// pageScript — скрипт страницы: зеркалирует DOM в мост и применяет мутации.
//
//go:embed static/lens.js
var pageScript []byte

const maxSettingsBody = 64 << 10

// Listener описывает сетевой сервис с явным жизненным циклом.
type Listener interface {
	// Start запускает сервер в отдельной горутине и немедленно возвращается.
	// Должен реагировать на отмену контекста и завершать работу.
	Start(ctx context.Context) error

	// Stop инициирует graceful shutdown с использованием контекста.
	Stop(ctx context.Context) error

	// Addr возвращает адрес, на котором слушает сервер.
	Addr() string
}

// Ensure interface compliance
var _ Listener = (*Server)(nil)

// Options — зависимости, общие для всех сессий моста.
type Options struct {
	Store      settings.Store
	Translator ai.Translator
	Notifier   notify.Notifier // Общий приёмник (лог, звук); у каждой сессии добавляется свой

	HoverDelay    time.Duration
	MinTextLength int
	MaxTextLength int
}

// Server — websocket-мост между страницей браузера и ядром переводчика.
type Server struct {
	cfg      config.BridgeConfig
	opts     Options
	store    settings.Store
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	srv      *http.Server
	running  atomic.Bool

	mu       sync.Mutex
	addr     string
	sessions map[uuid.UUID]*session
}

func NewServer(cfg config.BridgeConfig, opts Options, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:3000"
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Store == nil {
		opts.Store = settings.NewFileStore("settings.json", logger)
	}
	s := &Server{
		cfg:      cfg,
		opts:     opts,
		store:    opts.Store,
		logger:   logger,
		addr:     cfg.BindAddr,
		sessions: make(map[uuid.UUID]*session),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler возвращает маршруты моста: websocket и форму настроек.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.requireToken)

	r.Get(s.cfg.Path, s.handleWS)
	r.Get(ScriptPath, s.getScript)
	r.Group(func(r chi.Router) {
		// Форма настроек открывается со страниц расширения/сайта: нужен CORS
		r.Use(cors.Handler(corsOptions(s.cfg.AllowedOrigins)))
		r.Get(LanguagesPath, s.getLanguages)
		r.Get(SettingsPath, s.getSettings)
		r.Put(SettingsPath, s.putSettings)
		r.Options(SettingsPath, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})
	return r
}

func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}
}

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("bridge: listen %s: %w", s.cfg.BindAddr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		s.logger.Infow("Bridge listening", "addr", ln.Addr().String(), "path", s.cfg.Path)
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Bridge stopped with error", "error", err)
		} else {
			s.logger.Infow("Bridge stopped")
		}
	}()

	// Watch for context cancellation to stop the server
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// Stop останавливает HTTP-сервер и закрывает все websocket-сессии:
// Shutdown не отслеживает перехваченные (hijacked) соединения.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("bridge shutdown timeout"))
	defer cancel()

	s.mu.Lock()
	for _, sess := range s.sessions {
		_ = sess.conn.Close()
	}
	s.mu.Unlock()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Sessions возвращает число открытых сессий.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	s.logger.Warnw("Bridge origin rejected", "origin", origin)
	return false
}

// requireToken пропускает запрос, если токен не настроен или передан в ?token= / Authorization: Bearer.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken == "" || r.Method == http.MethodOptions ||
			r.URL.Query().Get("token") == s.cfg.AuthToken ||
			strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") == s.cfg.AuthToken {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		s.logger.Debugw("Bridge upgrade failed", "error", err)
		return
	}

	sess := newSession(s, conn)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
	}()

	sess.run(r.Context())
}

func (s *Server) getScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(pageScript)
}

// getLanguages отдаёт список языков для выбора языка перевода в форме настроек.
func (s *Server) getLanguages(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ai.SupportedLanguages); err != nil {
		s.logger.Warnw("Languages write failed", "error", err)
	}
}

// getSettings отдаёт текущие настройки. Битые или нечитаемые настройки
// отдаются значениями по умолчанию.
func (s *Server) getSettings(w http.ResponseWriter, _ *http.Request) {
	st, err := s.store.Load()
	if err != nil {
		s.logger.Warnw("Settings load failed, serving defaults", "error", err)
	}
	s.writeSettings(w, http.StatusOK, st)
}

// putSettings валидирует и сохраняет настройки. Применяются при следующем hello страницы.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		http.Error(w, "settings must be a JSON object", http.StatusBadRequest)
		return
	}
	st := settings.Decode(body)
	if err := s.store.Save(st); err != nil {
		if errors.Is(err, settings.ErrInvalid) || errors.Is(err, settings.ErrAmbiguousBindings) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.Errorw("Settings save failed", "error", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(notify.Notification{
			Kind:    notify.KindSuccess,
			Title:   "Settings Saved",
			Message: "Reload the page to apply the new settings.",
		})
	}
	s.writeSettings(w, http.StatusOK, st)
}

func (s *Server) writeSettings(w http.ResponseWriter, status int, st settings.Settings) {
	doc, err := settings.Encode("{}", st)
	if err != nil {
		http.Error(w, "failed to encode settings", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, doc)
}
