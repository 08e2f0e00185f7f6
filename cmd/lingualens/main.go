package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"LinguaLens/internal/ai"
	"LinguaLens/internal/config"
	"LinguaLens/internal/service/notify"
	"LinguaLens/internal/settings"
	"LinguaLens/internal/transport/bridge"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём регистратор zap: подробный в режиме дебага
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	sugar.Infow(
		"Starting app",
		"DebugMode", cfg.DebugMode,
		"SettingsPath", cfg.SettingsPath,
		"Model", cfg.OpenAIModel,
		"Stub", cfg.UseStub,
	)

	store := settings.NewFileStore(cfg.SettingsPath, sugar)
	if st, err := store.Load(); err != nil {
		// Битые настройки удалены, работаем на значениях по умолчанию
		sugar.Warnw("Settings reset to defaults", "error", err)
	} else {
		sugar.Infow("Settings loaded",
			"language", st.TargetLanguage,
			"translate", st.HotkeyLabel(st.TranslateKey),
			"undo", st.HotkeyLabel(st.UndoKey),
			"enabled", st.Enabled,
		)
	}

	var translator ai.Translator
	if cfg.UseStub || os.Getenv("OPENAI_API_KEY") == "" {
		sugar.Warnw("OPENAI_API_KEY не задан или включена заглушка: переводы будут фиктивными")
		translator = ai.NewStubClient()
	} else {
		// создаём реального клиента OpenAI (использует переменные окружения, напр. OPENAI_API_KEY)
		oClient := openai.NewClient()
		translator = ai.NewTextClient(&oClient, cfg.OpenAIModel, sugar)
	}
	translator = ai.WithTimeout(translator, cfg.RequestTimeout)

	notifiers := notify.Multi{notify.NewLogNotifier(sugar)}
	if cfg.Sound.Enabled {
		notifiers = append(notifiers, notify.NewSoundNotifier(sugar, notify.NewPlayer(cfg.Sound.VolumeDB), cfg.Sound.SuccessPath, cfg.Sound.ErrorPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv bridge.Listener = bridge.NewServer(cfg.Bridge, bridge.Options{
		Store:         store,
		Translator:    translator,
		Notifier:      notifiers,
		HoverDelay:    cfg.HoverDelay,
		MinTextLength: cfg.MinTextLength,
		MaxTextLength: cfg.MaxTextLength,
	}, sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Errorw("Bridge failed to start", "error", err)
		return
	}

	<-ctx.Done()
	sugar.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeoutCause(context.Background(), 5*time.Second, errors.New("shutdown timeout"))
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		sugar.Warnw("graceful shutdown error", "error", err)
	}
}
