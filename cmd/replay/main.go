package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"LinguaLens/internal/ai"
	"LinguaLens/internal/app/replay"
	"LinguaLens/internal/dom"
	"LinguaLens/internal/service/lens"
	"LinguaLens/internal/service/notify"
	"LinguaLens/internal/settings"
	"LinguaLens/internal/transport/bridge"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// replay проигрывает сценарий событий над HTML-файлом и печатает итоговый HTML.
func main() {
	pagePath := flag.String("page", "", "путь к HTML-файлу страницы")
	scriptPath := flag.String("script", "", "путь к сценарию событий (JSON lines); пусто — stdin")
	settingsPath := flag.String("settings", "", "файл настроек; пусто — значения по умолчанию")
	useOpenAI := flag.Bool("openai", false, "переводить через OpenAI (нужен OPENAI_API_KEY), иначе заглушка")
	model := flag.String("model", "gpt-4o-mini", "модель OpenAI")
	debug := flag.Bool("debug", false, "подробный лог")
	bridgeURL := flag.String("bridge", "", "ws://host:port/ws работающего моста; сценарий уйдёт туда вместо локального ядра")
	token := flag.String("token", "", "токен моста")
	quiet := flag.Duration("settle", 500*time.Millisecond, "тишина от моста, после которой settle завершается")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	if !*debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	if *pagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -page page.html [-script events.jsonl]")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*pagePath)
	if err != nil {
		sugar.Fatalw("Failed to open page", "path", *pagePath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	script := os.Stdin
	if *scriptPath != "" {
		if script, err = os.Open(*scriptPath); err != nil {
			sugar.Fatalw("Failed to open script", "path", *scriptPath, "error", err)
		}
		defer script.Close()
	}

	if *bridgeURL != "" {
		runRemote(ctx, sugar, *bridgeURL, *token, *quiet, string(raw), *pagePath, script)
		return
	}

	doc, err := dom.ParseString(string(raw))
	if err != nil {
		sugar.Fatalw("Failed to parse page", "error", err)
	}

	st := settings.Defaults()
	if *settingsPath != "" {
		if st, err = settings.NewFileStore(*settingsPath, sugar).Load(); err != nil {
			sugar.Warnw("Settings reset to defaults", "error", err)
		}
	}

	var translator ai.Translator = ai.NewStubClient()
	if *useOpenAI {
		oClient := openai.NewClient()
		translator = ai.NewTextClient(&oClient, *model, sugar)
	}

	ctrl := lens.New(doc, lens.Options{
		Settings:   st,
		Translator: translator,
		Notifier:   notify.NewLogNotifier(sugar),
		Logger:     sugar,
		OnMutation: func(m lens.Mutation) {
			sugar.Infow("Mutation", "kind", m.Kind, "text", m.Text)
		},
	})
	if !ctrl.Mount(ctx) {
		sugar.Warnw("Translator disabled in settings, page left unchanged")
	}
	defer ctrl.Unmount()

	if ctrl.Mounted() {
		if err := replay.New(ctrl, sugar).Run(ctx, script); err != nil {
			sugar.Errorw("Replay failed", "error", err)
		}
	}

	// Рендерим внутри цикла ядра, пока он жив
	if !ctrl.Do(func(d *dom.Document) { _ = d.Render(os.Stdout) }) {
		_ = doc.Render(os.Stdout)
	}
	fmt.Println()
}

// runRemote проигрывает сценарий через работающий мост и печатает полученные мутации.
func runRemote(ctx context.Context, sugar *zap.SugaredLogger, url, token string, quiet time.Duration, page, pagePath string, script *os.File) {
	cl := bridge.NewClient(url, token)
	if err := cl.Start(ctx); err != nil {
		sugar.Fatalw("Bridge unavailable", "url", url, "error", err)
	}
	defer cl.Close()

	r := replay.NewRemote(cl, sugar)
	r.Quiet = quiet
	enabled, err := r.Attach(ctx, page, "file://"+pagePath)
	if err != nil {
		sugar.Errorw("Bridge hello failed", "error", err)
		return
	}
	if !enabled {
		sugar.Warnw("Translator disabled in bridge settings")
		return
	}
	if err := r.Run(ctx, script); err != nil {
		sugar.Errorw("Replay failed", "error", err)
	}
	for _, m := range r.Mutations() {
		fmt.Printf("%s\t%s\t%s\n", m.Raw.Get("kind").String(), m.Raw.Get("path").String(), m.Raw.Get("text").String())
	}
}
