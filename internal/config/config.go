package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode    bool   `env:"DEBUG_MODE"`    //Режим дебага
	SettingsPath string `env:"SETTINGS_PATH"` // Файл пользовательских настроек (язык, хоткеи, промпт)

	// Перевод
	OpenAIModel    string        `env:"OPENAI_MODEL"`    // Модель OpenAI для перевода
	UseStub        bool          `env:"USE_STUB"`        // Переводить заглушкой без обращения к OpenAI
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"` // Таймаут одного запроса перевода, 0 — без таймаута

	// Поведение наведения
	HoverDelay    time.Duration `env:"HOVER_DELAY"`     // Задержка debounce наведения
	MinTextLength int           `env:"MIN_TEXT_LENGTH"` // Минимальная длина текста цели, в символах
	MaxTextLength int           `env:"MAX_TEXT_LENGTH"` // Максимальная длина текста цели, в символах

	// Bridge — websocket-мост к странице браузера
	Bridge BridgeConfig

	// Звуковые уведомления
	Sound SoundConfig
}

// BridgeConfig конфигурация websocket-моста.
type BridgeConfig struct {
	BindAddr       string        `env:"BRIDGE_BIND_ADDR"`                        // Адрес слушателя, напр. 127.0.0.1:3000
	Path           string        `env:"BRIDGE_PATH"`                             // Путь websocket, напр. /ws
	AllowedOrigins []string      `env:"BRIDGE_ALLOWED_ORIGINS" envSeparator:";"` // Разрешённые Origin; пусто — любой
	AuthToken      string        `env:"BRIDGE_AUTH_TOKEN"`                       // Токен авторизации (опционально)
	WriteTimeout   time.Duration `env:"BRIDGE_WRITE_TIMEOUT"`                    // Таймаут записи одного сообщения
}

// SoundConfig конфигурация звуковых уведомлений.
type SoundConfig struct {
	Enabled     bool    `env:"SOUND_ENABLED"`      // Проигрывать звук на успех/ошибку
	SuccessPath string  `env:"SOUND_SUCCESS_PATH"` // mp3|wav
	ErrorPath   string  `env:"SOUND_ERROR_PATH"`   // mp3|wav
	VolumeDB    float64 `env:"SOUND_VOLUME_DB"`    // Усиление громкости в дБ, 0 — без изменений
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:      false,
		SettingsPath:   "settings.json",
		OpenAIModel:    "gpt-4o-mini",
		RequestTimeout: 30 * time.Second,
		HoverDelay:     250 * time.Millisecond,
		MinTextLength:  2,
		MaxTextLength:  500,
		Bridge: BridgeConfig{
			BindAddr:     "127.0.0.1:3000",
			Path:         "/ws",
			WriteTimeout: 5 * time.Second,
		},
		Sound: SoundConfig{
			Enabled:     false,
			SuccessPath: "sound/success.mp3",
			ErrorPath:   "sound/error.mp3",
		},
	}
}

// NewConfig загружает конфигурацию приложения из .env, окружения и флагов командной строки.
func NewConfig() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

// Parse собирает конфигурацию: дефолты, затем .env/окружение, затем флаги из args.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага для отображения доп. инфы")
	fs.StringVar(&cfg.SettingsPath, "settings-path", cfg.SettingsPath, "путь к файлу пользовательских настроек")
	// Перевод
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "модель OpenAI для перевода")
	fs.BoolVar(&cfg.UseStub, "use-stub", cfg.UseStub, "переводить заглушкой, без запросов к OpenAI")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "таймаут запроса перевода, напр. 30s; 0 — без таймаута")
	// Наведение
	fs.DurationVar(&cfg.HoverDelay, "hover-delay", cfg.HoverDelay, "задержка debounce наведения, напр. 250ms")
	fs.IntVar(&cfg.MinTextLength, "min-text-length", cfg.MinTextLength, "минимальная длина текста цели в символах")
	fs.IntVar(&cfg.MaxTextLength, "max-text-length", cfg.MaxTextLength, "максимальная длина текста цели в символах")
	// Bridge
	fs.StringVar(&cfg.Bridge.BindAddr, "bridge-bind-addr", cfg.Bridge.BindAddr, "адрес для прослушивания моста (напр. 127.0.0.1:3000)")
	fs.StringVar(&cfg.Bridge.Path, "bridge-path", cfg.Bridge.Path, "путь websocket моста (напр. /ws)")
	// Принимаем список Origin одной строкой, разделённой ';'
	originsFlag := strings.Join(cfg.Bridge.AllowedOrigins, ";")
	fs.StringVar(&originsFlag, "bridge-allowed-origins", originsFlag, "разрешённые Origin, разделённые ';' (пусто — любой)")
	fs.StringVar(&cfg.Bridge.AuthToken, "bridge-auth-token", cfg.Bridge.AuthToken, "токен авторизации моста (опционально)")
	fs.DurationVar(&cfg.Bridge.WriteTimeout, "bridge-write-timeout", cfg.Bridge.WriteTimeout, "таймаут записи сообщения в websocket")
	// Звук
	fs.BoolVar(&cfg.Sound.Enabled, "sound-enabled", cfg.Sound.Enabled, "проигрывать звук на успех/ошибку")
	fs.StringVar(&cfg.Sound.SuccessPath, "sound-success-path", cfg.Sound.SuccessPath, "путь к звуку успеха (mp3 или wav)")
	fs.StringVar(&cfg.Sound.ErrorPath, "sound-error-path", cfg.Sound.ErrorPath, "путь к звуку ошибки (mp3 или wav)")
	fs.Float64Var(&cfg.Sound.VolumeDB, "sound-volume-db", cfg.Sound.VolumeDB, "усиление громкости звука в дБ")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: flags: %w", err)
	}

	cfg.Bridge.AllowedOrigins = parseListFlag(originsFlag, nil)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность числовых параметров.
func (c *Config) Validate() error {
	if c.MinTextLength < 1 {
		return fmt.Errorf("config: min-text-length должен быть >= 1, получено %d", c.MinTextLength)
	}
	if c.MaxTextLength < c.MinTextLength {
		return fmt.Errorf("config: max-text-length (%d) меньше min-text-length (%d)", c.MaxTextLength, c.MinTextLength)
	}
	if c.HoverDelay < 0 || c.RequestTimeout < 0 {
		return errors.New("config: отрицательная длительность")
	}
	if !strings.HasPrefix(c.Bridge.Path, "/") {
		return fmt.Errorf("config: bridge-path должен начинаться с '/': %q", c.Bridge.Path)
	}
	return nil
}

// parseListFlag разбирает значение флага со списком, разделённым ';'
func parseListFlag(v string, def []string) []string {
	// Пустая строка → дефолт
	if v == "" {
		return def
	}
	parts := strings.Split(v, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return def
	}
	return cleaned
}
