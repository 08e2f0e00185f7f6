package notify

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// SoundNotifier проигрывает короткий звук на успешные и ошибочные уведомления.
// Информационные уведомления беззвучны.
type SoundNotifier struct {
	logger      *zap.SugaredLogger
	pathSuccess string
	pathError   string
	ply         Player
	playing     atomic.Bool
}

// NewSoundNotifier создаёт нотификатор. Пустые пути заменяются дефолтами
// sound/success.mp3 и sound/error.mp3 (сначала ищем рядом с бинарём).
func NewSoundNotifier(logger *zap.SugaredLogger, ply Player, pathSuccess, pathError string) *SoundNotifier {
	resolve := func(def string) string {
		// Путь по умолчанию: рядом с бинарём
		if exe, err := os.Executable(); err == nil {
			cand := filepath.Join(filepath.Dir(exe), def)
			if _, statErr := os.Stat(cand); statErr == nil {
				return cand
			}
		}
		// fallback: от текущей рабочей директории
		return filepath.FromSlash(def)
	}

	if strings.TrimSpace(pathSuccess) == "" {
		pathSuccess = resolve(filepath.Join("sound", "success.mp3"))
	}
	if strings.TrimSpace(pathError) == "" {
		pathError = resolve(filepath.Join("sound", "error.mp3"))
	}
	if ply == nil {
		ply = NewPlayer(0)
	}
	return &SoundNotifier{logger: logger, pathSuccess: pathSuccess, pathError: pathError, ply: ply}
}

// Notify не блокирует: звук играет в отдельной горутине, наложения пропускаются.
func (n *SoundNotifier) Notify(note Notification) {
	var path string
	switch note.Kind {
	case KindSuccess:
		path = n.pathSuccess
	case KindError:
		path = n.pathError
	default:
		return
	}
	if !n.playing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer n.playing.Store(false)
		_ = n.play(path)
	}()
}

func (n *SoundNotifier) play(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if n.logger != nil {
			n.logger.Warnw("Не удалось открыть звуковой файл уведомления", "path", path, "error", err)
		}
		return err
	}
	defer f.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		ext = "mp3" // по умолчанию
	}
	if err := n.ply.Play(ext, f); err != nil {
		if n.logger != nil {
			n.logger.Warnw("Не удалось воспроизвести звуковое уведомление", "path", path, "error", err)
		}
		return err
	}
	return nil
}
