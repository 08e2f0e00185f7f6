package notify

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player воспроизводит аудио потоком в зависимости от формата.
type Player interface {
	Play(format string, r io.ReadCloser) error
}

// BeepPlayer реализует Player и поддерживает mp3 и wav.
type BeepPlayer struct{ volumeDB float64 }

// NewPlayer создаёт плеер с громкостью в dB (отрицательные — тише, 0 — без изменений).
func NewPlayer(volumeDB float64) *BeepPlayer { return &BeepPlayer{volumeDB: volumeDB} }

func (p *BeepPlayer) Play(format string, r io.ReadCloser) error {
	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
		err      error
	)
	switch strings.ToLower(format) {
	case "wav":
		streamer, f, err = wav.Decode(r)
	case "mp3":
		streamer, f, err = mp3.Decode(r)
	default:
		return errors.New("unsupported format for direct playback; use mp3 or wav")
	}
	if err != nil {
		return err
	}
	defer streamer.Close()

	if err := speaker.Init(f.SampleRate, f.SampleRate.N(time.Second/10)); err != nil {
		return err
	}
	vol := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   p.volumeDB,
		Silent:   false,
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))
	<-done
	return nil
}
