// Package pipeline chains the external speech and translation
// capabilities behind one asynchronous contract: speech in, text
// across languages, optional speech back out.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/holysmokas/translation-server/internal/domain"
)

var (
	ErrNoSpeech = errors.New("no speech detected")
	ErrBadAudio = errors.New("audio payload is not valid base64")
)

// defaultCallTimeout bounds each external call when the config does
// not say otherwise.
const defaultCallTimeout = 10 * time.Second

// Transcriber converts audio to text in the speaker's language.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, lang domain.Language) (string, error)
}

// Translator converts text between two languages.
type Translator interface {
	Translate(ctx context.Context, text string, source, target domain.Language) (string, error)
}

// Synthesizer renders text as speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang domain.Language) ([]byte, error)
}

// Result is one completed translation job.
type Result struct {
	OriginalText    string
	TranslatedText  string
	TranslatedAudio string // base64, empty when synthesis was skipped or failed
	Source          domain.Language
	Target          domain.Language
}

// Pipeline wires the three capabilities with a shared per-call
// timeout. Each call is individually fallible; the failure policy is:
// empty transcription fails the job, translation failure falls back
// to the original text, synthesis failure degrades to text-only.
type Pipeline struct {
	stt     Transcriber
	mt      Translator
	tts     Synthesizer
	timeout time.Duration
}

func New(stt Transcriber, mt Translator, tts Synthesizer, timeout time.Duration) *Pipeline {
	return &Pipeline{stt: stt, mt: mt, tts: tts, timeout: timeout}
}

// ProcessText translates text and synthesizes speech for the target
// language. The translator is skipped for same-language pairs.
func (p *Pipeline) ProcessText(ctx context.Context, text string, source, target domain.Language) (Result, error) {
	translated := p.translate(ctx, text, source, target)
	return Result{
		OriginalText:    text,
		TranslatedText:  translated,
		TranslatedAudio: p.synthesize(ctx, translated, target),
		Source:          source,
		Target:          target,
	}, nil
}

// ProcessAudio runs the full chain: transcription, translation,
// synthesis. Transcription failure or silence fails the job before
// anything else runs.
func (p *Pipeline) ProcessAudio(ctx context.Context, audioB64 string, source, target domain.Language) (Result, error) {
	audio, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return Result{}, ErrBadAudio
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	text, err := p.stt.Transcribe(callCtx, audio, source)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("transcription: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrNoSpeech
	}

	translated := p.translate(ctx, text, source, target)
	return Result{
		OriginalText:    text,
		TranslatedText:  translated,
		TranslatedAudio: p.synthesize(ctx, translated, target),
		Source:          source,
		Target:          target,
	}, nil
}

// translate returns the text converted to target, or the original
// text when the pair is a no-op or the backend fails. A failed
// translation is never a dropped delivery.
func (p *Pipeline) translate(ctx context.Context, text string, source, target domain.Language) string {
	if source == target {
		return text
	}
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	translated, err := p.mt.Translate(callCtx, text, source, target)
	if err != nil {
		log.Warn().Err(err).Str("module", "pipeline").Str("source", string(source)).Str("target", string(target)).Msg("translation failed, falling back to original text")
		return text
	}
	return translated
}

// synthesize returns base64 speech for text, or empty audio when the
// synthesizer is absent or fails.
func (p *Pipeline) synthesize(ctx context.Context, text string, lang domain.Language) string {
	if p.tts == nil {
		return ""
	}
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	audio, err := p.tts.Synthesize(callCtx, text, lang)
	if err != nil {
		log.Warn().Err(err).Str("module", "pipeline").Str("lang", string(lang)).Msg("speech synthesis failed, delivering text only")
		return ""
	}
	return base64.StdEncoding.EncodeToString(audio)
}
