package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holysmokas/translation-server/internal/domain"
)

type fakeSTT struct {
	text string
	err  error
}

func (f fakeSTT) Transcribe(context.Context, []byte, domain.Language) (string, error) {
	return f.text, f.err
}

type fakeMT struct {
	out   string
	err   error
	calls int
}

func (f *fakeMT) Translate(_ context.Context, text string, _, _ domain.Language) (string, error) {
	f.calls++
	return f.out, f.err
}

type fakeTTS struct {
	audio []byte
	err   error
}

func (f fakeTTS) Synthesize(context.Context, string, domain.Language) ([]byte, error) {
	return f.audio, f.err
}

const testTimeout = time.Second

func TestProcessTextTranslates(t *testing.T) {
	mt := &fakeMT{out: "hola"}
	p := New(nil, mt, fakeTTS{audio: []byte("mp3")}, testTimeout)

	res, err := p.ProcessText(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.OriginalText)
	assert.Equal(t, "hola", res.TranslatedText)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3")), res.TranslatedAudio)
}

func TestProcessTextSameLanguageSkipsTranslator(t *testing.T) {
	mt := &fakeMT{err: errors.New("must not be called")}
	p := New(nil, mt, nil, testTimeout)

	res, err := p.ProcessText(context.Background(), "hello", "en", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.TranslatedText)
	assert.Equal(t, 0, mt.calls)
}

func TestProcessTextTranslationFailureFallsBackToOriginal(t *testing.T) {
	mt := &fakeMT{err: errors.New("backend timeout")}
	p := New(nil, mt, nil, testTimeout)

	res, err := p.ProcessText(context.Background(), "hello", "en", "es")
	require.NoError(t, err, "fallback must not fail the job")
	assert.Equal(t, "hello", res.TranslatedText)
}

func TestProcessTextSynthesisFailureDeliversTextOnly(t *testing.T) {
	p := New(nil, &fakeMT{out: "hola"}, fakeTTS{err: errors.New("tts down")}, testTimeout)

	res, err := p.ProcessText(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", res.TranslatedText)
	assert.Empty(t, res.TranslatedAudio)
}

func TestProcessAudioFullChain(t *testing.T) {
	p := New(fakeSTT{text: "good morning"}, &fakeMT{out: "buenos días"}, fakeTTS{audio: []byte("mp3")}, testTimeout)

	audio := base64.StdEncoding.EncodeToString([]byte("wav-bytes"))
	res, err := p.ProcessAudio(context.Background(), audio, "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "good morning", res.OriginalText)
	assert.Equal(t, "buenos días", res.TranslatedText)
	assert.NotEmpty(t, res.TranslatedAudio)
}

func TestProcessAudioNoSpeech(t *testing.T) {
	mt := &fakeMT{out: "unused"}
	p := New(fakeSTT{text: "   "}, mt, nil, testTimeout)

	_, err := p.ProcessAudio(context.Background(), base64.StdEncoding.EncodeToString([]byte("x")), "en", "es")
	assert.ErrorIs(t, err, ErrNoSpeech)
	assert.Equal(t, 0, mt.calls, "no translation after silence")
}

func TestProcessAudioTranscriptionFailure(t *testing.T) {
	p := New(fakeSTT{err: errors.New("stt down")}, &fakeMT{}, nil, testTimeout)

	_, err := p.ProcessAudio(context.Background(), base64.StdEncoding.EncodeToString([]byte("x")), "en", "es")
	assert.Error(t, err)
}

func TestProcessAudioRejectsBadBase64(t *testing.T) {
	p := New(fakeSTT{text: "hi"}, &fakeMT{}, nil, testTimeout)

	_, err := p.ProcessAudio(context.Background(), "not-base64!!", "en", "es")
	assert.ErrorIs(t, err, ErrBadAudio)
}

func TestDemoPipeline(t *testing.T) {
	p := NewDemoPipeline()

	res, err := p.ProcessText(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "[ES] hello", res.TranslatedText)
	assert.Empty(t, res.TranslatedAudio)
}
