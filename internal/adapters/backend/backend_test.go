package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqTranscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, groqWhisperModel, r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		_, _ = w.Write([]byte("hello world\n"))
	}))
	defer srv.Close()

	g := NewGroqTranscriber("test-key", srv.Client())
	g.url = srv.URL

	text, err := g.Transcribe(context.Background(), []byte("audio-bytes"), "en")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestGoogleTranslator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hello", r.FormValue("q"))
		assert.Equal(t, "en", r.FormValue("source"))
		assert.Equal(t, "es", r.FormValue("target"))
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"hola"}]}}`))
	}))
	defer srv.Close()

	g := NewGoogleTranslator("test-key", srv.Client())
	g.url = srv.URL

	out, err := g.Translate(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
}

func TestGoogleTranslatorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	g := NewGoogleTranslator("test-key", srv.Client())
	g.url = srv.URL

	_, err := g.Translate(context.Background(), "hello", "en", "es")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestGoogleSynthesizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "zh-CN", r.URL.Query().Get("tl"))
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	g := NewGoogleSynthesizer(srv.Client())
	g.url = srv.URL

	audio, err := g.Synthesize(context.Background(), "你好", "zh")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGoogleTranslator("test-key", srv.Client())
	g.url = srv.URL

	for i := 0; i < 5; i++ {
		_, err := g.Translate(context.Background(), "hello", "en", "es")
		require.Error(t, err)
	}

	_, err := g.Translate(context.Background(), "hello", "en", "es")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
