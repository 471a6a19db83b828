package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/holysmokas/translation-server/internal/domain"
)

const (
	groqTranscriptionURL = "https://api.groq.com/openai/v1/audio/transcriptions"
	groqWhisperModel     = "whisper-large-v3"
)

// GroqTranscriber implements pipeline.Transcriber over the Groq
// Whisper endpoint.
type GroqTranscriber struct {
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	url     string
}

func NewGroqTranscriber(apiKey string, client *http.Client) *GroqTranscriber {
	if client == nil {
		client = http.DefaultClient
	}
	return &GroqTranscriber{
		apiKey:  apiKey,
		client:  client,
		breaker: newBreaker("groq-whisper"),
		url:     groqTranscriptionURL,
	}
}

func (g *GroqTranscriber) Transcribe(ctx context.Context, audio []byte, lang domain.Language) (string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	_ = w.WriteField("model", groqWhisperModel)
	_ = w.WriteField("language", lang.SpeechCode())
	_ = w.WriteField("response_format", "text")
	_ = w.WriteField("temperature", "0")
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	out, err := g.breaker.Execute(func() (any, error) {
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		defer resp.Body.Close()
		if err := checkStatus(resp); err != nil {
			return nil, err
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.(string)), nil
}
