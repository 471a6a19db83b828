package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/holysmokas/translation-server/internal/domain"
)

const (
	googleTranslateURL = "https://translation.googleapis.com/language/translate/v2"
	googleTTSURL       = "https://translate.google.com/translate_tts"
)

// GoogleTranslator implements pipeline.Translator over the Google
// Translate v2 REST API.
type GoogleTranslator struct {
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	url     string
}

func NewGoogleTranslator(apiKey string, client *http.Client) *GoogleTranslator {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleTranslator{
		apiKey:  apiKey,
		client:  client,
		breaker: newBreaker("google-translate"),
		url:     googleTranslateURL,
	}
}

func (g *GoogleTranslator) Translate(ctx context.Context, text string, source, target domain.Language) (string, error) {
	form := url.Values{
		"q":      {text},
		"source": {string(source)},
		"target": {string(target)},
		"format": {"text"},
		"key":    {g.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	out, err := g.breaker.Execute(func() (any, error) {
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		defer resp.Body.Close()
		if err := checkStatus(resp); err != nil {
			return nil, err
		}
		var payload struct {
			Data struct {
				Translations []struct {
					TranslatedText string `json:"translatedText"`
				} `json:"translations"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, err
		}
		if len(payload.Data.Translations) == 0 {
			return nil, fmt.Errorf("%w: empty translation response", ErrProviderUnavailable)
		}
		return payload.Data.Translations[0].TranslatedText, nil
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// GoogleSynthesizer implements pipeline.Synthesizer over the public
// translate_tts endpoint, which returns mp3 bytes.
type GoogleSynthesizer struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	url     string
}

func NewGoogleSynthesizer(client *http.Client) *GoogleSynthesizer {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleSynthesizer{
		client:  client,
		breaker: newBreaker("google-tts"),
		url:     googleTTSURL,
	}
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, lang domain.Language) ([]byte, error) {
	q := url.Values{
		"ie":     {"UTF-8"},
		"client": {"tw-ob"},
		"tl":     {lang.TTSCode()},
		"q":      {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	out, err := g.breaker.Execute(func() (any, error) {
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		defer resp.Body.Close()
		if err := checkStatus(resp); err != nil {
			return nil, err
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}
