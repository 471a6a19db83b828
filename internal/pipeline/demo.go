package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/holysmokas/translation-server/internal/domain"
)

// DemoBackend is a deterministic stand-in for the external
// capabilities, used when no provider credentials are configured.
// It tags text with the target language instead of translating.
type DemoBackend struct{}

func (DemoBackend) Transcribe(_ context.Context, audio []byte, _ domain.Language) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	return fmt.Sprintf("(demo transcript, %d bytes)", len(audio)), nil
}

func (DemoBackend) Translate(_ context.Context, text string, _, target domain.Language) (string, error) {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(target)), text), nil
}

// NewDemoPipeline returns a pipeline with no synthesizer: demo mode
// delivers text only.
func NewDemoPipeline() *Pipeline {
	b := DemoBackend{}
	return New(b, b, nil, defaultCallTimeout)
}
