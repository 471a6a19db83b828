package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/holysmokas/translation-server/internal/core"
	"github.com/holysmokas/translation-server/internal/domain"
	"github.com/holysmokas/translation-server/internal/pipeline"
)

// Orchestrator is the translation contract the router dispatches jobs
// against. pipeline.Pipeline is the production implementation.
type Orchestrator interface {
	ProcessText(ctx context.Context, text string, source, target domain.Language) (pipeline.Result, error)
	ProcessAudio(ctx context.Context, audioB64 string, source, target domain.Language) (pipeline.Result, error)
}

// Receipt acknowledges one routed message back to its sender.
type Receipt struct {
	Recipients int
}

// QuotaError carries the guard's verdict to the connection layer so
// the denial reaches the sender as a declined-with-reason response.
type QuotaError struct {
	Verdict Verdict
}

func (e *QuotaError) Error() string { return e.Verdict.Message }

// Router turns one inbound message into N independent translated
// deliveries, one per other participant. Jobs for a single message
// run concurrently; per-sender ordering holds because callers process
// each connection's inbound stream sequentially and Route* does not
// return until the whole fan-out settled.
type Router struct {
	pipe  Orchestrator
	guard *Guard
}

func NewRouter(pipe Orchestrator, guard *Guard) *Router {
	return &Router{pipe: pipe, guard: guard}
}

// RouteText fans a text message out to every other participant. An
// absent sender drops the message silently; one recipient's failed
// job or failed send never aborts the siblings.
func (r *Router) RouteText(ctx context.Context, room core.RoomService, sender domain.UserID, id Identity, text string) (Receipt, error) {
	sess, ok := room.Participant(sender)
	if !ok {
		log.Warn().Str("module", "app.router").Str("room", string(room.Room().Code)).Str("sender", string(sender)).Msg("message from unknown sender dropped")
		return Receipt{}, nil
	}
	if verdict := r.guard.CheckAndConsume(id, KindTranslation); !verdict.Allowed {
		return Receipt{}, &QuotaError{Verdict: verdict}
	}

	targets := room.TranslationTargets(sender)
	room.BumpMessages()

	g, jobCtx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			var res pipeline.Result
			if t.Source == t.Dest {
				// Identity passthrough: the backend is never called
				// for a no-op pair.
				res = pipeline.Result{OriginalText: text, TranslatedText: text, Source: t.Source, Target: t.Dest}
			} else {
				var err error
				res, err = r.pipe.ProcessText(jobCtx, text, t.Source, t.Dest)
				if err != nil {
					log.Error().Err(err).Str("module", "app.router").Str("room", string(room.Room().Code)).Str("recipient", string(t.Session.Meta().UserID)).Msg("translation job failed, recipient skipped")
					return nil
				}
			}
			r.deliver(room, sess.Meta(), t, res)
			return nil
		})
	}
	_ = g.Wait()

	return Receipt{Recipients: len(targets)}, nil
}

// RouteAudio fans an audio message out, transcribing once per
// recipient pair. Same-language recipients still need transcription,
// so every target goes through the orchestrator.
func (r *Router) RouteAudio(ctx context.Context, room core.RoomService, sender domain.UserID, id Identity, audioB64 string) (Receipt, error) {
	sess, ok := room.Participant(sender)
	if !ok {
		log.Warn().Str("module", "app.router").Str("room", string(room.Room().Code)).Str("sender", string(sender)).Msg("audio from unknown sender dropped")
		return Receipt{}, nil
	}
	if verdict := r.guard.CheckAndConsume(id, KindTranslation); !verdict.Allowed {
		return Receipt{}, &QuotaError{Verdict: verdict}
	}

	targets := room.TranslationTargets(sender)
	room.BumpMessages()

	g, jobCtx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			res, err := r.pipe.ProcessAudio(jobCtx, audioB64, t.Source, t.Dest)
			if err != nil {
				log.Error().Err(err).Str("module", "app.router").Str("room", string(room.Room().Code)).Str("recipient", string(t.Session.Meta().UserID)).Msg("audio job failed, recipient skipped")
				return nil
			}
			r.deliver(room, sess.Meta(), t, res)
			return nil
		})
	}
	_ = g.Wait()

	return Receipt{Recipients: len(targets)}, nil
}

// deliver pushes one finished job to its recipient. Send failures are
// logged; the recipient's eventual removal is the connection layer's
// job.
func (r *Router) deliver(room core.RoomService, sender *domain.Participant, t core.Target, res pipeline.Result) {
	frame, err := core.MarshalFrame(core.TranslationEnvelope{
		Type:            core.EnvelopeTranslation,
		Sender:          sender.Name,
		SenderLanguage:  res.Source,
		OriginalText:    res.OriginalText,
		TranslatedText:  res.TranslatedText,
		TranslatedAudio: res.TranslatedAudio,
		YourLanguage:    res.Target,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("marshal translation envelope")
		return
	}
	recipient := t.Session.Meta().UserID
	if err := room.SendTo(recipient, frame); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("room", string(room.Room().Code)).Str("recipient", string(recipient)).Msg("delivery failed")
	}
}
