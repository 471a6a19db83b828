// Package ws is the connection-protocol adapter: it upgrades HTTP to
// websocket, runs the join handshake, and feeds each connection's
// inbound stream through the fan-out router sequentially, which is
// what keeps a sender's messages ordered per recipient.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/holysmokas/translation-server/internal/app"
	"github.com/holysmokas/translation-server/internal/auth"
	"github.com/holysmokas/translation-server/internal/core"
	"github.com/holysmokas/translation-server/internal/domain"
)

// Abnormal close codes on the connection protocol.
const (
	CloseRoomNotFound      = 4004
	CloseProtocolViolation = 4001
	CloseJoinFailed        = 4002
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Directory *app.Directory
	Router    *app.Router
	Tokens    *auth.TokenManager
	ReadLimit int64
}

func NewController(dir *app.Directory, router *app.Router, tokens *auth.TokenManager, readLimit int64) *Controller {
	return &Controller{Directory: dir, Router: router, Tokens: tokens, ReadLimit: readLimit}
}

// identity resolves who quota checks are charged to: a verified
// bearer token's user and tier, else the guest session token.
func (ctl *Controller) identity(c *gin.Context, fallback domain.UserID) app.Identity {
	token := c.Query("token")
	if token == "" {
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token != "" && ctl.Tokens != nil {
		if claims, err := ctl.Tokens.Verify(token); err == nil {
			return app.Identity{ID: claims.UserID, Tier: claims.Tier}
		}
		log.Debug().Str("module", "ws").Msg("bearer token rejected, treating connection as guest")
	}
	sid := c.GetString("client_token")
	if sid == "" {
		sid = string(fallback)
	}
	return app.Identity{ID: sid, Tier: domain.TierGuest}
}

// Handle upgrades the request and runs one connection's lifecycle to
// completion.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	uid := domain.UserID(c.Param("user_id"))

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}
	if ctl.ReadLimit > 0 {
		socket.SetReadLimit(ctl.ReadLimit)
	}
	conn := newConn(socket)

	room, ok := ctl.Directory.GetRoom(code)
	if !ok {
		conn.closeWithCode(CloseRoomNotFound, "Room not found")
		return
	}

	ident := ctl.identity(c, uid)

	// The handshake writes synchronously; the pump takes over once
	// the participant is registered.
	meta, sess, joinErr := ctl.handshake(room, uid, ident, conn)
	if joinErr != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go conn.writePump(ctx)

	ctl.broadcastSystem(room, uid, fmt.Sprintf("%s (%s) joined the conversation", meta.Name, meta.Language))
	log.Info().Str("module", "ws").Str("room", code).Str("user", string(uid)).Str("lang", string(meta.Language)).Str("tier", string(ident.Tier)).Msg("participant joined")

	ctl.readLoop(ctx, room, meta, ident, conn)

	// Disconnect: remove this handler's own session and notify the
	// survivors. Removal is session-conditional, so unwinding after a
	// reconnect replaced us leaves the fresh registration alone.
	removed, _ := ctl.Directory.RemoveParticipant(room.Room().Code, uid, sess)
	if removed {
		if survived, still := ctl.Directory.GetRoom(code); still {
			ctl.broadcastSystem(survived, "", fmt.Sprintf("%s left the conversation", meta.Name))
		}
	}
	conn.Close()
	log.Info().Str("module", "ws").Str("room", code).Str("user", string(uid)).Msg("connection closed")
}

// handshake enforces the join-first protocol and registers the
// participant. Any failure closes the connection with a
// distinguishing code.
func (ctl *Controller) handshake(room core.RoomService, uid domain.UserID, ident app.Identity, conn *Conn) (*domain.Participant, core.ParticipantSession, error) {
	_, data, err := conn.conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	var join struct {
		Type     string `json:"type"`
		UserName string `json:"user_name"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(data, &join); err != nil || join.Type != core.EnvelopeJoin {
		conn.closeWithCode(CloseProtocolViolation, "First message must be 'join' type")
		return nil, nil, errors.New("protocol violation")
	}
	if join.UserName == "" {
		join.UserName = "Guest"
	}

	meta, err := domain.NewParticipant(uid, join.UserName, domain.Language(join.Language))
	if err != nil {
		if frame, mErr := core.MarshalFrame(core.ErrorEnvelope{Type: core.EnvelopeError, Message: err.Error()}); mErr == nil {
			_ = conn.writeDirect(frame)
		}
		conn.closeWithCode(CloseJoinFailed, "Join failed")
		return nil, nil, err
	}

	// The room size cap follows the joiner's tier. A reconnecting
	// participant is already counted and passes through.
	limit := ident.Tier.Limits().MaxParticipants
	if _, already := room.Participant(uid); !already && room.Count() >= limit {
		msg := fmt.Sprintf("Room is full (%d participants max on the %s plan)", limit, ident.Tier)
		if frame, mErr := core.MarshalFrame(core.ErrorEnvelope{Type: core.EnvelopeError, Message: msg}); mErr == nil {
			_ = conn.writeDirect(frame)
		}
		conn.closeWithCode(CloseJoinFailed, "Room full")
		return nil, nil, errors.New("room full")
	}

	// A duplicate user id is a reconnect: the stale session's
	// connection is replaced atomically and closed here.
	sess := core.NewParticipantSession(meta, conn)
	if prev := room.AddParticipant(sess); prev != nil {
		prev.Signal().Close()
	}

	// The directory may have dropped the room between the lookup and
	// the registration; re-validate so a swept room cannot hold a
	// welcomed participant.
	if got, ok := ctl.Directory.GetRoom(string(room.Room().Code)); !ok || got != room {
		conn.closeWithCode(CloseJoinFailed, "Room closed")
		return nil, nil, errors.New("room closed during join")
	}

	welcome, err := core.MarshalFrame(struct {
		Type         string          `json:"type"`
		Message      string          `json:"message"`
		UserID       domain.UserID   `json:"user_id"`
		YourLanguage domain.Language `json:"your_language"`
		Participants int             `json:"participants"`
	}{
		Type:         core.EnvelopeSystem,
		Message:      fmt.Sprintf("Connected to room %s as %s", room.Room().Code, meta.Name),
		UserID:       meta.UserID,
		YourLanguage: meta.Language,
		Participants: room.Count(),
	})
	if err == nil {
		err = conn.writeDirect(welcome)
	}
	if err != nil {
		ctl.Directory.RemoveParticipant(room.Room().Code, meta.UserID, sess)
		conn.closeWithCode(CloseJoinFailed, "Join failed")
		return nil, nil, err
	}
	return meta, sess, nil
}

func (ctl *Controller) readLoop(ctx context.Context, room core.RoomService, meta *domain.Participant, ident app.Identity, conn *Conn) {
	uid := meta.UserID
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("module", "ws").Str("user", string(uid)).Msg("read error")
			}
			return
		}

		var env struct {
			Type      string `json:"type"`
			Text      string `json:"text"`
			Audio     string `json:"audio"`
			AudioData string `json:"audio_data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			ctl.sendJSON(conn, core.ErrorEnvelope{Type: core.EnvelopeError, Message: "bad payload"})
			continue
		}

		switch env.Type {
		case core.EnvelopeText:
			if strings.TrimSpace(env.Text) == "" {
				continue
			}
			receipt, err := ctl.Router.RouteText(ctx, room, uid, ident, env.Text)
			if ctl.reportQuota(conn, err) {
				continue
			}
			ctl.sendJSON(conn, struct {
				Type         string `json:"type"`
				OriginalText string `json:"original_text"`
				Recipients   int    `json:"recipients"`
			}{core.EnvelopeSent, env.Text, receipt.Recipients})

		case core.EnvelopeAudio, core.EnvelopeAudioChunk:
			payload := env.AudioData
			if payload == "" {
				payload = env.Audio
			}
			if payload == "" {
				continue
			}
			receipt, err := ctl.Router.RouteAudio(ctx, room, uid, ident, payload)
			if ctl.reportQuota(conn, err) {
				continue
			}
			ctl.sendJSON(conn, struct {
				Type       string `json:"type"`
				Status     string `json:"status"`
				Recipients int    `json:"recipients"`
			}{core.EnvelopeProcessed, "sent", receipt.Recipients})

		case core.EnvelopePing:
			ctl.sendJSON(conn, struct {
				Type string `json:"type"`
			}{core.EnvelopePong})

		default:
			log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown envelope")
		}
	}
}

// reportQuota surfaces a guard denial as an error envelope. Denials
// never terminate the connection.
func (ctl *Controller) reportQuota(conn *Conn, err error) bool {
	if err == nil {
		return false
	}
	var quota *app.QuotaError
	if errors.As(err, &quota) {
		ctl.sendJSON(conn, core.ErrorEnvelope{Type: core.EnvelopeError, Message: quota.Verdict.Message})
		return true
	}
	ctl.sendJSON(conn, core.ErrorEnvelope{Type: core.EnvelopeError, Message: err.Error()})
	return true
}

func (ctl *Controller) broadcastSystem(room core.RoomService, exclude domain.UserID, msg string) {
	frame, err := core.MarshalFrame(core.SystemEnvelope{
		Type:         core.EnvelopeSystem,
		Message:      msg,
		Participants: room.Count(),
	})
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("marshal system envelope")
		return
	}
	room.Broadcast(exclude, frame)
}

func (ctl *Controller) sendJSON(conn *Conn, v any) {
	frame, err := core.MarshalFrame(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "ws").Msg("sendJSON dropped")
	}
}
