package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/plotconfig/internal/catalog"
	"github.com/matthewbaird/plotconfig/internal/normalizer"
	"github.com/matthewbaird/plotconfig/internal/predicate"
	"github.com/matthewbaird/plotconfig/internal/session"
	"github.com/matthewbaird/plotconfig/internal/types"
)

// Handler manages WebSocket connections for the editor.
type Handler struct {
	sessions *session.Manager
	catalog  catalog.Client
	logger   *slog.Logger
}

// NewHandler creates a WebSocket handler backed by sessions. The catalog
// supplies identifier values for expression completion.
func NewHandler(sessions *session.Manager, c catalog.Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, catalog: c, logger: logger}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. The session
// query parameter attaches to an existing session; otherwise a new session
// with an empty configuration is created.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	sess, resumed := h.attach(ctx, r.URL.Query().Get("session"))
	h.send(ctx, conn, ServerMessage{
		Type: TypeSession,
		Data: SessionData{SessionID: sess.ID, Resumed: resumed},
	})
	h.send(ctx, conn, ServerMessage{Type: TypeState, Data: sess.View()})

	// Message loop
	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("connection closed",
					slog.String("session_id", sess.ID),
					slog.Int("status", int(websocket.CloseStatus(err))))
			}
			return
		}

		switch msg.Type {
		case TypeDispatch:
			h.handleDispatch(ctx, conn, sess, msg)
		case TypeChange:
			h.handleChange(ctx, conn, sess, msg)
		case TypeUndo:
			v, _ := sess.Undo(ctx)
			h.sendState(ctx, conn, msg.ID, v)
		case TypeRedo:
			v, _ := sess.Redo(ctx)
			h.sendState(ctx, conn, msg.ID, v)
		case TypeState:
			sess.Touch()
			h.sendState(ctx, conn, msg.ID, sess.View())
		case TypeComplete:
			h.handleComplete(ctx, conn, sess, msg)
		case TypePing:
			sess.Touch()
			h.send(ctx, conn, ServerMessage{Type: TypePong, RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) attach(ctx context.Context, id string) (*session.Session, bool) {
	if id != "" {
		if s := h.sessions.Get(ctx, id); s != nil {
			return s, true
		}
		h.logger.Debug("session not found; creating a new one", slog.String("session_id", id))
	}
	return h.sessions.Create(ctx, types.PlotConfig{}), false
}

func (h *Handler) handleDispatch(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var data DispatchData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid dispatch data")
		return
	}
	in, err := normalizer.DecodeIntent(data.Kind, data.Intent)
	if err != nil {
		code := "invalid_intent"
		if errors.Is(err, normalizer.ErrUnknownIntent) {
			code = "unknown_intent"
		}
		h.sendError(ctx, conn, msg.ID, code, err.Error())
		return
	}
	h.sendState(ctx, conn, msg.ID, sess.Dispatch(ctx, in))
}

func (h *Handler) handleChange(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var data ChangeData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid change data")
		return
	}
	v, err := sess.Change(ctx, data.Axis, data.Change())
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "unknown_axis", err.Error())
		return
	}
	h.sendState(ctx, conn, msg.ID, v)
}

func (h *Handler) handleComplete(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var data CompleteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid complete data")
		return
	}
	sess.Touch()

	entityType := data.ContextType
	if entityType == "" {
		entityType = sess.Config().Dimensions[data.Axis].EntityType
	}
	items := predicate.Complete(data.Expr, data.Cursor, h.identifierValues(ctx, entityType))
	if items == nil {
		items = []predicate.CompletionItem{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      TypeCompletions,
		RequestID: msg.ID,
		Data:      CompletionsData{Items: items},
	})
}

// identifierValues loads the identifiers of entityType at most once per
// completion request.
func (h *Handler) identifierValues(ctx context.Context, entityType string) predicate.ValueSource {
	if h.catalog == nil || entityType == "" || entityType == types.EntityTypeCustom {
		return nil
	}
	var (
		ids    []catalog.Identifier
		loaded bool
	)
	return func(property string) []string {
		if !loaded {
			loaded = true
			var err error
			ids, err = h.catalog.ListIdentifiers(ctx, entityType, "")
			if err != nil {
				h.logger.Warn("completion identifiers",
					slog.String("entity_type", entityType),
					slog.String("error", err.Error()))
			}
		}
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			switch property {
			case predicate.PropLabel:
				out = append(out, id.Label)
			case predicate.PropGivenID:
				out = append(out, id.ID)
			}
		}
		return out
	}
}

func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn, requestID string, v session.View) {
	h.send(ctx, conn, ServerMessage{Type: TypeState, RequestID: requestID, Data: v})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug("websocket write", slog.String("error", err.Error()))
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
