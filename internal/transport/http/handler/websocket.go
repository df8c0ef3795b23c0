package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatplatform/internal/app"
	"chatplatform/internal/model"
	"chatplatform/internal/platform/rabbitmq"
	"chatplatform/internal/ws"
)

// Application close codes used by the chat gateway. 4000-range codes are
// reserved for application use by RFC 6455.
const (
	CloseSetupMalformed = 4000
	CloseUnauthorized   = 4001
)

// WebSocketHandler is the chat gateway: it authenticates widget tokens,
// binds the connection to its course channel and relays user turns through
// the channel and the model.
type WebSocketHandler struct {
	authService    *app.AuthService
	externalUsers  *app.ExternalUserService
	courseService  *app.CourseService
	sessionService *app.SessionService
	manager        *ws.Manager
	transcripts    *rabbitmq.TranscriptPublisher
	upgrader       websocket.Upgrader
}

// setupFrame is the first frame every widget connection must send.
type setupFrame struct {
	Username string `json:"username"`
	CourseID uint   `json:"course_id"`
}

// inboundFrame is any subsequent frame. CourseID is optional; when present
// it must match the course the connection subscribed to.
type inboundFrame struct {
	Message  string `json:"message"`
	CourseID uint   `json:"course_id"`
}

func NewWebSocketHandler(
	authService *app.AuthService,
	externalUsers *app.ExternalUserService,
	courseService *app.CourseService,
	sessionService *app.SessionService,
	manager *ws.Manager,
	transcripts *rabbitmq.TranscriptPublisher,
) *WebSocketHandler {
	return &WebSocketHandler{
		authService:    authService,
		externalUsers:  externalUsers,
		courseService:  courseService,
		sessionService: sessionService,
		manager:        manager,
		transcripts:    transcripts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The widget is embedded on arbitrary customer pages.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and runs the connection until the client
// disconnects or a fatal fault closes it. Authentication and setup failures
// are reported through close codes because the protocol has no HTTP error
// surface after the upgrade.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	conn := ws.NewGorillaConn(socket)

	adminID, _, err := h.authService.VerifyExternalToken(c.Param("token"))
	if err != nil {
		h.closeWith(conn, CloseUnauthorized, "invalid chat token")
		return
	}

	setup, ok := h.readSetup(socket, conn)
	if !ok {
		return
	}

	course, err := h.courseService.GetForAdmin(setup.CourseID, adminID)
	if err != nil {
		if errors.Is(err, app.ErrCourseNotFound) || errors.Is(err, app.ErrInvalidInput) {
			h.closeWith(conn, CloseUnauthorized, "course not available")
		} else {
			h.closeWith(conn, websocket.CloseInternalServerErr, "course lookup failed")
		}
		return
	}

	extUser, err := h.externalUsers.GetOrCreate(setup.Username, adminID)
	if err != nil {
		h.closeWith(conn, websocket.CloseInternalServerErr, "user resolution failed")
		return
	}
	if err := h.courseService.Join(course.ID, extUser.ID); err != nil {
		h.closeWith(conn, websocket.CloseInternalServerErr, "course join failed")
		return
	}

	channelID := strconv.FormatUint(uint64(course.ID), 10)
	if err := h.manager.Subscribe(channelID, conn); err != nil {
		h.closeWith(conn, websocket.CloseInternalServerErr, "channel bind failed")
		return
	}
	defer func() {
		h.manager.Unsubscribe(channelID, conn)
		_ = conn.Close()
	}()

	h.readLoop(c.Request.Context(), socket, conn, channelID, course.ID, extUser, setup.Username)
}

// readSetup consumes and validates the mandatory first frame. On failure it
// closes the connection with 4000 and returns ok=false.
func (h *WebSocketHandler) readSetup(socket *websocket.Conn, conn *ws.GorillaConn) (setupFrame, bool) {
	var setup setupFrame
	_, raw, err := socket.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return setup, false
	}
	if err := json.Unmarshal(raw, &setup); err != nil || setup.Username == "" || setup.CourseID == 0 {
		h.closeWith(conn, CloseSetupMalformed, "malformed setup frame")
		return setup, false
	}
	return setup, true
}

func (h *WebSocketHandler) readLoop(
	ctx context.Context,
	socket *websocket.Conn,
	conn *ws.GorillaConn,
	channelID string,
	courseID uint,
	extUser *model.ExternalUser,
	username string,
) {
	for {
		_, raw, err := socket.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Message == "" {
			h.writeError(conn, "malformed message")
			continue
		}
		if frame.CourseID != 0 && frame.CourseID != courseID {
			h.writeError(conn, "message course does not match subscription")
			continue
		}

		// Fan the user's message out to every channel peer first, then
		// archive it. Archive failures never interrupt the conversation.
		if err := h.manager.Publish(ctx, channelID, frame.Message, username); err != nil {
			if errors.Is(err, rabbitmq.ErrBrokerUnavailable) {
				h.closeWith(conn, websocket.CloseInternalServerErr, "channel unavailable")
				return
			}
			h.writeError(conn, "message delivery failed")
			continue
		}
		if err := h.transcripts.Publish(ctx, model.ChannelMessage{
			Channel: h.manager.QueueName(channelID),
			Sender:  username,
			Message: frame.Message,
		}); err != nil {
			log.Printf("archive channel %s message failed: %v", channelID, err)
		}

		err = h.sessionService.Chat(ctx, extUser.ID, courseID, frame.Message, func(chunk string) error {
			return h.writeMessage(conn, chunk)
		})
		if err != nil {
			h.writeChatError(conn, err)
		}
	}
}

// writeChatError maps a turn failure onto a single error frame. The
// connection stays open; only this turn is lost.
func (h *WebSocketHandler) writeChatError(conn *ws.GorillaConn, err error) {
	switch {
	case errors.Is(err, app.ErrPresetNotFound):
		h.writeError(conn, "no preset configured for this course")
	case errors.Is(err, app.ErrUnsupportedModel):
		h.writeError(conn, "configured model is not supported")
	case errors.Is(err, app.ErrModelNoContent):
		h.writeError(conn, "model returned no content")
	default:
		log.Printf("chat turn failed: %v", err)
		h.writeError(conn, "chat turn failed")
	}
}

func (h *WebSocketHandler) writeMessage(conn *ws.GorillaConn, text string) error {
	payload, err := json.Marshal(gin.H{"message": text})
	if err != nil {
		return err
	}
	return conn.WriteText(payload)
}

func (h *WebSocketHandler) writeError(conn *ws.GorillaConn, text string) {
	payload, err := json.Marshal(gin.H{"error": text})
	if err != nil {
		return
	}
	if err := conn.WriteText(payload); err != nil {
		log.Printf("write error frame failed: %v", err)
	}
}

func (h *WebSocketHandler) closeWith(conn *ws.GorillaConn, code int, reason string) {
	if err := conn.WriteClose(code, reason); err != nil {
		log.Printf("write close frame failed: %v", err)
	}
	_ = conn.Close()
}
