package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/transport/rest"
)

const (
	sessionCookieName = "user_session"
	sessionCookieTTL  = 24 * time.Hour

	readLimit    = 4096
	writeTimeout = 5 * time.Second
)

type gameUseCase interface {
	GetGame(ctx context.Context, key string) (*entity.Game, error)
	NewGame(ctx context.Context, key string, mode entity.Mode) (*entity.Game, error)
	MakeTurn(ctx context.Context, key string, pos entity.Position) (*entity.Game, error)
	EndGame(ctx context.Context, key string) error
}

type handlerFunc func(ctx context.Context, session string, msg *Message) Response

// Server plays games over websocket connections, one session per cookie.
type Server struct {
	logger *slog.Logger
	games  gameUseCase

	handlers map[string]handlerFunc

	srv        *http.Server
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func New(logger *slog.Logger, games gameUseCase, port string) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())

	server := &Server{
		logger:     logger.With("component", "websocket"),
		games:      games,
		handlers:   make(map[string]handlerFunc),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	server.handlers[ActionConnect] = server.handleConnect
	server.handlers[ActionGameNew] = server.handleNewGame
	server.handlers[ActionGameTurn] = server.handleGameTurn
	server.handlers[ActionGameLeave] = server.handleGameLeave

	server.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", that.serveWebSocket)
	mux.HandleFunc("GET /ping", rest.Ping)

	return mux
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (that *Server) Start() error {
	that.logger.Info("websocket server started", "addr", that.srv.Addr)

	if err := that.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and closes the open ones.
func (that *Server) Shutdown(ctx context.Context) error {
	that.cancelBase()

	if err := that.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func (that *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	session := that.sessionKey(w, r)
	log := that.logger.With("method", "serveWebSocket", "session", session)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn("failed to accept websocket", "error", err)
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(readLimit)

	log.Info("websocket connection established")

	err = that.handleMessages(r.Context(), conn, session)

	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		log.Info("websocket connection closed")
	case errors.Is(err, context.Canceled):
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		log.Warn("websocket connection lost", "error", err)
	}
}

func (that *Server) handleMessages(ctx context.Context, conn *websocket.Conn, session string) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		response := that.dispatch(ctx, session, data)

		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = wsjson.Write(writeCtx, conn, response)
		cancel()
		if err != nil {
			return err
		}
	}
}

func (that *Server) dispatch(ctx context.Context, session string, data []byte) Response {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Response{SessionKey: session, Error: ErrCodeBadRequest}
	}

	handler, ok := that.handlers[msg.Action]
	if !ok {
		return Response{Action: msg.Action, SessionKey: session, Error: ErrCodeUnknownAction}
	}

	response := handler(ctx, session, &msg)
	response.Action = msg.Action
	response.SessionKey = session

	return response
}

// sessionKey reads the session cookie or issues a new one.
func (that *Server) sessionKey(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    uuid.NewString(),
		Expires:  time.Now().Add(sessionCookieTTL),
		Path:     "/ws",
		HttpOnly: true,
	}
	http.SetCookie(w, cookie)

	that.logger.Info("session cookie not found, new one created", "session", cookie.Value)

	return cookie.Value
}
