package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
	"github.com/taskmill/taskmill-go/pkg/jsonrpc"
	"github.com/taskmill/taskmill-go/pkg/service/sse"
	"github.com/taskmill/taskmill-go/pkg/skills"
	"github.com/taskmill/taskmill-go/pkg/tasks"
	"github.com/taskmill/taskmill-go/pkg/telemetry"
)

/*
Server exposes the task manager over HTTP: JSON-RPC on /rpc (with
tasks/sendSubscribe upgrading the response to an SSE event stream), the
agent card on /.well-known/agent.json, and prometheus metrics on /metrics.
Safe for concurrent use; the dispatcher and store serialize their own state.
*/
type Server struct {
	app        *fiber.App
	card       a2a.AgentCard
	manager    *tasks.Manager
	dispatcher *jsonrpc.Dispatcher
	metrics    *telemetry.Metrics
}

func NewServer(card a2a.AgentCard, manager *tasks.Manager) *Server {
	metrics := telemetry.New()

	srv := &Server{
		app: fiber.New(fiber.Config{
			AppName:           card.Name,
			ServerHeader:      "Taskmill-Server",
			StreamRequestBody: true,
		}),
		card:       card,
		manager:    manager,
		dispatcher: jsonrpc.NewDispatcher(jsonrpc.WithMetrics(metrics)),
		metrics:    metrics,
	}

	manager.Store().SetObserver(func(from, to a2a.TaskState) {
		metrics.RecordTransition(string(from), string(to))
	})

	srv.registerRPCHandlers()
	srv.registerRoutes()

	return srv
}

// NewServerWithDefaults returns a working server with the demo skills
// registered.  Great for smoke tests.
func NewServerWithDefaults(url string) *Server {
	registry := skills.NewRegistry()
	RegisterDemoSkills(registry)

	return NewServer(
		registry.Card("Taskmill Agent", url, "0.1.0"),
		tasks.NewManager(nil, registry),
	)
}

// Dispatcher exposes the method table, mainly so embedders can register
// additional methods before Start.
func (srv *Server) Dispatcher() *jsonrpc.Dispatcher {
	return srv.dispatcher
}

func (srv *Server) registerRPCHandlers() {
	srv.dispatcher.Register("tasks/send", func(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
		return tasks.Send(ctx, raw, srv.manager)
	})

	srv.dispatcher.Register("tasks/get", func(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
		return tasks.Get(ctx, raw, srv.manager)
	})

	srv.dispatcher.Register("tasks/cancel", func(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
		return tasks.Cancel(ctx, raw, srv.manager)
	})

	srv.dispatcher.RegisterStream("tasks/sendSubscribe", func(ctx context.Context, raw json.RawMessage, sink a2a.EventSink) {
		tasks.SendSubscribe(ctx, raw, srv.manager, sink)
	})
}

func (srv *Server) registerRoutes() {
	srv.app.Use(logger.New(logger.Config{
		// Skip logging for the metrics endpoint to reduce noise
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/metrics"
		},
	}), healthcheck.NewHealthChecker())

	srv.app.Get("/", srv.handleRoot)
	srv.app.Get("/.well-known/agent.json", srv.handleAgentCard)
	srv.app.Get("/metrics", fiberadaptor.HTTPHandler(srv.metrics.Handler()))
	srv.app.Post("/rpc", srv.handleRPC)
}

// App exposes the underlying fiber app, mainly for tests.
func (srv *Server) App() *fiber.App {
	return srv.app
}

func (srv *Server) Start(addr string) error {
	log.Info("starting server", "addr", addr, "agent", srv.card.Name)

	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (srv *Server) handleRoot(ctx fiber.Ctx) error {
	return ctx.SendString("OK")
}

func (srv *Server) handleAgentCard(ctx fiber.Ctx) error {
	return ctx.JSON(srv.card)
}

/*
handleRPC is the central routing for all RPC methods.  Batches dispatch
concurrently with responses in input order; a single streaming request
switches the response over to SSE.
*/
func (srv *Server) handleRPC(ctx fiber.Ctx) error {
	reqs, batch, rpcErr := jsonrpc.Parse(ctx.Body())

	if rpcErr != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(nil, rpcErr))
	}

	if batch {
		return ctx.JSON(srv.dispatcher.DispatchBatch(ctx.Context(), reqs))
	}

	req := reqs[0]

	if name, nameErr := req.MethodName(); nameErr == nil && srv.dispatcher.IsStream(name) {
		return srv.handleStream(ctx, req)
	}

	ctx.Set("Content-Type", "application/json")

	return ctx.JSON(srv.dispatcher.Dispatch(ctx.Context(), req))
}

// handleStream serves one streaming exchange over SSE, bridging fiber onto
// the net/http flusher interface the sink needs.
func (srv *Server) handleStream(ctx fiber.Ctx, req jsonrpc.Request) error {
	handler := func(w http.ResponseWriter, r *http.Request) {
		sink, err := sse.NewSink(w, r, req.NormalizedID())

		if err != nil {
			http.Error(w, fmt.Sprintf("streaming unsupported: %v", err), http.StatusInternalServerError)
			return
		}

		srv.dispatcher.DispatchStream(r.Context(), req, sink)
	}

	return fiberadaptor.HTTPHandler(http.HandlerFunc(handler))(ctx)
}
