package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/obgate-labs/obgate/internal/action"
	"github.com/obgate-labs/obgate/internal/app"
	"github.com/obgate-labs/obgate/internal/backlink"
	"github.com/obgate-labs/obgate/internal/cliconfig"
	"github.com/obgate-labs/obgate/internal/confwatch"
	"github.com/obgate-labs/obgate/internal/detect"
	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/egress"
	"github.com/obgate-labs/obgate/internal/handlers"
	"github.com/obgate-labs/obgate/internal/ingress"
	"github.com/obgate-labs/obgate/internal/mgmt"
	"github.com/obgate-labs/obgate/internal/ports"
	"github.com/obgate-labs/obgate/internal/response"
)

// mgmtStopTimeout bounds the management endpoint shutdown during Stop.
const mgmtStopTimeout = 5 * time.Second

// Bridge is an embeddable protocol bridge instance.
// Use New() to create one, then Start() to begin serving.
type Bridge struct {
	config Config
	opts   options

	lifecycle  *app.Lifecycle
	state      *app.DrainState
	drainer    *app.DrainController
	pool       *response.Pool
	dispatcher *app.Dispatcher
	registry   *ingress.Registry
	supervisor *ingress.Supervisor
	actions    *action.Client
	link       *backlink.Link
	detector   ports.Detector
	groups     *cliconfig.GroupList
	mgmt       *mgmt.Server
	watcher    *confwatch.Watcher
	logger     ports.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a bridge with the given configuration.
// The instance is created in StateStopped; call Start() to begin serving.
// Returns an error if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	var emitter eventEmitterWrapper
	if o.eventHandler != nil {
		emitter = eventEmitterWrapper{handler: o.eventHandler}
	}

	b := &Bridge{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, &emitter),
		state:     app.NewDrainState(),
		logger:    logger,
	}
	b.drainer = app.NewDrainController(b.state, logger)

	// Ingress pipeline: listener -> router -> queue / correlation pool.
	b.pool = response.NewPool(cfg.ResponseTimeout, logger)
	b.dispatcher = app.NewDispatcher(b.state, logger)
	b.registry = ingress.NewRegistry()
	router := ingress.NewRouter(b.pool, b.dispatcher, logger)

	initial := domain.ConfigSnapshot{
		Version: 1,
		Ingress: domain.IngressConfig{Host: cfg.Host, Port: cfg.Port, Token: cfg.Token},
	}
	b.supervisor = ingress.NewSupervisor(initial, b.registry, router, b.state, logger)

	// Outbound side: action requests back to the front, payloads to the
	// core behind the detection gate.
	b.actions = action.NewClient(b.registry, b.pool, logger)

	coreURL := "ws://" + cfg.CoreHost + ":" + strconv.Itoa(cfg.CorePort) + "/ws"
	b.link = backlink.NewLink(coreURL, b.handleCoreFrame, logger)

	b.detector = o.detector
	var reporter *detect.Reporter
	if cfg.Detection.Enabled {
		if b.detector == nil {
			b.detector = detect.NewHTTPDetector(detect.Config{
				APIURL: cfg.Detection.APIURL,
				APIKey: cfg.Detection.APIKey,
				Model:  cfg.Detection.Model,
			}, logger)
		}
		reporter = detect.NewReporter(b.actions, cfg.Detection.ReportGroups, "", logger)
	}
	sender := egress.NewSender(b.link, b.detector, reporter, logger)

	b.groups = cliconfig.NewGroupList(cliconfig.ListMode(cfg.GroupListType), cfg.GroupList)

	b.dispatcher.Register(domain.CategoryMessage,
		handlers.NewMessageHandler(sender, b.groups, cfg.Platform, logger))
	b.dispatcher.Register(domain.CategoryNotice,
		handlers.NewNoticeHandler(sender, b.groups, cfg.Platform, logger))
	b.dispatcher.Register(domain.CategoryMetaEvent,
		handlers.NewMetaEventHandler(logger))

	if cfg.Management.Enabled {
		addr := cfg.Management.Host + ":" + strconv.Itoa(cfg.Management.Port)
		b.mgmt = mgmt.NewServer(addr, b.groups, logger)
	}

	if cfg.ConfigPath != "" {
		b.watcher = confwatch.NewWatcher(cfg.ConfigPath, initial, logger)
		b.watcher.OnChange(confwatch.SectionIngress,
			func(_, snap domain.ConfigSnapshot) {
				b.supervisor.Apply(snap)
			})
	}

	return b, nil
}

// Start binds the front listener and launches the background workers.
// Returns immediately after startup; a bind failure on the configured
// front address is returned synchronously.
// Returns ErrAlreadyRunning if the bridge is not stopped.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.ctx = runCtx
	b.cancel = cancel
	b.lifecycle.SetCancel(cancel)

	if err := b.supervisor.Start(runCtx); err != nil {
		cancel()
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "front listener bind failed")
		return err
	}

	if b.mgmt != nil {
		if err := b.mgmt.Start(); err != nil {
			b.supervisor.Stop()
			cancel()
			_ = b.lifecycle.TransitionTo(app.StateCrashed, "management endpoint bind failed")
			return err
		}
	}

	b.runWorker("ingress-supervisor", b.supervisor.Run)
	b.runWorker("dispatcher", b.dispatcher.Run)
	b.runWorker("response-sweeper", b.pool.RunSweeper)
	b.runWorker("core-link", b.link.Run)
	if b.watcher != nil {
		b.runWorker("config-watcher", b.watcher.Run)
	}

	if err := b.lifecycle.TransitionTo(app.StateRunning, "all workers started"); err != nil {
		return err
	}
	return nil
}

// runWorker launches one background loop tracked by the lifecycle. A loop
// that exits with an unexpected error crashes the bridge.
func (b *Bridge) runWorker(name string, fn func(context.Context) error) {
	ctx := b.ctx
	b.lifecycle.AddWorker()
	go func() {
		defer b.lifecycle.WorkerDone()
		err := fn(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("worker exited",
				ports.String("worker", name),
				ports.Err(err))
			_ = b.lifecycle.TransitionTo(app.StateCrashed, name+" failed")
		}
	}()
}

// Stop drains the bridge and tears its components down in order: intake
// stops first, queued and in-flight work finishes within the bounded
// window, then the listener, the core link, and the background workers
// are shut down. Every teardown step runs even when an earlier one fails.
// Returns nil on graceful shutdown, ErrShutdownTimeout if the drain or
// the worker wait had to be forced.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.lifecycle.CanStop() {
		b.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateDraining, "Stop() called"); err != nil {
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	drainErr := b.drainer.Drain(context.Background())

	if b.detector != nil {
		if err := b.detector.Close(); err != nil {
			b.logger.Warn("detector close failed", ports.Err(err))
		}
	}
	if b.mgmt != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), mgmtStopTimeout)
		if err := b.mgmt.Stop(stopCtx); err != nil {
			b.logger.Warn("management endpoint stop failed", ports.Err(err))
		}
		stopCancel()
	}
	b.supervisor.Stop()
	if err := b.link.Close(); err != nil {
		b.logger.Warn("core link close failed", ports.Err(err))
	}

	b.lifecycle.Cancel()
	waitErr := b.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	err := drainErr
	if err == nil {
		err = waitErr
	}
	if err != nil {
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "forced shutdown")
	} else {
		_ = b.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (b *Bridge) Status() State {
	return convertState(b.lifecycle.State())
}

// Addr returns the bound front-listener address, or nil before Start.
func (b *Bridge) Addr() net.Addr {
	return b.supervisor.Addr()
}

// ManagementAddr returns the bound management address, or nil when the
// management endpoint is disabled or not started.
func (b *Bridge) ManagementAddr() net.Addr {
	if b.mgmt == nil {
		return nil
	}
	return b.mgmt.Addr()
}

// coreCommand is the wire form of a command pushed down the core link:
// an action to execute against the front protocol.
type coreCommand struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// handleCoreFrame executes one command from the core as a correlated
// action request. Failures are diagnostics; the link keeps reading.
func (b *Bridge) handleCoreFrame(ctx context.Context, payload []byte) {
	var cmd coreCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("dropping malformed core command", ports.Err(err))
		return
	}
	if cmd.Action == "" {
		b.logger.Warn("dropping core command without action")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, b.config.ResponseTimeout)
	defer cancel()

	resp, err := b.actions.Call(callCtx, cmd.Action, cmd.Params)
	if err != nil {
		b.logger.Warn("core command failed",
			ports.String("action", cmd.Action),
			ports.Err(err))
		return
	}
	b.logger.Debug("core command completed",
		ports.String("action", cmd.Action),
		ports.Int("response_bytes", len(resp)))
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateDraining:
		return StateDraining
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
