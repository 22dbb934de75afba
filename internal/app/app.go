// Package app wires configuration, storage, auth and the RPC services into
// the HTTP and gRPC servers and runs them until shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/events"
	"github.com/timgst1/policyd/internal/httpapi"
	"github.com/timgst1/policyd/internal/observability"
	"github.com/timgst1/policyd/internal/rbac"
	"github.com/timgst1/policyd/internal/rpc"
	"github.com/timgst1/policyd/internal/services/attributes"
	"github.com/timgst1/policyd/internal/services/kasregistry"
	"github.com/timgst1/policyd/internal/services/namespaces"
	"github.com/timgst1/policyd/internal/services/subjectmapping"
	wellknownsvc "github.com/timgst1/policyd/internal/services/wellknown"
	"github.com/timgst1/policyd/internal/storage/sqlite"
	"github.com/timgst1/policyd/internal/wellknown"
)

// Version is reported in traces and the well-known configuration.
var Version = "dev"

type App struct {
	cfg Config
	log *slog.Logger

	sqlDB  *sql.DB
	client *db.Client
	rbac   *rbac.Manager
	nats   *events.NATSPublisher
	tracer *observability.TracerProvider

	authenticator authn.Authenticator
	authorizer    authz.Authorizer

	namespaces     *namespaces.Service
	attributes     *attributes.Service
	kas            *kasregistry.Service
	subjectMapping *subjectmapping.Service
	wellKnown      *wellknown.Registry
}

// New opens everything cfg points at. Background watchers stop when ctx is
// done; Close releases the rest.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	var err error

	if a.cfg.TraceStdout {
		if a.tracer, err = observability.NewStdoutTracerProvider("policyd", Version); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	if a.sqlDB, err = sqlite.Open(a.cfg.SQLitePath); err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqlite.Migrate(a.sqlDB); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	a.client = db.New(a.sqlDB, db.WithLogger(a.log))

	a.authenticator = authn.Noop{}
	if a.cfg.TokenFile != "" {
		bearer, err := authn.NewBearerFromFile(a.cfg.TokenFile)
		if err != nil {
			return fmt.Errorf("token file: %w", err)
		}
		a.authenticator = bearer
	} else {
		a.log.Warn("TOKEN_FILE not set; API requests are not authenticated")
	}

	a.authorizer = authz.AllowAll{}
	if a.cfg.RBACPolicyFile != "" {
		a.rbac = rbac.NewManager(a.cfg.RBACPolicyFile, rbac.Options{
			Logger:   a.log,
			OnReload: func(*rbac.Document) { observability.RBACReloads.Inc() },
		})
		if err := a.rbac.Start(ctx); err != nil {
			return fmt.Errorf("rbac policy: %w", err)
		}
		a.authorizer = authz.NewRuntimeAuthorizer(a.rbac)
	}

	var pub events.Publisher
	if a.cfg.NATSURL != "" {
		if a.nats, err = events.NewNATSPublisher(events.NATSConfig{
			URL:           a.cfg.NATSURL,
			SubjectPrefix: a.cfg.NATSSubjectPrefix,
		}); err != nil {
			return err
		}
		pub = a.nats
	} else {
		bus := events.NewBus(a.log)
		bus.Subscribe(func(e events.Event) {
			a.log.Debug("policy event", "type", e.Type, "resource_id", e.ResourceID, "actor", e.Actor)
		})
		pub = bus
	}
	em := events.NewEmitter(pub, a.log)

	a.namespaces = namespaces.NewService(a.client, em, a.log)
	a.attributes = attributes.NewService(a.client, em, a.log)
	a.kas = kasregistry.NewService(a.client, em, a.log)
	a.subjectMapping = subjectmapping.NewService(a.client, em, a.log)

	a.wellKnown = wellknown.NewRegistry()
	return a.registerWellKnown()
}

func (a *App) registerWellKnown() error {
	entries := map[string]any{
		"health": map[string]any{"endpoint": "/healthz", "readiness": "/readyz"},
		"grpc":   map[string]any{"address": a.cfg.GRPCAddr, "codec": rpc.CodecName},
		"policy": map[string]any{"version": Version, "max_fqns_per_request": attributes.MaxFqnsPerRequest},
	}
	if a.cfg.PlatformIssuer != "" {
		entries["platform_issuer"] = a.cfg.PlatformIssuer
	}
	for ns, cfg := range entries {
		if err := a.wellKnown.Register(ns, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) rules() rpc.Rules {
	return rpc.Merge(httpapi.Rules(), wellknownsvc.Rules)
}

// GRPCServer returns a server with every service registered.
func (a *App) GRPCServer() *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(rpc.Interceptors(a.log, a.authenticator, a.authorizer, a.rules())...),
	)
	namespaces.RegisterNamespaceServiceServer(s, a.namespaces)
	attributes.RegisterAttributesServiceServer(s, a.attributes)
	kasregistry.RegisterKeyAccessServerRegistryServiceServer(s, a.kas)
	subjectmapping.RegisterSubjectMappingServiceServer(s, a.subjectMapping)
	wellknownsvc.RegisterWellKnownServiceServer(s, wellknownsvc.NewService(a.wellKnown))
	return s
}

func (a *App) HTTPHandler() http.Handler {
	return httpapi.NewRouter(httpapi.Deps{
		Logger:           a.log,
		Authenticator:    a.authenticator,
		Authorizer:       a.authorizer,
		Namespaces:       a.namespaces,
		Attributes:       a.attributes,
		KeyAccessServers: a.kas,
		SubjectMappings:  a.subjectMapping,
		WellKnown:        a.wellKnown,
		Ready:            a.Ready,
	})
}

// Ready checks the database, and with ReadinessStrict the event broker and
// RBAC policy too.
func (a *App) Ready(ctx context.Context) error {
	if err := sqlite.Ping(ctx, a.sqlDB); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if !a.cfg.ReadinessStrict {
		return nil
	}
	if a.nats != nil && !a.nats.Connected() {
		return errors.New("nats: not connected")
	}
	if a.rbac != nil {
		if _, ok := a.rbac.Current(); !ok {
			return errors.New("rbac: no policy loaded")
		}
	}
	return nil
}

func BuildServer(cfg Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Run serves HTTP and gRPC until ctx is done or either server fails, then
// shuts both down within ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	httpSrv := BuildServer(a.cfg, a.HTTPHandler())
	grpcSrv := a.GRPCServer()

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http listening", "addr", a.cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.log.Info("grpc listening", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down", "timeout", a.cfg.ShutdownTimeout)

		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		err := httpSrv.Shutdown(sctx)
		select {
		case <-stopped:
		case <-sctx.Done():
			grpcSrv.Stop()
		}
		return err
	})
	return g.Wait()
}

func (a *App) Close() error {
	var errs []error
	if a.nats != nil {
		errs = append(errs, a.nats.Close())
	}
	if a.sqlDB != nil {
		errs = append(errs, a.sqlDB.Close())
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
