package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/ecoquest/internal/api"
	"github.com/victornm/ecoquest/internal/catalog"
	"github.com/victornm/ecoquest/internal/datetime"
	"github.com/victornm/ecoquest/internal/event"
	"github.com/victornm/ecoquest/internal/filestore"
	"github.com/victornm/ecoquest/internal/game"
	"github.com/victornm/ecoquest/internal/gameboard"
	"github.com/victornm/ecoquest/internal/identity"
	"github.com/victornm/ecoquest/internal/statistic"
	"github.com/victornm/ecoquest/internal/storage/postgres"
	"github.com/victornm/ecoquest/internal/telemetry"
	"github.com/victornm/ecoquest/internal/user"
)

type Config struct {
	Log struct {
		// Level is one of debug, info, warn, error.
		Level string
		// Format is json or text.
		Format string
	}

	HTTP struct {
		Port         int32
		AllowOrigins []string
	}

	GRPC struct {
		Port int32
	}

	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
		// Migrate applies pending migrations on start.
		Migrate bool
	}

	Auth struct {
		Issuer     string
		Audience   string
		SigningKey string
		TTL        time.Duration
		BcryptCost int

		// Admin is created on start unless its login exists.
		Admin struct {
			Login    string
			Password string
		}
	}

	Files struct {
		Root string
	}

	Catalog struct {
		Timezone string
	}

	Game struct {
		Expiry      time.Duration
		LockTimeout time.Duration
		LockTTL     time.Duration
	}
}

// DefaultConfig holds the values used when neither the file nor the
// environment sets them.
func DefaultConfig() Config {
	var c Config
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.HTTP.Port = 8080
	c.HTTP.AllowOrigins = []string{"*"}
	c.GRPC.Port = 9090
	c.Redis.Prefix = "ecoquest"
	c.Auth.Issuer = "Backend"
	c.Auth.Audience = "Frontend"
	c.Auth.TTL = 30 * 24 * time.Hour
	c.Files.Root = "./files"
	c.Catalog.Timezone = datetime.DefaultZone
	c.Game.Expiry = game.DefaultExpiry
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
		files    *filestore.Store
	}

	service struct {
		user      *user.Service
		game      *game.Service
		gameboard *gameboard.Service
		catalog   *catalog.Service
		statistic *statistic.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	if len(c.Auth.SigningKey) == 0 {
		return nil, fmt.Errorf("server: auth.signingkey is required")
	}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	files, err := filestore.NewOS(s.c.Files.Root)
	if err != nil {
		return fmt.Errorf("files: %w", err)
	}
	s.infra.files = files

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := s.c.Postgres
	if p.Migrate {
		if err := postgres.Migrate(postgres.DSN("pgx5", p.Addr, p.User, p.Pass, p.Name), 0); err != nil {
			return err
		}
	}

	cc, err := pgxpool.ParseConfig(postgres.DSN("postgres", p.Addr, p.User, p.Pass, p.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() error {
	store := postgres.New(s.infra.postgres)

	loc, err := datetime.LoadZone(s.c.Catalog.Timezone)
	if err != nil {
		return err
	}

	s.service.game = game.NewService(game.Config{
		Store:    store,
		EventBus: s.eb,
		Locker: game.NewRedisLocker(game.RedisLockerConfig{
			Redis:   s.infra.redis,
			Prefix:  s.c.Redis.Prefix,
			TTL:     s.c.Game.LockTTL,
			Timeout: s.c.Game.LockTimeout,
		}),
		Expiry: s.c.Game.Expiry,
	})

	s.service.user = user.NewService(user.Config{
		Store:    store,
		Sweeper:  s.service.game,
		EventBus: s.eb,
		Token:    s.tokenConfig(),
		HashCost: s.c.Auth.BcryptCost,
	})

	s.service.gameboard = gameboard.NewService(gameboard.Config{
		Store: store,
	})

	s.service.catalog = catalog.NewService(catalog.Config{
		Store:    store,
		Files:    s.infra.files,
		Location: loc,
	})

	s.service.statistic = statistic.NewService(statistic.Config{
		Store: store,
		Files: s.infra.files,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.service.user.EnsureAdmin(ctx, s.c.Auth.Admin.Login, s.c.Auth.Admin.Password)
}

func (s *Server) tokenConfig() identity.TokenConfig {
	return identity.TokenConfig{
		Issuer:     s.c.Auth.Issuer,
		Audience:   s.c.Auth.Audience,
		SigningKey: []byte(s.c.Auth.SigningKey),
		TTL:        s.c.Auth.TTL,
	}
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())
	e.Use(telemetry.HTTPMiddleware())
	e.Use(cors.New(cors.Config{
		AllowOrigins:  s.c.HTTP.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", telemetry.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	api.New(api.Config{
		EventBus:     s.eb,
		Users:        s.service.user,
		Games:        s.service.game,
		GameBoards:   s.service.gameboard,
		Catalog:      s.service.catalog,
		Statistics:   s.service.statistic,
		Files:        s.infra.files,
		Token:        s.tokenConfig(),
		Redis:        s.infra.redis,
		PubsubPrefix: s.c.Redis.Prefix,
	}).Register(e)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.Close()
	if err := s.infra.redis.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
