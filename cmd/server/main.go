package main

import (
	"context"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/recipe-blog/internal/comments"
	"github.com/example/recipe-blog/internal/content"
	"github.com/example/recipe-blog/internal/events"
	"github.com/example/recipe-blog/internal/handlers"
	"github.com/example/recipe-blog/internal/platform/auth"
	"github.com/example/recipe-blog/internal/platform/config"
	"github.com/example/recipe-blog/internal/platform/db"
	"github.com/example/recipe-blog/internal/platform/httpserver"
	"github.com/example/recipe-blog/internal/platform/logging"
	"github.com/example/recipe-blog/internal/platform/natsconn"
	"github.com/example/recipe-blog/internal/platform/run"
	"github.com/example/recipe-blog/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	commentStore, closePool := initStore(cfg, log)
	if closePool != nil {
		defer closePool()
	}

	library, err := content.NewLibrary(cfg.ContentDir, log)
	if err != nil {
		log.Error("content library", zap.Error(err))
		run.Exit(1)
	}

	publisher := initPublisher(log)
	builder := comments.NewBuilder(commentStore)
	service := comments.NewService(commentStore, publisher)

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger: log,
		ReadyFunc: func() error {
			_, err := commentStore.Count(context.Background(), store.Filter{})
			return err
		},
	})

	r.Get("/articles", handlers.ListArticles(library))
	r.Get("/articles/{slug}", handlers.GetArticle(library))
	r.Get("/comments/{slug}", handlers.GetComments(builder))
	r.Post("/comments/{slug}", handlers.PostComment(service))

	admin, err := auth.AdminFromEnv()
	if err != nil {
		log.Warn("admin routes disabled", zap.Error(err))
	} else {
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin.Require)
			r.Get("/comments", handlers.AdminListComments(builder))
			r.Post("/comments/{id}/approve", handlers.ApproveComment(service))
			r.Post("/comments/{id}/reject", handlers.RejectComment(service))
			r.Post("/comments/{id}/delete", handlers.DeleteComment(service))
			r.Post("/comments/{id}/reply", handlers.ReplyComment(service))
			r.Get("/articles", handlers.AdminListArticles(library, commentStore))
			r.Get("/articles/{slug}", handlers.AdminGetArticle(library))
			r.Put("/articles/{slug}", handlers.AdminSaveArticle(library))
		})
	}

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			if err := library.Watch(ctx); err != nil {
				log.Error("content watcher", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the comment store backend.
// In production (APP_ENV=production) it requires a working Postgres connection
// and terminates the process otherwise.
func initStore(cfg config.AppConfig, log *zap.Logger) (store.Store, func()) {
	pool, err := db.Open(context.Background())
	if err != nil {
		if cfg.IsProduction() {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, using in-memory comment store (development only)", zap.Error(err))
		return store.NewMemoryStore(), nil
	}

	log.Info("comment store: postgres")
	return store.NewPostgresStore(pool), pool.Close
}

// initPublisher wires the JetStream publisher. Moderation events are
// fire-and-forget, so an unreachable broker only logs a warning.
func initPublisher(log *zap.Logger) *events.Publisher {
	nc, err := natsconn.Connect(natsconn.Options{})
	if err != nil {
		log.Warn("nats unavailable, moderation events disabled", zap.Error(err))
		return nil
	}
	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		log.Warn("jetstream unavailable, moderation events disabled", zap.Error(err))
		return nil
	}
	return events.New(js, log)
}
