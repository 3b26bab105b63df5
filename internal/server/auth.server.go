// Package server assembles the service: database and redis connections,
// schema migrations, the per-role usecases and the HTTP router, plus
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/bcrypt"

	"jobnest-auth/internal/config"
	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/handler"
	"jobnest-auth/internal/repository"
	"jobnest-auth/internal/router"
	"jobnest-auth/internal/service/email"
	oauth2svc "jobnest-auth/internal/service/oauth2"
	"jobnest-auth/internal/usecase"
	"jobnest-auth/migrations"
	"jobnest-auth/pkg/cache"
	"jobnest-auth/pkg/jwtutil"
	"jobnest-auth/pkg/middleware"
	xerrors "jobnest-auth/pkg/xerrors"
)

func Run(cfg config.AppConfig) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrate(cfg.DatabaseDSN); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	c := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPass, false)
	defer c.Close()

	codec := jwtutil.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	mailer := email.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)

	applicantRepo := repository.NewPrincipalRepo(pool, domain.ApplicantSpec)
	employerRepo := repository.NewPrincipalRepo(pool, domain.EmployerSpec)
	adminRepo := repository.NewPrincipalRepo(pool, domain.AdminSpec)
	planRepo := repository.NewPlanRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	applicationRepo := repository.NewApplicationRepo(pool)
	otpRepo := repository.NewOTPRepo(c)

	applicantUC := usecase.NewAuthUsecase(domain.ApplicantSpec, applicantRepo, planRepo, otpRepo, mailer, codec, log)
	employerUC := usecase.NewAuthUsecase(domain.EmployerSpec, employerRepo, planRepo, otpRepo, mailer, codec, log)
	adminUC := usecase.NewAuthUsecase(domain.AdminSpec, adminRepo, planRepo, otpRepo, mailer, codec, log)
	jobUC := usecase.NewJobUsecase(jobRepo, applicationRepo, log)
	adminOpsUC := usecase.NewAdminUsecase(applicantRepo, employerRepo, planRepo, log)

	if err := ensureAdmin(ctx, cfg, adminRepo, log); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	auth := middleware.NewAuthMiddleware(codec, map[domain.Role]middleware.PrincipalSource{
		domain.RoleApplicant: applicantUC,
		domain.RoleEmployer:  employerUC,
		domain.RoleAdmin:     adminUC,
	})

	secure := cfg.IsProduction()
	h := router.Handlers{
		Applicant: handler.NewAuthHandler(applicantUC, oauth2svc.VerifyGoogleToken, cfg.GoogleClientID, cfg.BlobOrigin, secure),
		Employer:  handler.NewAuthHandler(employerUC, oauth2svc.VerifyGoogleToken, cfg.GoogleClientID, cfg.BlobOrigin, secure),
		Admin:     handler.NewAuthHandler(adminUC, oauth2svc.VerifyGoogleToken, cfg.GoogleClientID, cfg.BlobOrigin, secure),
		Jobs:      handler.NewJobHandler(jobUC),
		Plans:     handler.NewPlanHandler(adminOpsUC),
		Admins:    handler.NewAdminHandler(adminOpsUC),
	}

	r := chi.NewRouter()
	router.SetupRoutes(r, h, auth, c)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// migrate brings the schema up to date through goose, using the stdlib
// driver because goose speaks database/sql, not pgx native.
func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

// ensureAdmin creates the bootstrap admin account from the environment if it
// does not exist yet. Admins have no signup route; this is how the first one
// gets in.
func ensureAdmin(ctx context.Context, cfg config.AppConfig, repo repository.PrincipalRepository, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Warn("admin credentials not configured, skipping admin seed")
		return nil
	}

	_, err := repo.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, xerrors.ErrAccountNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), 10)
	if err != nil {
		return err
	}
	admin := &domain.Principal{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		Name:         "Administrator",
		Role:         domain.RoleAdmin,
		IsVerified:   true,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return err
	}
	log.Info("admin account seeded", "email", cfg.AdminEmail)
	return nil
}
