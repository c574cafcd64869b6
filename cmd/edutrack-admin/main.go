package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/pkg/config"
	"github.com/noah-isme/edutrack-api/pkg/database"
	"github.com/noah-isme/edutrack-api/pkg/logger"
)

const usage = `usage: edutrack-admin <command> [flags]

commands:
  migrate [up|down|status|...]     run a schema migration command (default up)
  sweep [-date YYYY-MM-DD]         promote attendance whose total meets the threshold
  recompute -user ID [-date ...]   re-sum one user's attendance for a day
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx, db, logr, os.Args[2:])
	case "sweep":
		err = runSweep(ctx, db, cfg, logr, os.Args[2:])
	case "recompute":
		err = runRecompute(ctx, db, cfg, logr, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logr.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, db *sqlx.DB, logr *zap.Logger, args []string) error {
	command := "up"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	return database.RunMigrations(ctx, db, logr, command, args...)
}

func newAttendanceService(db *sqlx.DB, cfg *config.Config, logr *zap.Logger) *service.AttendanceService {
	return service.NewAttendanceService(repository.NewAttendanceRepository(db), nil, logr, service.AttendanceConfig{
		MinimumSeconds: cfg.Attendance.MinimumSeconds,
		Location:       cfg.Attendance.Location(),
	})
}

func resolveDate(svc *service.AttendanceService, raw string) (time.Time, error) {
	if raw == "" {
		return svc.CurrentDate(), nil
	}
	return models.ParseDate(raw)
}

func runSweep(ctx context.Context, db *sqlx.DB, cfg *config.Config, logr *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	rawDate := fs.String("date", "", "date to sweep (defaults to today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc := newAttendanceService(db, cfg, logr)
	date, err := resolveDate(svc, *rawDate)
	if err != nil {
		return err
	}
	changed, err := svc.SweepStatuses(ctx, date)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d record(s) promoted at threshold %ds\n", models.FormatDate(date), changed, svc.Threshold())
	return nil
}

func runRecompute(ctx context.Context, db *sqlx.DB, cfg *config.Config, logr *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("recompute", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	rawDate := fs.String("date", "", "date to recompute (defaults to today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 {
		return fmt.Errorf("-user is required")
	}

	svc := newAttendanceService(db, cfg, logr)
	date, err := resolveDate(svc, *rawDate)
	if err != nil {
		return err
	}
	record, err := svc.Recompute(ctx, *userID, date)
	if err != nil {
		return err
	}
	fmt.Printf("user %d %s: total %s, status %s\n", record.UserID, models.FormatDate(record.Date), models.FormatDuration(record.TotalSeconds), record.Status)
	return nil
}
