package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/config"
	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/database/mongodb"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/questiontype"
	"github.com/mbolis/survey-builder/routes"
	"github.com/mbolis/survey-builder/visits"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

func main() {
	root := &cobra.Command{
		Use:           "survey-builder",
		Short:         "Build, publish and take multi-page surveys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the survey HTTP service",
		Args:  cobra.NoArgs,
	}
	flags := config.BindFlags(serveCmd.Flags())
	serveCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := flags.Config()
		if err != nil {
			return codeError(3, "main.config: %s", err)
		}
		return serve(cmd.Context(), cfg)
	}

	var dbUrl, password string
	addUserCmd := &cobra.Command{
		Use:   "adduser <username>",
		Short: "Create a user, or reset its password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return codeError(3, "missing parameter --password")
			}
			return addUser(cmd.Context(), dbUrl, args[0], password)
		},
	}
	addUserCmd.Flags().StringVar(&dbUrl, "db-url", config.Default().DBUrl, "path to SQLite3 DB file, or a mongodb:// URL")
	addUserCmd.Flags().StringVar(&password, "password", "", "the user's password")

	checkCmd := &cobra.Command{
		Use:   "check <survey.json>",
		Short: "Check a persisted survey document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0], cmd.OutOrStdout())
		},
	}

	takeCmd := &cobra.Command{
		Use:   "take <survey.json>",
		Short: "Answer a survey in the terminal and print the responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTake(cmd.Context(), args[0], cmd.OutOrStdout(), nil)
		},
	}

	root.AddCommand(serveCmd, addUserCmd, checkCmd, takeCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFile != "" {
		rotator := log.SetOutputFile(cfg.LogFile, log.RotateConfig{MaxSize: cfg.LogMaxSize, MaxBackups: 3, MaxAge: 28})
		defer rotator.Close()
	}

	db, err := openStore(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	var tracker visits.Tracker
	if cfg.RedisURL != "" {
		redisTracker, err := visits.Dial(ctx, cfg.RedisURL, cfg.VisitTTL)
		if err != nil {
			log.Fatal("main.redis.dial:", err)
		}
		defer redisTracker.Close()
		tracker = redisTracker
	} else {
		tracker = visits.NewMemoryTracker(cfg.VisitTTL)
	}

	app := app.App{
		Surveys:      db,
		Visits:       tracker,
		Types:        questiontype.NewRegistry(),
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
	return nil
}

func openStore(ctx context.Context, dbUrl string) (database.Store, error) {
	if (config.Config{DBUrl: dbUrl}).UsesMongo() {
		store, err := mongodb.Open(ctx, dbUrl)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := database.Open(dbUrl)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func addUser(ctx context.Context, dbUrl, username, password string) error {
	db, err := openStore(ctx, dbUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = db.CreateUser(ctx, username, password); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user": username}).Info("user saved")
	return nil
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
