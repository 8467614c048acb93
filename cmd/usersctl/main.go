// Command usersctl manages user profiles from the command line: create,
// batch import, promote and inspect. Results are printed as JSON on stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"church_app_backend/internal/config"
	"church_app_backend/internal/logging"
	"church_app_backend/internal/profile"
	"church_app_backend/internal/store"
)

const (
	mongoConnectTimeout    = 10 * time.Second
	mongoDisconnectTimeout = 5 * time.Second
	commandTimeout         = 2 * time.Minute
)

func main() {
	args := os.Args[1:]
	if err := checkCommand(args); err != nil {
		fmt.Fprintln(os.Stderr, usage)
		exitWithError(err, exitFailure)
	}

	cfg, err := config.Load()
	if err != nil {
		exitWithError(fmt.Errorf("configuration error: %w", err), exitFailure)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		exitWithError(fmt.Errorf("logger setup error: %w", err), exitFailure)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		exitWithError(fmt.Errorf("mongo connection error: %w", err), exitFailure)
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancelCommand := context.WithTimeout(signalCtx, commandTimeout)

	cli := &app{
		profiles: profile.NewStore(mongoManager.Users(), logger),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	runErr := cli.run(ctx, args)

	cancelCommand()
	stop()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(closeCtx); err != nil {
		logger.WithError(err).Warn("mongo disconnect error")
	}
	cancelClose()

	if runErr != nil {
		code := exitFailure
		if errors.Is(runErr, errProfileNotFound) {
			code = exitNotFound
		}
		exitWithError(runErr, code)
	}
}

func exitWithError(err error, code int) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}
