package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
)

var (
	app        = kingpin.New("hookguard", "Permission engine for intercepted runtime actions")
	configPath = app.Flag("config", "Policy document path (default $HOOKGUARD_CONFIG or ./.hookguard)").Short('c').String()
	logLevel   = app.Flag("log-level", "Diagnostic log level (default $HOOKGUARD_LOG_LEVEL or warn)").String()

	checkCmd   = app.Command("check", "Evaluate one event against the policy")
	checkEvent = checkCmd.Arg("event", "Event name, e.g. open or subprocess.Popen").Required().String()
	checkArgs  = checkCmd.Arg("args", "Event arguments; JSON values are decoded, anything else is a string").Strings()

	serveCmd         = app.Command("serve", "Answer JSON-lines events on stdin through the coordinator")
	serveMode        = serveCmd.Flag("mode", "run, force or review (default $HOOKGUARD_MODE)").String()
	serveMetricsAddr = serveCmd.Flag("metrics-addr", "Expose Prometheus metrics on this address").String()
	serveWatch       = serveCmd.Flag("watch", "Reload the policy document when it changes").Default("true").Bool()

	configCmd         = app.Command("config", "Policy document commands")
	configCreateCmd   = configCmd.Command("create", "Write the default policy document")
	configCreateForce = configCreateCmd.Flag("force", "Overwrite an existing document").Bool()
	configShowCmd     = configCmd.Command("show", "Print the effective policy")
	configSchemaCmd   = configCmd.Command("schema", "Print the JSON schema of the policy document")
	configValidateCmd = configCmd.Command("validate", "Validate the policy document")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	rt, err := newRuntime(*configPath, *logLevel, os.Stderr)
	if err != nil {
		exit(err)
	}

	switch command {
	case checkCmd.FullCommand():
		os.Exit(runCheck(rt, os.Stderr, *checkEvent, *checkArgs))
	case serveCmd.FullCommand():
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		code, err := runServe(ctx, rt, serveOptions{
			mode:        *serveMode,
			metricsAddr: *serveMetricsAddr,
			watch:       *serveWatch,
			in:          os.Stdin,
			out:         os.Stdout,
		})
		stop()
		if err != nil {
			exit(err)
		}
		os.Exit(code)
	case configCreateCmd.FullCommand():
		exit(runConfigCreate(rt, os.Stdout, *configCreateForce))
	case configShowCmd.FullCommand():
		exit(runConfigShow(rt, os.Stdout))
	case configSchemaCmd.FullCommand():
		exit(runConfigSchema(os.Stdout))
	case configValidateCmd.FullCommand():
		exit(runConfigValidate(rt, os.Stdout))
	}
}

// exit reports err on stderr and ends the process with its status.
func exit(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "hookguard: %v\n", err)
	}
	os.Exit(domainerrors.ExitCode(err))
}
