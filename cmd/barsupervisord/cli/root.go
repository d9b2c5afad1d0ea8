package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/edirooss/barsupervisord/internal/diag"
	"github.com/edirooss/barsupervisord/internal/logging"
	"github.com/edirooss/barsupervisord/internal/rpc"
	"go.uber.org/zap"
)

const binaryName = "barsupervisord"

// commonFlags holds the persistent flags every subcommand shares.
type commonFlags struct {
	dir     string
	logLvl  string
	debug   bool
	timeout float64
}

var flags commonFlags

// Execute builds and runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:           binaryName,
		Short:         "Status-bar supervisor daemon and control client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	home, _ := os.UserHomeDir()
	pf.StringVar(&flags.dir, "dir", filepath.Join(home, "."+binaryName), "working directory")
	pf.StringVar(&flags.logLvl, "log", "info", "log level: trace|debug|info|warn|error")
	pf.BoolVar(&flags.debug, "debug", false, "enable verbose diagnostics (caller, stacktraces, error dumps)")
	pf.Float64Var(&flags.timeout, "timeout", 5, "RPC deadline in seconds")

	root.AddCommand(newServerCmd(), newOnCmd(), newOffCmd(), newStatusCmd(), newReloadCmd())
	return root.Execute()
}

func newLogger() (*zap.Logger, error) {
	return logging.New(flags.logLvl, flags.debug)
}

func socketPath() string { return filepath.Join(flags.dir, "socket") }

func newClient() *rpc.Client {
	return rpc.NewClient(socketPath(), time.Duration(flags.timeout*float64(time.Second)))
}

// fail logs the error chain (verbosely under --debug) and returns it
// so the caller's RunE surfaces a non-zero exit code.
func fail(log *zap.Logger, err error) error {
	diag.DumpErrChain(log, err, flags.debug)
	return err
}
