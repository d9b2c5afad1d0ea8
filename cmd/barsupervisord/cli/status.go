package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/edirooss/barsupervisord/internal/rpc"
)

func newStatusCmd() *cobra.Command {
	var machine bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report daemon and feed status",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			ctx := context.Background()
			ds, err := newClient().Status(ctx)
			if err != nil {
				return fail(log, fmt.Errorf("status: %w", err))
			}
			if machine {
				printMachineStatus(ds)
			} else {
				printHumanStatus(ds)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&machine, "machine", false, "print a stable, space-lean table for scripting")
	return cmd
}

func printMachineStatus(ds rpc.DaemonStatus) {
	if ds.Down {
		fmt.Println("down")
		return
	}
	fmt.Printf("on=%v\n", ds.Status.On)
	for _, f := range ds.Status.Feeds {
		age := "-"
		if f.LastOutputAgeSec != nil {
			age = fmt.Sprintf("%.3f", *f.LastOutputAgeSec)
		}
		state := "-"
		if f.ProcState != nil {
			state = *f.ProcState
		}
		fmt.Printf("%d\t%s\t%d\t%s\t%d\t%s\n", f.Pos, f.Name, f.PID, age, f.LogSizeBytes, state)
	}
}

func printHumanStatus(ds rpc.DaemonStatus) {
	if ds.Down {
		fmt.Println("daemon: down")
		return
	}
	if !ds.Status.On {
		fmt.Println("daemon: off")
		return
	}
	fmt.Println("daemon: on")

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "POS\tNAME\tPID\tSTATE\tLAST OUTPUT\tLOG SIZE")
	for _, f := range ds.Status.Feeds {
		age := "-"
		if f.LastOutputAgeSec != nil {
			age = humanizeDuration(*f.LastOutputAgeSec)
		}
		state := "-"
		if f.ProcState != nil {
			state = *f.ProcState
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n", f.Pos, f.Name, f.PID, state, age, humanizeBytes(f.LogSizeBytes))
	}
}

func humanizeDuration(sec float64) string {
	d := time.Duration(sec * float64(time.Second))
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func humanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
