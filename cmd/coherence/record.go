package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gocoherence/adapters/device"
	"gocoherence/adapters/hexlog"
	"gocoherence/internal"
	"gocoherence/internal/acquisition"
	"gocoherence/internal/errors"
	"gocoherence/ports"
)

func newRecordCmd() *cobra.Command {
	var specs []string
	var bytesPerRead int
	var mode string

	cmd := &cobra.Command{
		Use:   "record [output-dir]",
		Short: "Record hex entropy logs from byte-stream devices",
		Long: `Read every device in its own loop and append one line per read to
<output-dir>/<serial>.hex. Devices are SERIAL=PATH pairs, where PATH is any byte
stream (a hardware RNG node, a FIFO fed by a vendor tool).

In user_initiated mode nothing is read until a command arrives on stdin:
  trigger N            read N chunks from every device
  mode continuous      switch to back-to-back reads
  mode user_initiated  switch back
  stop                 finish and exit

Example: coherence record ./entropy_data --device QWR4A003=/dev/hwrng --bytes 1024`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := internal.NewDefaultLogger()
			startMode, err := acquisition.ParseMode(mode)
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				return errors.InvalidInput("at least one --device SERIAL=PATH is required")
			}

			devices := make([]ports.EntropyDevicePort, 0, len(specs))
			for _, spec := range specs {
				d, err := device.ParseSpec(spec)
				if err != nil {
					return err
				}
				defer d.Close()
				devices = append(devices, d)
			}

			sink, err := hexlog.NewFileSink(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to prepare output directory")
			}
			defer sink.Close()

			control := acquisition.NewController(startMode)
			config := acquisition.DefaultRecorderConfig()
			config.BytesPerRead = bytesPerRead
			recorder, err := acquisition.NewRecorder(devices, sink, control, config, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				if err := runCommands(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), control); err != nil {
					logger.Warn("command input closed: %v", err)
				}
			}()

			stats, err := recorder.Run(ctx)
			for _, s := range stats {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d reads, %d bytes, %d errors\n", s.Serial, s.Reads, s.Bytes, s.Errors)
			}
			for serial, size := range sink.Sizes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s: %d bytes\n", serial, hexlog.Extension, size)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&specs, "device", nil, "Device as SERIAL=PATH (repeatable)")
	cmd.Flags().IntVar(&bytesPerRead, "bytes", acquisition.DefaultBytesPerRead, "Bytes per read (max 1048576)")
	cmd.Flags().StringVar(&mode, "mode", string(acquisition.ModeContinuous), "Start mode: continuous|user_initiated")
	return cmd
}

// runCommands feeds stdin commands to the controller until stop, EOF or cancellation.
func runCommands(ctx context.Context, in io.Reader, out io.Writer, control *acquisition.Controller) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case line := <-lines:
			stop, err := applyCommand(control, line)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", time.Now().Format(time.TimeOnly), err)
				continue
			}
			if stop {
				return nil
			}
		}
	}
}

// applyCommand executes one command line and reports whether acquisition stopped.
func applyCommand(control *acquisition.Controller, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "stop":
		control.Stop()
		return true, nil
	case "trigger":
		n := 1
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return false, errors.InvalidInput("trigger count must be an integer")
			}
			n = v
		}
		return false, control.Trigger(n)
	case "mode":
		if len(fields) < 2 {
			return false, errors.InvalidInput("mode requires continuous or user_initiated")
		}
		m, err := acquisition.ParseMode(fields[1])
		if err != nil {
			return false, err
		}
		return false, control.SetMode(m)
	default:
		return false, errors.InvalidInput(fmt.Sprintf("unknown command %q", fields[0]))
	}
}
