// Command-line interface for sending commands to a Bluelink account's vehicles.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
	"github.com/bluelinky/bluelink-command/pkg/cli"
	"github.com/bluelinky/bluelink-command/pkg/client"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs:\n", os.Args[0])
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, label := range labels {
		info := commands[label]
		fmt.Printf("  %s%s %s\n", label, strings.Repeat(" ", maxLength-len(label)), info.help)
	}
	fmt.Printf("\nOPTIONs:\n")
	flag.PrintDefaults()
}

func runCommand(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args []string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := execute(ctx, cl, car, args); err != nil {
		if errors.Is(err, bluelink.ErrNotImplemented) {
			return fmt.Errorf("%s is not available in this region", args[0])
		}
		return err
	}
	return nil
}

func runInteractiveShell(ctx context.Context, cl *client.Client, car bluelink.Vehicle, timeout time.Duration) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("> ")
	for scanner.Scan() {
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			writeErr("Invalid command: %s", err)
		} else if len(args) > 0 {
			if args[0] == "exit" || args[0] == "quit" {
				return nil
			}
			if err := runCommand(ctx, cl, car, args, timeout); err != nil {
				writeErr("Error: %s", err)
			}
		}
		fmt.Printf("> ")
	}
	return scanner.Err()
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug          bool
		commandTimeout time.Duration
	)

	config := cli.NewConfig()
	config.RegisterCommandLineFlags()
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.DurationVar(&commandTimeout, "command-timeout", 30*time.Second, "Set timeout for commands sent to the vehicle.")
	flag.Usage = Usage
	flag.Parse()

	if debug || os.Getenv("BLUELINK_VERBOSE") != "" {
		log.SetLevel(log.LevelDebug)
	}

	args := flag.Args()
	if len(args) > 0 {
		if args[0] == "help" {
			if len(args) == 1 {
				Usage()
				status = 0
				return
			}
			info, ok := commands[args[1]]
			if !ok {
				writeErr("Unrecognized command: %s", args[1])
				return
			}
			info.Usage(args[1])
			status = 0
			return
		}
		if _, ok := commands[args[0]]; !ok {
			writeErr("Unrecognized command: %s", args[0])
			return
		}
	}

	if err := config.ReadFromEnvironment(); err != nil {
		writeErr("Error: %s", err)
		return
	}
	if err := config.LoadCredentials(); err != nil {
		writeErr("Error: %s", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cl, err := config.Connect(ctx)
	if err != nil {
		writeErr("Error: %s", err)
		return
	}
	defer func() {
		if err := cl.Logout(context.Background()); err != nil {
			log.Debug("logout failed: %v", err)
		}
	}()

	// Account-level commands run without a vehicle; everything else needs one.
	car, err := cl.GetVehicle(config.VIN)
	if err != nil {
		log.Debug("no vehicle selected: %v", err)
		car = nil
	}

	if len(args) > 0 {
		if err := runCommand(ctx, cl, car, args, commandTimeout); err != nil {
			writeErr("Error: %s", err)
			return
		}
	} else {
		if err := runInteractiveShell(ctx, cl, car, commandTimeout); err != nil {
			writeErr("Error: %s", err)
			return
		}
	}
	status = 0
}
