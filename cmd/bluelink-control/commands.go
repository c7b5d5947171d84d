package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
	"github.com/bluelinky/bluelink-command/pkg/client"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrRequiresVehicle = errors.New("command requires a vehicle; set -vin or $BLUELINK_VIN")
	ErrUnknownCommand  = errors.New("unrecognized command")
)

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error

type Command struct {
	help            string
	requiresVehicle bool // True if the command targets a vehicle rather than the account
	args            []Argument
	optional        []Argument
	handler         Handler
}

func checkReadiness(commandName string, haveVehicle bool) (*Command, error) {
	info, ok := commands[commandName]
	if !ok {
		return nil, ErrUnknownCommand
	}
	if info.requiresVehicle && !haveVehicle {
		return nil, ErrRequiresVehicle
	}
	return info, nil
}

func execute(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}

	info, err := checkReadiness(args[0], car != nil)
	if err != nil {
		return err
	}

	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).",
			len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(ctx, cl, car, keywords)
	}

	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(args[0])
	}
	return err
}

func (c *Command) Usage(name string) {
	fmt.Printf("Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" [")
	}
	for _, arg := range c.optional {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" ]")
	}
	fmt.Printf("\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func parseIntArg(args map[string]string, name string) (int, error) {
	value, err := strconv.Atoi(args[name])
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", ErrCommandLineArgs, name)
	}
	return value, nil
}

func wantsRefresh(args map[string]string) bool {
	return strings.EqualFold(args["mode"], "refresh")
}

var commands = map[string]*Command{
	"list": &Command{
		help: "List the account's vehicles",
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			vehicles, err := cl.GetVehicles(ctx)
			if err != nil {
				return err
			}
			for _, vehicle := range vehicles {
				reg := vehicle.RegisterOptions()
				fmt.Printf("%s\t%s\t%s\n", vehicle.VIN(), reg.EngineType, vehicle.Name())
			}
			return nil
		},
	},
	"session": &Command{
		help: "Show the current session state",
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			session := cl.Controller().Session()
			fmt.Printf("token expires: %s\n", session.TokenExpiresAt)
			if session.DeviceID != "" {
				fmt.Printf("device id:     %s\n", session.DeviceID)
			}
			if session.ControlToken != "" {
				fmt.Printf("control token expires: %s\n", session.ControlTokenExpiresAt)
			}
			return nil
		},
	},
	"refresh": &Command{
		help: "Refresh the access token if it is due",
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			result := cl.RefreshAccessToken(ctx)
			fmt.Println(result.String())
			return nil
		},
	},
	"status": &Command{
		help:            "Show the vehicle status",
		requiresVehicle: true,
		optional: []Argument{
			Argument{name: "mode", help: "Pass 'refresh' to poll the vehicle instead of the cached reading."},
		},
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			status, err := car.Status(ctx, bluelink.StatusOptions{Refresh: wantsRefresh(args), Parsed: true})
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	},
	"raw-status": &Command{
		help:            "Show the vendor's unprocessed status payload",
		requiresVehicle: true,
		optional: []Argument{
			Argument{name: "mode", help: "Pass 'refresh' to poll the vehicle instead of the cached reading."},
		},
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			status, err := car.RawStatus(ctx, bluelink.StatusOptions{Refresh: wantsRefresh(args)})
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	},
	"full-status": &Command{
		help:            "Show the full status record where the region supports it",
		requiresVehicle: true,
		optional: []Argument{
			Argument{name: "mode", help: "Pass 'refresh' to poll the vehicle first."},
		},
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			status, err := car.FullStatus(ctx, bluelink.StatusOptions{Refresh: wantsRefresh(args)})
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	},
	"lock": &Command{
		help:            "Lock the doors",
		requiresVehicle: true,
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			return car.Lock(ctx)
		},
	},
	"unlock": &Command{
		help:            "Unlock the doors",
		requiresVehicle: true,
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			return car.Unlock(ctx)
		},
	},
	"start": &Command{
		help:            "Start remote climate",
		requiresVehicle: true,
		optional: []Argument{
			Argument{name: "TEMP", help: "Target temperature in °C, e.g. 21.5."},
			Argument{name: "MINUTES", help: "Run duration in minutes."},
		},
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			opts := bluelink.StartOptions{HVAC: true}
			if raw, ok := args["TEMP"]; ok {
				temp, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return fmt.Errorf("%w: TEMP must be a number", ErrCommandLineArgs)
				}
				opts.Temperature = temp
				opts.Unit = "C"
			}
			if raw, ok := args["MINUTES"]; ok {
				minutes, err := strconv.Atoi(raw)
				if err != nil {
					return fmt.Errorf("%w: MINUTES must be a number", ErrCommandLineArgs)
				}
				opts.Duration = minutes
			}
			return car.Start(ctx, opts)
		},
	},
	"stop": &Command{
		help:            "Stop remote climate",
		requiresVehicle: true,
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			return car.Stop(ctx)
		},
	},
	"location": &Command{
		help:            "Show the vehicle's last reported position",
		requiresVehicle: true,
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			location, err := car.Location(ctx)
			if err != nil {
				return err
			}
			return printJSON(location)
		},
	},
	"odometer": &Command{
		help:            "Show the odometer reading",
		requiresVehicle: true,
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			odometer, err := car.Odometer(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%g\n", odometer.Value)
			return nil
		},
	},
	"charge-start": &Command{
		help:            "Start charging",
		requiresVehicle: true,
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			return car.StartCharge(ctx)
		},
	},
	"charge-stop": &Command{
		help:            "Stop charging",
		requiresVehicle: true,
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			return car.StopCharge(ctx)
		},
	},
	"charge-targets": &Command{
		help:            "Show the charge limits",
		requiresVehicle: true,
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			targets, err := car.GetChargeTargets(ctx)
			if err != nil {
				return err
			}
			return printJSON(targets)
		},
	},
	"set-charge-targets": &Command{
		help:            "Set the charge limits (valid levels: 50, 60, 70, 80, 90, 100)",
		requiresVehicle: true,
		args: []Argument{
			Argument{name: "FAST", help: "Charge limit for fast (DC) charging."},
			Argument{name: "SLOW", help: "Charge limit for slow (AC) charging."},
		},
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			fast, err := parseIntArg(args, "FAST")
			if err != nil {
				return err
			}
			slow, err := parseIntArg(args, "SLOW")
			if err != nil {
				return err
			}
			return car.SetChargeTargets(ctx, bluelink.ChargeTargets{Fast: fast, Slow: slow})
		},
	},
	"monthly-report": &Command{
		help:            "Show the monthly driving report",
		requiresVehicle: true,
		args: []Argument{
			Argument{name: "YEAR", help: "Four-digit year."},
			Argument{name: "MONTH", help: "Month number, 1-12."},
		},
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			year, err := parseIntArg(args, "YEAR")
			if err != nil {
				return err
			}
			month, err := parseIntArg(args, "MONTH")
			if err != nil {
				return err
			}
			report, err := car.MonthlyReport(ctx, year, month)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	},
	"trips": &Command{
		help:            "Show trip aggregates for a month, or per-trip detail for a day",
		requiresVehicle: true,
		args: []Argument{
			Argument{name: "YEAR", help: "Four-digit year."},
			Argument{name: "MONTH", help: "Month number, 1-12."},
		},
		optional: []Argument{
			Argument{name: "DAY", help: "Day of month for per-trip detail."},
		},
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			year, err := parseIntArg(args, "YEAR")
			if err != nil {
				return err
			}
			month, err := parseIntArg(args, "MONTH")
			if err != nil {
				return err
			}
			period := bluelink.TripPeriod{Year: year, Month: month}
			if _, ok := args["DAY"]; ok {
				if period.Day, err = parseIntArg(args, "DAY"); err != nil {
					return err
				}
			}
			monthTrip, days, err := car.TripInfo(ctx, period)
			if err != nil {
				return err
			}
			if monthTrip != nil {
				return printJSON(monthTrip)
			}
			return printJSON(days)
		},
	},
	"drive-history": &Command{
		help:            "Show cumulated power consumption history (EV only)",
		requiresVehicle: true,
		optional: []Argument{
			Argument{name: "PERIOD", help: "0 for daily, 1 for monthly, 2 for all."},
		},
		handler: func(ctx context.Context, cl *client.Client, car bluelink.Vehicle, args map[string]string) error {
			period := bluelink.HistoryDaily
			if _, ok := args["PERIOD"]; ok {
				value, err := parseIntArg(args, "PERIOD")
				if err != nil {
					return err
				}
				period = bluelink.HistoryPeriod(value)
			}
			history, err := car.DriveHistory(ctx, period)
			if err != nil {
				return err
			}
			return printJSON(history)
		},
	},
}
