package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/dobot-link/internal/app"
	cfgpkg "github.com/taoyao-code/dobot-link/internal/config"
	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
	"github.com/taoyao-code/dobot-link/internal/sender"
)

type deviceInfo struct {
	SerialNumber string `json:"sn"`
	Name         string `json:"name"`
	Version      string `json:"version"`
}

func infoCmd(g *globalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Read serial number, name and firmware version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDevice(cmd, func(ctx context.Context, dev *app.Device, _ *cfgpkg.Config) error {
				ctx, cancel := context.WithTimeout(ctx, commandTimeout)
				defer cancel()

				var info deviceInfo
				var err error
				if info.SerialNumber, err = dev.Sender.ReadString(ctx, dobot.DeviceSn); err != nil {
					return err
				}
				if info.Name, err = dev.Sender.ReadString(ctx, dobot.DeviceName); err != nil {
					return err
				}
				ver, err := sender.SendCommand[dobot.Version](ctx, dev.Sender, sender.Command{ID: dobot.DeviceVersion, IsRead: true})
				if err != nil {
					return err
				}
				info.Version = ver.String()

				out := cmd.OutOrStdout()
				if g.printJSON {
					return printJSON(out, info)
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "SN\t%s\n", info.SerialNumber)
				fmt.Fprintf(w, "NAME\t%s\n", info.Name)
				fmt.Fprintf(w, "VERSION\t%s\n", info.Version)
				return w.Flush()
			})
		},
	}
}

type alarmRow struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func alarmsCmd(g *globalConfig) *cobra.Command {
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "alarms",
		Short: "List active alarms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDevice(cmd, func(ctx context.Context, dev *app.Device, cfg *cfgpkg.Config) error {
				ctx, cancel := context.WithTimeout(ctx, commandTimeout)
				defer cancel()

				state, err := sender.SendCommand[dobot.AlarmState](ctx, dev.Sender, sender.Command{ID: dobot.AlarmReadState, IsRead: true})
				if err != nil {
					return err
				}
				catalog := app.LoadAlarmCatalog(cfg.Alarms, zap.NewNop())
				rows := alarmRows(state.Active(), catalog)

				if clearAll && len(rows) > 0 {
					if err := dev.Sender.Exec(ctx, sender.Command{ID: dobot.AlarmClearAll}, nil, nil); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				if g.printJSON {
					return printJSON(out, map[string]interface{}{"alarms": rows, "cleared": clearAll && len(rows) > 0})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "no active alarms")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tNAME\tDESCRIPTION")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Code, r.Name, r.Description)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if clearAll {
					fmt.Fprintf(out, "cleared %d alarm(s)\n", len(rows))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Clear all alarms after listing them")
	return cmd
}

func alarmRows(active []dobot.Alarm, catalog *dobot.AlarmCatalog) []alarmRow {
	rows := make([]alarmRow, 0, len(active))
	for _, a := range active {
		rows = append(rows, alarmRow{
			Code:        fmt.Sprintf("0x%02X", uint8(a)),
			Name:        a.String(),
			Description: catalog.Describe(a),
		})
	}
	return rows
}

func queueCmds(g *globalConfig) *cobra.Command {
	queueCmd := &cobra.Command{Use: "queue", Short: "Inspect the device command queue"}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Print the index of the queued command currently executing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDevice(cmd, func(ctx context.Context, dev *app.Device, _ *cfgpkg.Config) error {
				ctx, cancel := context.WithTimeout(ctx, commandTimeout)
				defer cancel()
				idx, err := dev.Sender.CurrentQueueIndex(ctx)
				if err != nil {
					return err
				}
				if g.printJSON {
					return printJSON(cmd.OutOrStdout(), map[string]uint64{"index": idx})
				}
				fmt.Fprintln(cmd.OutOrStdout(), idx)
				return nil
			})
		},
	}

	var timeout time.Duration
	waitCmd := &cobra.Command{
		Use:   "wait INDEX",
		Short: "Block until the device has executed the queued command INDEX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid queue index %q: %w", args[0], err)
			}
			return g.withDevice(cmd, func(ctx context.Context, dev *app.Device, cfg *cfgpkg.Config) error {
				policy := app.WaitPolicy(cfg.Queue)
				if timeout > 0 && policy.Interval > 0 {
					policy.Timeout = timeout
					if need := int(timeout/policy.Interval) + 1; need > policy.MaxAttempts {
						policy.MaxAttempts = need
					}
				}
				start := time.Now()
				if err := dev.Sender.WaitForQueuedCommand(ctx, idx, policy); err != nil {
					return err
				}
				if g.printJSON {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{
						"index": idx, "reached": true, "waitedMs": time.Since(start).Milliseconds(),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued command %d executed after %s\n", idx, time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
	waitCmd.Flags().DurationVar(&timeout, "timeout", 0, "Override queue.timeout")

	queueCmd.AddCommand(indexCmd)
	queueCmd.AddCommand(waitCmd)
	return queueCmd
}
