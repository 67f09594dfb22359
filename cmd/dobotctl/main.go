package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/dobot-link/internal/app"
	"github.com/taoyao-code/dobot-link/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/dobot-link/internal/config"
	"github.com/taoyao-code/dobot-link/internal/logging"
)

type globalConfig struct {
	configPath string
	port       string
	baud       int
	printJSON  bool
	verbose    bool
}

func main() {
	if err := rootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	gCfg := &globalConfig{}
	root := &cobra.Command{
		Use:           "dobotctl",
		Short:         "Dobot Magician serial link tool",
		Long:          "dobotctl talks to a Dobot Magician arm over its serial protocol, standalone or as an HTTP service.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&gCfg.configPath, "config", "c", "", "Config file (default: $DOBOT_CONFIG or configs/dobot.yaml)")
	root.PersistentFlags().StringVarP(&gCfg.port, "port", "p", "", "Serial port, overrides serial.port")
	root.PersistentFlags().IntVar(&gCfg.baud, "baud", 0, "Baud rate, overrides serial.baud")
	root.PersistentFlags().BoolVar(&gCfg.printJSON, "json", false, "Print results as json")
	root.PersistentFlags().BoolVarP(&gCfg.verbose, "verbose", "v", false, "Log every exchange")

	root.AddCommand(serveCmd(gCfg))
	root.AddCommand(infoCmd(gCfg))
	root.AddCommand(alarmsCmd(gCfg))
	root.AddCommand(queueCmds(gCfg))
	root.AddCommand(versionCmd())
	return root
}

// loadConfig 读取配置并应用命令行覆盖
func (g *globalConfig) loadConfig() (*cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.port != "" {
		cfg.Serial.Port = g.port
	}
	if g.baud > 0 {
		cfg.Serial.Baud = g.baud
	}
	return cfg, nil
}

// withDevice 打开串口执行一次性命令；单次命令不写交换日志
func (g *globalConfig) withDevice(cmd *cobra.Command, fn func(ctx context.Context, dev *app.Device, cfg *cfgpkg.Config) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	log := logging.CLILogger(g.verbose)
	defer func() { _ = log.Sync() }()

	_, m := app.NewMetrics()
	dev, err := app.OpenDevice(cfg, m, nil, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("close serial port failed", zap.Error(err))
		}
	}()
	return fn(cmd.Context(), dev, cfg)
}

func serveCmd(g *globalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service in front of the arm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			log, err := logging.InitLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			zap.ReplaceGlobals(log)
			return bootstrap.Run(cmd.Context(), cfg, log)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), bootstrap.Version)
		},
	}
}

func printJSON(w io.Writer, data interface{}) error {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(buf))
	return err
}

// commandTimeout 单次命令的整体上限
const commandTimeout = 10 * time.Second
