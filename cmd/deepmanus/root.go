package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TimeCyber/DeepManus/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "deepmanus",
	Short:        "Multi-agent research workflow runtime",
	Long:         `deepmanus runs research workflows and streams their progress as normalized events, over HTTP or on the command line.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().String("observer", "", "observer for runtime events (noop, slog)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("observer", rootCmd.PersistentFlags().Lookup("observer"))
}

// envBindings maps config keys onto the environment names operators
// already use.
var envBindings = map[string]string{
	"server.port":            "PORT",
	"crawler.proxy":          "HTTP_PROXY",
	"browser.headless":       "CHROME_HEADLESS",
	"browser.chrome_path":    "CHROME_INSTANCE_PATH",
	"browser.proxy.server":   "CHROME_PROXY_SERVER",
	"browser.proxy.username": "CHROME_PROXY_USERNAME",
	"browser.proxy.password": "CHROME_PROXY_PASSWORD",
	"browser.history_dir":    "BROWSER_HISTORY_DIR",
	"tracing.otlp_endpoint":  "OTEL_EXPORTER_OTLP_ENDPOINT",
	"upstream.endpoint":      "DEEPMANUS_UPSTREAM",
}

func initConfig() {
	viper.AutomaticEnv()
	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}
}

// loadConfig reads the config file, if any, and applies environment and
// flag overrides on top.
func loadConfig() (*app.Config, error) {
	cfg := app.DefaultConfig()
	if cfgFile != "" {
		loaded, err := app.LoadConfig(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if viper.IsSet("server.port") {
		cfg.Server.Port = viper.GetInt("server.port")
	}
	if viper.IsSet("crawler.proxy") {
		cfg.Crawler.Proxy = viper.GetString("crawler.proxy")
	}
	if viper.IsSet("browser.headless") {
		headless := viper.GetBool("browser.headless")
		cfg.Browser.Headless = &headless
	}
	if v := viper.GetString("browser.chrome_path"); v != "" {
		cfg.Browser.ChromePath = v
	}
	if v := viper.GetString("browser.proxy.server"); v != "" {
		cfg.Browser.Proxy.Server = v
	}
	if v := viper.GetString("browser.proxy.username"); v != "" {
		cfg.Browser.Proxy.Username = v
	}
	if v := viper.GetString("browser.proxy.password"); v != "" {
		cfg.Browser.Proxy.Password = v
	}
	if v := viper.GetString("browser.history_dir"); v != "" {
		cfg.Browser.HistoryDir = v
	}
	if v := viper.GetString("tracing.otlp_endpoint"); v != "" {
		cfg.Tracing.OTLPEndpoint = v
		cfg.Tracing.Enabled = true
	}
	if v := viper.GetString("upstream.endpoint"); v != "" {
		cfg.Upstream.Endpoint = v
	}
	if v := viper.GetString("observer"); v != "" {
		cfg.Observer = v
	}
	if viper.GetBool("debug") {
		cfg.Debug = true
	}

	if cfg.Server.Port <= 0 {
		return nil, fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	return &cfg, nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
