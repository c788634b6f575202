// Package main is the entry point for bridge-fee-tracker, a CLI and service
// that compares cross-chain transfer fees across bridge protocols.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/yourorg/bridge-fee-tracker/internal/compare"
	"github.com/yourorg/bridge-fee-tracker/internal/config"
	"github.com/yourorg/bridge-fee-tracker/internal/export"
	"github.com/yourorg/bridge-fee-tracker/internal/fetch"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
	"github.com/yourorg/bridge-fee-tracker/internal/otel"
	"github.com/yourorg/bridge-fee-tracker/internal/report"
	"github.com/yourorg/bridge-fee-tracker/internal/tracker"
)

const version = "1.0.0"

// cfg is loaded once in the app's Before hook and shared by all commands.
var cfg *config.Config

var (
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "log verbosity: debug, info, warn or error",
		EnvVars: []string{"LOG_LEVEL"},
	}
	logFormatFlag = &cli.StringFlag{
		Name:    "log-format",
		Usage:   "log format: text or json",
		EnvVars: []string{"LOG_FORMAT"},
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "report format: text or json",
		Value:   report.FormatText,
	}

	tokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "token symbol to bridge",
		Value: "USDC",
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "source chain",
		Value: "ethereum",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "destination chain",
		Value: "optimism",
	}
	amountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "transfer amount in display units",
		Value: "1000",
	}

	scenariosFileFlag = &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "YAML file with the scenario list",
		EnvVars: []string{"SCENARIOS_FILE"},
	}
	delayFlag = &cli.DurationFlag{
		Name:  "delay",
		Usage: "pause between scenario runs",
	}

	portFlag = &cli.StringFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "HTTP port to listen on",
		EnvVars: []string{"PORT"},
	}
)

var compareCommand = cli.Command{
	Name:   "compare",
	Usage:  "compare bridge fees for a single route",
	Flags:  []cli.Flag{tokenFlag, fromFlag, toFlag, amountFlag},
	Action: compareAction,
}

var scenariosCommand = cli.Command{
	Name:   "scenarios",
	Usage:  "run the scenario list and print one comparison per run",
	Flags:  []cli.Flag{scenariosFileFlag, delayFlag},
	Action: scenariosAction,
}

var serveCommand = cli.Command{
	Name:   "serve",
	Usage:  "serve fee comparisons over HTTP",
	Flags:  []cli.Flag{portFlag},
	Action: serveAction,
}

func main() {
	app := cli.NewApp()
	app.Name = "bridge-fee-tracker"
	app.Usage = "compare cross-chain bridge fees across protocols"
	app.Version = version
	app.Flags = []cli.Flag{
		logLevelFlag, logFormatFlag, outputFlag,
		tokenFlag, fromFlag, toFlag, amountFlag,
	}
	app.Commands = append(app.Commands, &compareCommand, &scenariosCommand, &serveCommand)
	app.Before = func(ctx *cli.Context) error {
		cfg = config.Load()
		if ctx.IsSet("log-level") {
			cfg.LogLevel = ctx.String("log-level")
		}
		if ctx.IsSet("log-format") {
			cfg.LogFormat = ctx.String("log-format")
		}
		setupLogging(cfg)
		return cfg.Validate()
	}
	// Running without a subcommand compares the default route.
	app.Action = compareAction

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

// setupLogging configures logrus from the loaded configuration. Logs go to
// stderr so stdout stays clean for reports.
func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stderr)

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// requestFromFlags builds a quote request from CLI flags. Symbols are
// normalized so `--token usdc --from Ethereum` works.
func requestFromFlags(c *cli.Context) (model.QuoteRequest, error) {
	amount, err := decimal.NewFromString(c.String("amount"))
	if err != nil {
		return model.QuoteRequest{}, fmt.Errorf("amount %q is not numeric", c.String("amount"))
	}
	return model.QuoteRequest{
		Token:       strings.ToUpper(c.String("token")),
		SourceChain: strings.ToLower(c.String("from")),
		DestChain:   strings.ToLower(c.String("to")),
		Amount:      amount,
	}, nil
}

// newExporter builds the webhook exporter; without a webhook URL it is inert.
func newExporter(cfg *config.Config) *export.Exporter {
	return export.New(export.Config{
		Enabled:    cfg.ExportWebhookURL != "",
		WebhookURL: cfg.ExportWebhookURL,
		APIKey:     cfg.ExportAPIKey,
		Interval:   cfg.ExportInterval,
		BatchSize:  cfg.ExportBatchSize,
	})
}

func compareAction(c *cli.Context) error {
	req, err := requestFromFlags(c)
	if err != nil {
		return err
	}

	shutdown, err := otel.InitTracer(c.Context, cfg)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	exporter := newExporter(cfg)
	defer exporter.Stop()

	tr := tracker.New(cfg, fetch.NewSources(cfg)...)
	printer := report.NewPrinter(c.String("output"), os.Stdout)

	comparison, err := tr.Compare(c.Context, req)
	if len(comparison.Rows) == 0 && err != nil {
		return err
	}

	if perr := printer.Comparison(comparison); perr != nil {
		return perr
	}
	exporter.Add(comparison)

	// Partial results print fine; only a fully failed comparison is an error.
	return err
}

func scenariosAction(c *cli.Context) error {
	if c.IsSet("file") {
		cfg.ScenariosFile = c.String("file")
	}
	scenarios, err := config.LoadScenarios(cfg.ScenariosFile)
	if err != nil {
		return err
	}

	delay := cfg.ScenarioDelay
	if c.IsSet("delay") {
		delay = c.Duration("delay")
	}

	shutdown, err := otel.InitTracer(c.Context, cfg)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	exporter := newExporter(cfg)
	defer exporter.Stop()

	tr := tracker.New(cfg, fetch.NewSources(cfg)...)
	printer := report.NewPrinter(c.String("output"), os.Stdout)

	logrus.Infof("Running %d scenarios with %s between runs", len(scenarios), delay)
	return tr.RunScenarios(c.Context, scenarios, delay, func(comparison compare.Comparison) {
		if perr := printer.Comparison(comparison); perr != nil {
			logrus.WithError(perr).Error("Failed to render comparison")
		}
		printer.Textf("\n")
		exporter.Add(comparison)
	})
}
