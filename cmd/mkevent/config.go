package main

import (
	"errors"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nais/stagehook/pkg/eventclient"
)

type Config struct {
	Application   string        `json:"application"`
	CloudProvider string        `json:"cloud-provider"`
	DryRun        bool          `json:"dry-run"`
	ExecutionID   string        `json:"execution-id"`
	File          []string      `json:"file"`
	PrintPayload  bool          `json:"print-payload"`
	PSK           string        `json:"psk"`
	Stage         string        `json:"stage"`
	Timeout       time.Duration `json:"timeout"`
	Type          []string      `json:"type"`
	URL           string        `json:"url"`
	Variables     []string      `json:"var"`
	VariablesFile string        `json:"vars"`
}

var help = `
mkevent builds pipeline stage events and submits them to a stagehook server.
`

func init() {
	flag.ErrHelp = errors.New(help)

	// Automatically read configuration options from environment variables.
	viper.SetEnvPrefix("MKEVENT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.SetConfigName("mkevent")

	// Provide command-line flags
	flag.String("application", eventclient.DefaultApplication, "Application owning the pipeline.")
	flag.String("cloud-provider", "kubernetes", "Cloud provider in the stage context.")
	flag.Bool("dry-run", false, "Build and validate events, but don't submit them.")
	flag.String("execution-id", "", "Pipeline execution ID.")
	flag.StringSlice("file", []string{}, "YAML or JSON file with one or more events. Can be specified multiple times.")
	flag.Bool("print-payload", false, "Print events to standard output.")
	flag.String("psk", "", "Pre-shared key accepted by the server.")
	flag.String("stage", eventclient.DefaultStage, "Stage name.")
	flag.Duration("timeout", time.Minute, "Timeout for each submitted event.")
	flag.StringSlice("type", []string{"orca:stage:starting", "orca:stage:complete"}, "Event types to build when no file is given, submitted in order.")
	flag.String("url", eventclient.DefaultURL, "URL of the stagehook event endpoint.")
	flag.StringSlice("var", []string{}, "Template variable in the form KEY=VALUE. Can be specified multiple times.")
	flag.String("vars", "", "File containing template variables.")
}

func decoderHook(dc *mapstructure.DecoderConfig) {
	dc.TagName = "json"
	dc.ErrorUnused = true
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func configuration() (*Config, error) {
	var err error
	var cfg Config

	err = viper.ReadInConfig()
	if err != nil {
		if err.(viper.ConfigFileNotFoundError) != err {
			return nil, err
		}
	}

	flag.Parse()

	err = viper.BindPFlags(flag.CommandLine)
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&cfg, decoderHook)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
