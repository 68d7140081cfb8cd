package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nais/stagehook/pkg/eventclient"
	"github.com/nais/stagehook/pkg/logging"
)

func events(cfg *Config) ([]eventclient.EventDocument, error) {
	if len(cfg.File) == 0 {
		docs := make([]eventclient.EventDocument, 0, len(cfg.Type))
		for i, eventType := range cfg.Type {
			data, err := eventclient.StageEvent(eventclient.Stage{
				Type:          eventType,
				Application:   cfg.Application,
				Name:          cfg.Stage,
				ExecutionID:   cfg.ExecutionID,
				CloudProvider: cfg.CloudProvider,
			}, time.Now())
			if err != nil {
				return nil, err
			}
			doc, err := eventclient.NewEventDocument("flags", i+1, data)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", i+1, err)
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	vars := eventclient.Variables{}
	if len(cfg.VariablesFile) > 0 {
		fromFile, err := eventclient.VariablesFromFile(cfg.VariablesFile)
		if err != nil {
			return nil, err
		}
		vars = fromFile
	}
	for key, val := range eventclient.ParseVariables(cfg.Variables) {
		log.Infof("Setting template variable '%s' to '%v'", key, val)
		vars[key] = val
	}

	docs := make([]eventclient.EventDocument, 0)
	for _, path := range cfg.File {
		fromFile, err := eventclient.ReadEventFile(path, vars)
		if err != nil {
			var fileErr *eventclient.EventFileError
			if errors.As(err, &fileErr) {
				for _, line := range fileErr.Context {
					fmt.Fprintln(os.Stderr, line)
				}
			}
			return nil, err
		}
		docs = append(docs, fromFile...)
	}
	return docs, nil
}

func run() error {
	cfg, err := configuration()
	if err != nil {
		return err
	}

	err = logging.Setup("info", logging.FormatText)
	if err != nil {
		return err
	}

	docs, err := events(cfg)
	if err != nil {
		return err
	}

	client := &eventclient.Client{
		URL: cfg.URL,
		PSK: cfg.PSK,
	}

	for _, doc := range docs {
		if cfg.PrintPayload {
			fmt.Println(string(doc.Data))
		}

		if cfg.DryRun {
			log.Infof("%s (%s, stage %q): not submitted, dry run", doc, doc.Event.Type, doc.Event.StageName)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		response, err := client.Submit(ctx, doc.Data)
		cancel()
		if err != nil {
			return fmt.Errorf("%s: %w", doc, err)
		}

		log.Infof("event id...: %s", response.EventID)
		log.Infof("status.....: %d", response.StatusCode)
		log.Infof("result.....: %s (%s)", response.Result, response.State)
		if response.DeploymentID != 0 {
			log.Infof("deployment.: %d", response.DeploymentID)
		}
		if len(response.Reason) > 0 {
			log.Infof("reason.....: %s", response.Reason)
		}
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Errorf("fatal: %s", err)
		os.Exit(1)
	}
}
