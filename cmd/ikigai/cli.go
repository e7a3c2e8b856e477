package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BerylCAtieno/ikigai-coach/internal/advice"
	"github.com/BerylCAtieno/ikigai-coach/internal/config"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/kvstore"
	"github.com/BerylCAtieno/ikigai-coach/internal/logging"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"go.uber.org/zap"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// CLI holds the flags and the lazily built collaborators shared by every
// subcommand. Tests replace the collaborators before running a command.
type CLI struct {
	serverURL  string
	dataDir    string
	recordPath string
	model      string
	timeout    time.Duration
	verbose    bool

	out     io.Writer
	store   kvstore.Store
	gen     gateway.Generator
	clip    advice.Clipboard
	confirm func(label string) (bool, error)
	logger  *zap.Logger
}

func newCLI() *CLI {
	return &CLI{
		out:     os.Stdout,
		clip:    systemClipboard{},
		confirm: promptConfirm,
	}
}

// initialize opens the local store and picks the generator: the HTTP
// client when a server URL is given, the in-process gateway otherwise.
func (c *CLI) initialize() error {
	if c.logger == nil {
		level := "warn"
		if c.verbose {
			level = "debug"
		}
		logger, err := logging.New(level, true)
		if err != nil {
			return err
		}
		c.logger = logger
	}

	if c.store == nil {
		store, err := kvstore.NewFile(c.dataDir)
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}
		c.store = store
	}

	if c.gen == nil {
		if c.serverURL != "" {
			c.gen = gateway.NewClient(c.serverURL, c.timeout)
		} else {
			c.gen = gateway.New(config.APIKeyFromEnv, gateway.GeminiFactory(c.model), nil, c.logger.Named("gateway"))
		}
	}
	return nil
}

// loadRecord reads the record file, seeding it with the defaults when it
// does not exist yet.
func (c *CLI) loadRecord() (models.IkigaiRecord, error) {
	raw, err := os.ReadFile(c.recordPath)
	if errors.Is(err, os.ErrNotExist) {
		return models.DefaultRecord(), nil
	}
	if err != nil {
		return models.IkigaiRecord{}, fmt.Errorf("read record: %w", err)
	}
	var rec models.IkigaiRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.IkigaiRecord{}, fmt.Errorf("parse record %s: %w", c.recordPath, err)
	}
	return rec, nil
}

func (c *CLI) saveRecord(rec models.IkigaiRecord) error {
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if dir := filepath.Dir(c.recordPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create record dir: %w", err)
		}
	}
	if err := os.WriteFile(c.recordPath, append(raw, '\n'), 0644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (c *CLI) printRecord(rec models.IkigaiRecord) {
	for _, f := range models.AllFields {
		v := rec.Get(f)
		if v == "" {
			v = yellow("(empty)")
		}
		fmt.Fprintf(c.out, "%s %s\n  %s\n", bold(f.Label()), cyan("["+string(f)+"]"), v)
	}
}

func promptConfirm(label string) (bool, error) {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
