// cmd/aircontrolx/config.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/sim"
	"github.com/humaa-taj/aircontrolx/util"
)

// Config holds everything the engine needs besides the schedule itself.
// It is read from an optional JSON file; command-line flags override it.
type Config struct {
	Sim sim.Config `json:"sim"`

	Schedule   string `json:"schedule"`
	PipeDir    string `json:"pipe_dir"`
	Codec      string `json:"codec"`
	OutboxSize int    `json:"outbox_size"`

	// Only used with -standalone.
	Autopay util.Duration `json:"autopay"`
}

func defaultConfig() Config {
	return Config{
		Sim:        sim.DefaultConfig(),
		Schedule:   "schedule.json",
		PipeDir:    defaultPipeDir(),
		Codec:      "legacy",
		OutboxSize: 256,
		Autopay:    util.Duration(3 * time.Second),
	}
}

func defaultPipeDir() string {
	return os.TempDir()
}

// loadConfig returns the defaults overridden by whatever is given in the
// file at path, if path isn't empty.
func loadConfig(path string, lg *log.Logger) (Config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()

	if err := util.UnmarshalJSON(f, &c); err != nil {
		return c, err
	}
	lg.Infof("%s: loaded config", path)

	if c.Sim.Horizon <= 0 {
		c.Sim.Horizon = sim.DefaultConfig().Horizon
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = defaultConfig().OutboxSize
	}
	return c, nil
}

// applyFlags overrides the config with any flags given on the command
// line.
func (c *Config) applyFlags() error {
	if *scheduleFile != "" {
		c.Schedule = *scheduleFile
	}
	if *pipeDir != "" {
		c.PipeDir = *pipeDir
	}
	if *codecName != "" {
		c.Codec = *codecName
	}
	if *policy != "" {
		p, err := sim.ParseViolationPolicy(*policy)
		if err != nil {
			return err
		}
		c.Sim.ViolationPolicy = p
	}
	if *seed != 0 {
		c.Sim.Seed = *seed
	}
	return nil
}

func (c *Config) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(c)
}
