package config

import (
	"fmt"
	"os"

	"hotel_ops_bot/internal/domain/shift"

	"gopkg.in/yaml.v3"
)

type scheduleFile struct {
	Shifts []struct {
		Number int    `yaml:"number"`
		Code   string `yaml:"code"`
		Name   string `yaml:"name"`
		Start  string `yaml:"start"`
		End    string `yaml:"end"`
	} `yaml:"shifts"`
}

// LoadSchedule returns the built-in three-shift schedule when path is empty.
func LoadSchedule(path string) (*shift.Schedule, error) {
	if path == "" {
		return shift.DefaultSchedule(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shift schedule %s: %w", path, err)
	}
	return ParseSchedule(data)
}

// ParseSchedule decodes and validates a YAML shift schedule.
func ParseSchedule(data []byte) (*shift.Schedule, error) {
	var f scheduleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse shift schedule: %w", err)
	}

	windows := make([]shift.Window, 0, len(f.Shifts))
	for _, s := range f.Shifts {
		start, err := shift.ParseTimeOfDay(s.Start)
		if err != nil {
			return nil, fmt.Errorf("shift %s start: %w", s.Code, err)
		}
		end, err := shift.ParseTimeOfDay(s.End)
		if err != nil {
			return nil, fmt.Errorf("shift %s end: %w", s.Code, err)
		}
		windows = append(windows, shift.Window{
			Number: s.Number,
			Code:   s.Code,
			Name:   s.Name,
			Start:  start,
			End:    end,
		})
	}
	return shift.NewSchedule(windows)
}
