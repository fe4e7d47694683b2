// Copyright (c) 2024 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging

import (
	"log/slog"
	"os"
	"time"

	"import.name/sjournal"
)

// Init returns some kind of logger on error.
func Init(journal bool, level slog.Leveler) (*slog.Logger, error) {
	if !journal {
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(log)
		return log, nil
	}

	h, err := sjournal.NewHandler(journalOptions(level))
	if err != nil {
		return slog.Default(), err
	}

	log := slog.New(h)

	slog.SetDefault(log)
	slog.SetLogLoggerLevel(slog.LevelInfo)

	return log, nil
}

func journalOptions(level slog.Leveler) *sjournal.HandlerOptions {
	return &sjournal.HandlerOptions{
		Level:      level,
		Delimiter:  sjournal.ColonDelimiter,
		TimeFormat: time.RFC3339Nano,
	}
}
