//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"fmt"
	"os"
	"strconv"
)

// FromEnv overrides config values from LINESORT_* environment variables.
func FromEnv(config *Config) error {
	if v := os.Getenv("LINESORT_BATCH_SIZE"); v != "" {
		batchSize, err := parsePositiveInt("LINESORT_BATCH_SIZE", v)
		if err != nil {
			return err
		}
		config.Sort.BatchSize = batchSize
	}

	if v := os.Getenv("LINESORT_STORE_DIR"); v != "" {
		config.Sort.StoreDir = v
	}

	if v := os.Getenv("LINESORT_RETAIN_STORE"); v != "" {
		config.Sort.RetainStore = v
	}

	if enabled(os.Getenv("LINESORT_AVOID_MMAP")) {
		config.Sort.AvoidMmap = true
	}

	if enabled(os.Getenv("LINESORT_ASYNC_SPILL")) {
		config.Sort.AsyncSpill = true
	}

	if v := os.Getenv("LINESORT_READ_BUFFER_SIZE"); v != "" {
		size, err := parsePositiveInt("LINESORT_READ_BUFFER_SIZE", v)
		if err != nil {
			return err
		}
		config.Sort.ReadBufferSize = size
	}

	if v := os.Getenv("LINESORT_WRITE_BUFFER_SIZE"); v != "" {
		size, err := parsePositiveInt("LINESORT_WRITE_BUFFER_SIZE", v)
		if err != nil {
			return err
		}
		config.Sort.WriteBufferSize = size
	}

	if v := os.Getenv("LINESORT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("LINESORT_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	if v := os.Getenv("LINESORT_METRICS_TEXTFILE"); v != "" {
		config.Monitoring.TextfilePath = v
	}

	return nil
}

func parsePositiveInt(varName, value string) (int, error) {
	asInt, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s as int: %w", varName, err)
	}
	if asInt <= 0 {
		return 0, fmt.Errorf("%s must be an integer greater than 0. Got: %v", varName, value)
	}

	return asInt, nil
}

func enabled(value string) bool {
	if value == "" {
		return false
	}

	if value == "on" ||
		value == "enabled" ||
		value == "1" ||
		value == "true" {
		return true
	}

	return false
}
