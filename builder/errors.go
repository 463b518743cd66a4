package builder

import "errors"

var (
	ErrConfigError          = errors.New("configuration error occurred")
	ErrNoConfigs            = errors.New("no configuration files provided")
	ErrUnexpectedOutputPath = errors.New("unexpected output path provided")
	ErrToolNotFound         = errors.New("tool not found")
)
