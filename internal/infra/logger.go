package infra

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger returns a production (JSON) or development (console) zap logger.
func NewLogger(mode string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch mode {
	case "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("building %s logger: %w", mode, err)
	}
	return logger, nil
}
