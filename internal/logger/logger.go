// Package logger builds the application zap logger: console encoding at
// debug level in development, JSON at info level otherwise.
package logger

import "go.uber.org/zap"

func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
