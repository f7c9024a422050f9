package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/server/app"
	"github.com/KreatechIT/mrs-sub000/internal/shared/logger"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	level := os.Getenv("MRS_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	zl, err := logger.New(level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	a, err := app.New(version, buildDate, zl)
	if err != nil {
		zl.Fatal("startup failed", zap.Error(err))
	}
	if err := a.Run(); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}
