package main

import (
	"os"

	"github.com/onurcolak/wa-pairing-service/pkg/logger"

	_ "github.com/onurcolak/wa-pairing-service/docs" // swagger docs
)

// @title WhatsApp Pairing Service API
// @version 1.0
// @description Generates WhatsApp companion pairing codes over a single managed connection

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
