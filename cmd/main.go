package main

import (
	"stablevault/internal/app"

	"github.com/sirupsen/logrus"
)

// @title StableVault API
// @version 1.0
// @description Collateralized stable-asset vaults: positions, oracle prices and liquidations.
// @BasePath /api/v1
func main() {
	if err := app.Run(); err != nil {
		logrus.Fatalf("application error: %v", err)
	}
}
