// Command migrate applies or reverts the embedded schema migrations using
// the same DB_* variables as the server.
package main

import (
	"flag"

	"github.com/iliyamo/templatehub/internal/config"
	"github.com/iliyamo/templatehub/internal/database"
)

func main() {
	down := flag.Bool("down", false, "revert every migration instead of applying them")
	flag.Parse()

	cfg := config.Load()
	log := config.NewLogger(cfg)

	v, err := database.Migrate(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, *down)
	if err != nil {
		log.WithError(err).Fatal("migrate")
	}
	log.WithField("version", v).WithField("down", *down).Info("migrations applied")
}
