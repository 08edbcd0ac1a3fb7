package main

import (
	"flag"
	"fmt"
	"os"

	"cine-shelf/config"
	"cine-shelf/logging"
	"cine-shelf/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		configFile = flag.String("config", "", "Config file")
		dataPath   = flag.String("data", "", "Path to database directory (defaults to storage.data_path)")
		command    = flag.String("cmd", "up", "Migration command: up, down, status, version, reset")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if *dataPath == "" {
		*dataPath = cfg.Storage.DataPath
	}

	if err := run(*dataPath, *command); err != nil {
		log.Fatal().Err(err).Str("cmd", *command).Msg("Migration command failed")
	}
}

func run(dataPath, command string) error {
	sqliteStorage := storage.NewSQLiteStorage(dataPath)
	if err := sqliteStorage.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer sqliteStorage.Close()

	switch command {
	case "up":
		if err := sqliteStorage.RunMigrations(); err != nil {
			return err
		}
		fmt.Println("Migrations completed successfully")

	case "down":
		if err := sqliteStorage.RollbackMigration(); err != nil {
			return err
		}
		fmt.Println("Migration rolled back successfully")

	case "status":
		migrationManager := sqliteStorage.GetMigrationManager()
		if err := migrationManager.Initialize(); err != nil {
			return err
		}
		if err := migrationManager.Status(os.Stdout); err != nil {
			return err
		}

	case "version":
		version, err := sqliteStorage.GetDatabaseVersion()
		if err != nil {
			return err
		}
		fmt.Printf("Database version: %d\n", version)

	case "reset":
		if err := sqliteStorage.ResetDatabase(); err != nil {
			return err
		}
		fmt.Println("Database reset completed successfully")

	default:
		return fmt.Errorf("unknown command %q (available: up, down, status, version, reset)", command)
	}
	return nil
}
