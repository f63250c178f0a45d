package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lingotrail/go-server/internal/atlas"
	"github.com/lingotrail/go-server/internal/httpserver"
	"github.com/lingotrail/go-server/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	repo, err := atlas.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load country dataset")
	}
	countries, languages := repo.Stats()
	log.Info().Int("countries", countries).Int("languages", languages).Msg("atlas loaded")

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	mem := store.NewMemoryStore()
	srv := httpserver.New(repo, mem, db)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting lingotrail server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
