package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/arhyth/ledgerxgo"
	"github.com/rs/zerolog"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfp := flag.String("config", "config.yml", "path to configuration file")
	dir := flag.String("dir", "testdata", "directory holding init_db.sql and seed.yml")
	flag.Parse()

	cfg, err := ledgerxgo.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config file")
	}

	lh, err := ledgerxgo.NewLocalHelper(cfg, *dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting local helper")
	}
	if _, err = lh.InitDB(); err != nil {
		logger.Fatal().Err(err).Msg("error initializing database")
	}
	fx, err := ledgerxgo.LoadFixture(filepath.Join(lh.Dir, "seed.yml"))
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading fixture")
	}
	if err = lh.Seed(fx); err != nil {
		logger.Fatal().Err(err).Msg("error seeding database")
	}
	logger.Info().Msg("database seeded")
}
