package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"barbeapp/internal/auth"
	"barbeapp/internal/config"
	"barbeapp/internal/database"
	"barbeapp/internal/logging"
	"barbeapp/internal/models"

	"gopkg.in/yaml.v3"
)

type seedUser struct {
	Name     string       `yaml:"name"`
	Email    string       `yaml:"email"`
	Provider bool         `yaml:"provider"`
	Avatar   *models.File `yaml:"avatar"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	usersPath := flag.String("users", "configs/users.yaml", "path to users seed file")
	printTokens := flag.Bool("tokens", true, "print a bearer token per seeded user")
	flag.Parse()

	if err := run(*configPath, *usersPath, *printTokens); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath, usersPath string, printTokens bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	data, err := os.ReadFile(usersPath)
	if err != nil {
		return fmt.Errorf("read users: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse users: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetFilesURL(cfg.App.FilesURL)

	ctx := context.Background()
	for _, su := range seed.Users {
		user := &models.User{Name: su.Name, Email: su.Email, Provider: su.Provider}
		if su.Avatar != nil && su.Avatar.Path != "" {
			if err := db.CreateFile(ctx, su.Avatar); err != nil {
				logger.Warn().Err(err).Str("path", su.Avatar.Path).Msg("avatar not stored")
			} else {
				user.AvatarID = &su.Avatar.ID
			}
		}

		if err := db.UpsertUser(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		logger.Info().Int64("id", user.ID).Str("email", user.Email).Bool("provider", user.Provider).Msg("user seeded")

		if printTokens {
			token, err := auth.MakeToken(user.ID, cfg.API.Auth.JWTSecret, cfg.API.Auth.TokenTTL)
			if err != nil {
				return fmt.Errorf("token for %s: %w", su.Email, err)
			}
			fmt.Printf("%d\t%s\t%s\n", user.ID, user.Email, token)
		}
	}
	return nil
}
