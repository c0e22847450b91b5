// Command mint-token signs a user in by open id and prints a fresh access/refresh token pair.
// Identity verification happens upstream; this is the operator path for local and staging use.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/storetrail/storetrail-backend/internal/users"
	"github.com/storetrail/storetrail-backend/pkg/auth"
	"github.com/storetrail/storetrail-backend/pkg/auth/session"
	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/db"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	"github.com/storetrail/storetrail-backend/pkg/migrate"
	"github.com/storetrail/storetrail-backend/pkg/redis"
)

type tokenPair struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func main() {
	openID := flag.String("open-id", "", "identity provider subject to sign in (required)")
	name := flag.String("name", "", "display name to record on first sign-in")
	email := flag.String("email", "", "email to record on first sign-in")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "mint-token"})
	_ = godotenv.Load()

	if strings.TrimSpace(*openID) == "" {
		fmt.Fprintln(os.Stderr, "missing -open-id")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.ForService("mint-token", cfg.App)

	identity := users.Identity{OpenID: *openID, Name: optional(*name), Email: optional(*email), LoginMethod: optional("cli")}
	pair, err := mint(context.Background(), cfg, logg, identity)
	if err != nil {
		logg.Error(context.Background(), "failed to mint token", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pair); err != nil {
		os.Exit(1)
	}
}

func mint(ctx context.Context, cfg *config.Config, logg *logger.Logger, identity users.Identity) (pair *tokenPair, err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return nil, err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, err
	}
	usersSvc, err := users.NewService(users.NewRepository(dbClient.DB()), cfg.Auth.OwnerOpenID)
	if err != nil {
		return nil, err
	}

	user, err := usersSvc.SignIn(ctx, identity)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	refresh, err := sessions.Issue(ctx, accessID)
	if err != nil {
		return nil, err
	}
	access, err := auth.Sign(cfg.JWT, time.Now(), auth.Identity{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: accessID,
	})
	if err != nil {
		return nil, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": user.Role}), "minted session tokens")
	return &tokenPair{
		UserID:       user.ID.String(),
		Role:         string(user.Role),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
