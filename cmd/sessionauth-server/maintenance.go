package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MForofontov/sessionauth/internal/config"
	"github.com/MForofontov/sessionauth/internal/database"
	"github.com/MForofontov/sessionauth/password"
	"github.com/MForofontov/sessionauth/revocation"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "apply the Postgres revocation schema",
		Action: migrate,
	}
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Revocation.Backend != config.BackendPostgres {
		return fmt.Errorf("migrate requires the postgres backend, configured backend is %q", cfg.Revocation.Backend)
	}

	db, err := database.Connect(c.Context, cfg.Revocation.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := revocation.Migrate(c.Context, db.DB); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "revocation schema is up to date")
	return nil
}

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:   "prune",
		Usage:  "delete revocation entries whose token has expired",
		Action: prune,
	}
}

func prune(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, closeStore, err := openStore(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	p, ok := store.(revocation.Pruner)
	if !ok {
		fmt.Fprintf(c.App.Writer, "%s backend expires entries itself; nothing to prune\n", cfg.Revocation.Backend)
		return nil
	}
	removed, err := p.Prune(c.Context, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "pruned %d entries\n", removed)
	return nil
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "print an Argon2id hash for a users[].password_hash entry",
		ArgsUsage: "(password is read from stdin)",
		Action:    hashPassword,
	}
}

func hashPassword(c *cli.Context) error {
	line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	if err != nil && line == "" {
		return errors.New("read password from stdin: no input")
	}
	pw := strings.TrimRight(line, "\r\n")

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, hash)
	return nil
}

func mintCommand() *cli.Command {
	return &cli.Command{
		Name:  "mint",
		Usage: "issue a token pair for a subject (debugging)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Required: true, Usage: "sub claim"},
		},
		Action: mint,
	}
}

type mintOutput struct {
	Subject          string    `json:"subject"`
	AccessToken      string    `json:"access_token"`
	AccessID         string    `json:"access_jti"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshID        string    `json:"refresh_jti"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func mint(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	engine, err := newEngine(cfg, revocation.NewMemoryStore(), nil, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	pair, err := engine.Issue(c.Context, c.String("subject"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(mintOutput{
		Subject:          pair.Access.Subject,
		AccessToken:      pair.Access.Token,
		AccessID:         pair.Access.ID,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Token,
		RefreshID:        pair.Refresh.ID,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	})
}
