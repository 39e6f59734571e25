package main

import (
	"context"
	"fmt"
	"io"

	"github.com/brandonecarr/amosmiller-sub002/internal/cartsync"
	"github.com/brandonecarr/amosmiller-sub002/internal/config"
	"github.com/brandonecarr/amosmiller-sub002/internal/remote"
	"github.com/brandonecarr/amosmiller-sub002/internal/storage"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// userKey remembers the signed-in user between invocations.
const userKey = "cart-user"

type device interface {
	storage.DeviceStorage
	Close() error
}

// sharedDevice keeps a terminal's cart in Redis under its device id.
type sharedDevice struct {
	*storage.Redis
	client *redis.Client
}

func (d sharedDevice) Close() error {
	return d.client.Close()
}

type env struct {
	out     io.Writer
	device  device
	session *cartsync.Session
}

func newApp(out io.Writer) *cli.App {
	e := &env{out: out}

	return &cli.App{
		Name:  "cartctl",
		Usage: "inspect and edit the cart held on this device",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "cart.yaml", EnvVars: []string{"CART_CONFIG"}, Usage: "path to YAML config"},
			&cli.StringFlag{Name: "db", Usage: "device storage file (overrides config)"},
			&cli.StringFlag{Name: "device", Usage: "keep the cart in Redis under this device id"},
			&cli.StringFlag{Name: "api", Usage: "cart API base URL (overrides config)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log sync activity"},
		},
		Before:   e.open,
		After:    e.close,
		Commands: commands(e),
		Writer:   out,
	}
}

func (e *env) open(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("db"); v != "" {
		cfg.DeviceDB = v
	}
	if v := c.String("api"); v != "" {
		cfg.APIURL = v
	}
	if v := c.String("device"); v != "" {
		cfg.DeviceID = v
	}
	logger := log.StandardLogger()
	if c.Bool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}

	e.device, err = openDevice(background(c), cfg)
	if err != nil {
		return err
	}
	userID, _, err := e.device.Get(userKey)
	if err != nil {
		return fmt.Errorf("read signed-in user: %w", err)
	}

	client := remote.NewClient(remote.Config{BaseURL: cfg.APIURL, Timeout: cfg.CallTimeout})
	e.session = cartsync.Open(background(c), cartsync.Options{
		Storage:     e.device,
		Records:     client,
		Stock:       client,
		UserID:      userID,
		SyncDelay:   cfg.SyncDelay,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	})
	return nil
}

// close pushes whatever the command changed before the process exits.
func (e *env) close(c *cli.Context) error {
	if e.session != nil {
		e.session.Close()
		if msg := e.session.SyncError(); msg != "" {
			fmt.Fprintf(e.out, "warning: cart not synced: %s\n", msg)
		}
	}
	if e.device != nil {
		return e.device.Close()
	}
	return nil
}

func openDevice(ctx context.Context, cfg config.Config) (device, error) {
	if cfg.DeviceID == "" {
		db, err := storage.OpenSQLite(cfg.DeviceDB)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return sharedDevice{Redis: storage.NewRedis(client, cfg.DeviceID), client: client}, nil
}

func (e *env) remember(userID string) error {
	return e.device.Set(userKey, userID)
}

func background(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
