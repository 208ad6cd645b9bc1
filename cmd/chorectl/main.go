// Command chorectl inspects a chorebot data store offline.
//
//	chorectl [-config path | -driver d -path p] chats
//	chorectl ... chores [-chat id]
//	chorectl ... leaderboard -chat id
//
// Badger holds an exclusive lock, so stop the bot before inspecting a
// badger store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"chorebot/internal/chores"
	"chorebot/internal/config"
	"chorebot/internal/storage"
	logx "chorebot/pkg/logx"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
)

var errUsage = errors.New("usage: chorectl [-config path] [-driver name] [-path p] <chats|chores|leaderboard> [-chat id]")

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		color.Error.Println(err.Error())
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("chorectl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfgPath := fs.String("config", "", "bot config file; selects driver and path")
	driver := fs.String("driver", "", "storage driver (file, sqlite, badger)")
	path := fs.String("path", "", "store path")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return errUsage
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	sub := flag.NewFlagSet(cmd, flag.ContinueOnError)
	sub.SetOutput(io.Discard)
	chatID := sub.Int64("chat", 0, "chat id")
	if err := sub.Parse(rest); err != nil {
		return errUsage
	}

	sc, err := storeConfig(*cfgPath, *driver, *path)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(sc)
	if err != nil {
		return err
	}

	switch cmd {
	case "chats":
		renderChats(out, snap)
	case "chores":
		renderChores(out, snap, *chatID)
	case "leaderboard":
		if *chatID == 0 {
			return fmt.Errorf("leaderboard needs -chat")
		}
		st, ok := snap.Chats[*chatID]
		if !ok {
			return fmt.Errorf("no data for chat %s", strconv.FormatInt(*chatID, 10))
		}
		renderLeaderboard(out, st)
	default:
		return errUsage
	}
	return nil
}

// storeConfig resolves the store from flags, falling back to the bot's
// config file and environment.
func storeConfig(cfgPath, driver, path string) (storage.Config, error) {
	sc := storage.Config{Driver: driver, Path: path}
	if cfgPath == "" && driver != "" {
		return sc, nil
	}
	m := config.NewConfigManager(cfgPath)
	cfg, err := m.Parse()
	if err != nil {
		return storage.Config{}, err
	}
	if sc.Driver == "" {
		sc.Driver = cfg.Storage.Driver
	}
	if sc.Path == "" {
		sc.Path = cfg.Storage.Path
	}
	return sc, nil
}

func loadSnapshot(sc storage.Config) (chores.Snapshot, error) {
	st, err := storage.Open(sc, logx.NewConsole("warn"))
	if err != nil {
		return chores.Snapshot{}, err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, ok, err := st.Load(ctx)
	if err != nil {
		return chores.Snapshot{}, err
	}
	if !ok {
		return chores.Snapshot{Chats: map[int64]*chores.ChatState{}}, nil
	}
	return snap, nil
}
