// Command memectl uploads, lists and deletes memes through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/memegen/internal/client"
	"github.com/timmy/memegen/internal/logger"
)

const usage = `usage: memectl [flags] <command> [args]

commands:
  upload <file>...   upload images and print the created memes
  list               list memes (see -page, -limit)
  get <id>           show one meme
  delete <id>...     delete memes
  health             show API liveness

flags:
`

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "memectl",
	})
	logger.SetDefaultLogger(appLogger)

	baseURL := flag.String("url", envOr("MEMEGEN_URL", "http://localhost:5000"), "API base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	page := flag.Int("page", 1, "Page number for list")
	limit := flag.Int("limit", 10, "Page size for list")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(client.Config{BaseURL: *baseURL, Timeout: *timeout})
	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "upload":
		err = upload(ctx, c, args)
	case "list":
		var res *client.ListResponse
		if res, err = c.List(ctx, *page, *limit); err == nil {
			err = printJSON(res)
		}
	case "get":
		if len(args) != 1 {
			flag.Usage()
			os.Exit(2)
		}
		var meme interface{}
		if meme, err = c.Get(ctx, args[0]); err == nil {
			err = printJSON(meme)
		}
	case "delete":
		err = remove(ctx, c, args)
	case "health":
		var h *client.Health
		if h, err = c.Health(ctx); err == nil {
			err = printJSON(h)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		appLogger.WithError(err).WithField("command", cmd).Error("Command failed")
		os.Exit(1)
	}
}

func upload(ctx context.Context, c *client.Client, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("upload needs at least one file")
	}
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		meme, err := c.Upload(ctx, name, "", f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := printJSON(meme); err != nil {
			return err
		}
	}
	return nil
}

func remove(ctx context.Context, c *client.Client, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("delete needs at least one id")
	}
	for _, id := range ids {
		if _, err := c.Delete(ctx, id); err != nil {
			if client.IsNotFound(err) {
				logger.Warn("Meme %s not found", id)
				continue
			}
			return fmt.Errorf("%s: %w", id, err)
		}
		logger.Info("Deleted meme %s", id)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
