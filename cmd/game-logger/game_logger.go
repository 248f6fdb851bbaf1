package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"vg-game-logger-go/internal/app/artwork"
	"vg-game-logger-go/internal/app/cache"
	"vg-game-logger-go/internal/app/config"
	"vg-game-logger-go/internal/app/domain"
	"vg-game-logger-go/internal/app/igdb"
	"vg-game-logger-go/internal/app/logging"
)

const (
	backdropRadius = 20
	retryDelay     = 200 * time.Millisecond
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the exit code so deferred cleanup runs before the process exits.
func realMain(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	outDir := flags.String("out", "", "write each cover and a blurred backdrop as PNG into this directory")
	screenshots := flags.Bool("screenshots", false, "fetch screenshots for each record")
	if err := flags.Parse(args[1:]); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	loggers, logFile, err := logging.Open(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return 1
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, loggers, args[0], flags.Args(), *outDir, *screenshots); err != nil {
		loggers.Error.Println(err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Config, loggers *logging.Loggers, command string, args []string, outDir string, screenshots bool) error {
	responses, err := cache.Open()
	if err != nil {
		return fmt.Errorf("open response cache: %w", err)
	}
	defer func(responses *cache.Responses) {
		if closeErr := responses.Close(); closeErr != nil {
			loggers.Error.Println("Failed to close response cache: " + closeErr.Error())
		}
	}(responses)

	fetcher := artwork.NewFetcher(
		artwork.WithTimeout(cfg.Timeout),
		artwork.WithRetry(cfg.RetryAttempts, retryDelay),
		artwork.WithMaxWidth(cfg.ImageMaxWidth),
		artwork.WithLoggers(loggers),
	)
	client, err := igdb.New(cfg,
		igdb.WithImageSource(fetcher),
		igdb.WithResponseCache(responses),
		igdb.WithLoggers(loggers),
	)
	if err != nil {
		return err
	}

	var records []*domain.GameRecord
	switch command {
	case "search":
		records, err = client.Search(ctx, strings.Join(args, " "))
	case "best":
		var match *domain.GameRecord
		match, err = client.BestMatch(ctx, strings.Join(args, " "))
		if match != nil {
			records = []*domain.GameRecord{match}
		}
	case "popular":
		records, err = client.PopularListing(ctx)
	case "ids":
		ids, parseErr := parseIDs(args)
		if parseErr != nil {
			return parseErr
		}
		var result igdb.ByIDResult
		result, err = client.FetchByIDs(ctx, ids)
		records = result.Records
		for _, missing := range result.Missing {
			fmt.Fprintf(os.Stderr, "Game %d missing: %v\n", missing.ID, missing.Err)
		}
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
	if err != nil {
		return err
	}

	printRecords(records)

	if screenshots {
		for _, record := range records {
			_, shotErr := record.ResolveScreenshots(ctx, fetcher, func(img image.Image) {
				fmt.Printf("  %s: screenshot %dx%d\n", record.DisplayName(), img.Bounds().Dx(), img.Bounds().Dy())
			})
			if shotErr != nil {
				return shotErr
			}
		}
	}

	if outDir != "" {
		return exportCovers(ctx, records, fetcher, outDir, loggers)
	}
	return nil
}

func parseIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			if field == "" {
				continue
			}
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid game id %q: %w", field, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func printRecords(records []*domain.GameRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRELEASED\tRATING\tSCREENSHOTS")
	for _, record := range records {
		id, released, rating := "-", "-", "-"
		if record.ID != nil {
			id = strconv.FormatInt(*record.ID, 10)
		}
		if t, ok := record.ReleaseTime(); ok {
			released = t.Format("2006-01-02")
		}
		if record.Rating != nil {
			rating = strconv.FormatFloat(*record.Rating, 'f', 1, 64)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", id, record.DisplayName(), released, rating, len(record.ScreenshotRefs()))
	}
	_ = w.Flush()
}

func exportCovers(ctx context.Context, records []*domain.GameRecord, fetcher *artwork.Fetcher, outDir string, loggers *logging.Loggers) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	for i, record := range records {
		cover, err := record.ResolveCover(ctx, fetcher)
		if err != nil {
			return err
		}
		if artwork.IsPlaceholder(cover) {
			loggers.Warn.Println("No cover for game " + record.DisplayName())
		}
		if err := writePNG(filepath.Join(outDir, fmt.Sprintf("%02d-cover.png", i)), cover); err != nil {
			return err
		}
		backdrop, blurErr := artwork.Backdrop(cover, backdropRadius)
		if blurErr != nil {
			loggers.Warn.Println("Failed to blur image for game " + record.DisplayName() + " - " + blurErr.Error())
			continue
		}
		if err := writePNG(filepath.Join(outDir, fmt.Sprintf("%02d-backdrop.png", i)), backdrop); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printUsage() {
	fmt.Println("game-logger - browse the game catalog")
	fmt.Println()
	fmt.Println("Usage: game-logger <command> [-out dir] [-screenshots] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  search <term>       Search games, best rated first")
	fmt.Println("  best <term>         Closest title for a search term")
	fmt.Println("  popular             Popular recent games")
	fmt.Println("  ids <id,id,...>     Fetch games by id")
	fmt.Println()
	fmt.Println("Configuration is read from config.properties and config-secret.properties.")
	fmt.Println("IGDB_USER_KEY overrides igdb.user.key.")
}
