// The trackingsync binary reads the logistics partner's tracking sheets for
// one day and writes the tracking numbers back to the storefronts. It runs
// after the partner uploads the sheets, usually in the evening.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	trackingapp "github.com/noisycontents/fulfillment/internal/application/tracking"
	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/storefront"
	"github.com/noisycontents/fulfillment/internal/infrastructure/calendar"
	"github.com/noisycontents/fulfillment/internal/infrastructure/config"
	"github.com/noisycontents/fulfillment/internal/infrastructure/logger"
	"github.com/noisycontents/fulfillment/internal/infrastructure/sheets"
	"github.com/noisycontents/fulfillment/internal/infrastructure/woocommerce"
)

func main() {
	var dateFlag string
	flag.StringVar(&dateFlag, "date", "", "sync sheets for this day (YYYY-MM-DD, default today KST)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	day, err := resolveDay(dateFlag)
	if err != nil {
		log.Fatal("invalid date", zap.String("date", dateFlag), zap.Error(err))
	}
	log = logger.WithRun(log, day)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build sync", zap.Error(err))
	}

	report, err := svc.Sync(ctx, day)
	if errors.Is(err, trackingapp.ErrNoSheets) {
		log.Warn("no tracking sheets uploaded yet", zap.String("day", day.Format("2006-01-02")))
		return
	}
	if err != nil {
		log.Fatal("sync failed", zap.Error(err))
	}

	fmt.Print(report.Summary())
	if len(report.Errors) > 0 {
		log.Error("sync finished with errors", zap.Strings("errors", report.Errors))
		os.Exit(1)
	}
}

func resolveDay(dateFlag string) (time.Time, error) {
	if dateFlag == "" {
		return time.Now().In(calendar.KST), nil
	}
	return time.ParseInLocation("2006-01-02", dateFlag, calendar.KST)
}

func buildService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*trackingapp.Service, error) {
	if cfg.Google.CredentialsFile == "" {
		return nil, fmt.Errorf("google.credentials_file is not set")
	}
	creds, err := os.ReadFile(cfg.Google.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	source, err := sheets.NewDriveSheetsClient(ctx, creds, cfg.Google.SharedDriveID, cfg.Google.FolderID, log)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	var sites []storefront.API
	for _, sc := range []struct {
		site fulfillment.Site
		conf config.SiteConfig
	}{
		{fulfillment.SiteDok, cfg.Sites.Dok},
		{fulfillment.SiteMini, cfg.Sites.Mini},
	} {
		if sc.conf.BaseURL == "" {
			continue
		}
		adapter, err := woocommerce.NewAdapter(&woocommerce.Config{
			Site:           sc.site,
			BaseURL:        sc.conf.BaseURL,
			ConsumerKey:    sc.conf.ConsumerKey,
			ConsumerSecret: sc.conf.ConsumerSecret,
			TimeoutSeconds: sc.conf.TimeoutSeconds,
			BatchSize:      sc.conf.BatchSize,
			PageSize:       sc.conf.PageSize,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("%s adapter: %w", sc.site, err)
		}
		sites = append(sites, adapter)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("no storefront configured")
	}

	return trackingapp.NewService(source, sites, log), nil
}
