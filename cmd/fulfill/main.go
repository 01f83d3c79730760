// The fulfill binary runs the daily fulfillment pipeline once and exits. It
// is scheduled by cron for noon KST on workdays; rest days are detected at
// startup and skipped.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	fulfillmentapp "github.com/noisycontents/fulfillment/internal/application/fulfillment"
	"github.com/noisycontents/fulfillment/internal/application/promotion"
	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/shipping"
	"github.com/noisycontents/fulfillment/internal/domain/storefront"
	"github.com/noisycontents/fulfillment/internal/infrastructure/calendar"
	"github.com/noisycontents/fulfillment/internal/infrastructure/config"
	"github.com/noisycontents/fulfillment/internal/infrastructure/geocode"
	"github.com/noisycontents/fulfillment/internal/infrastructure/logger"
	"github.com/noisycontents/fulfillment/internal/infrastructure/mail"
	"github.com/noisycontents/fulfillment/internal/infrastructure/manifest"
	"github.com/noisycontents/fulfillment/internal/infrastructure/productname"
	"github.com/noisycontents/fulfillment/internal/infrastructure/storage"
	"github.com/noisycontents/fulfillment/internal/infrastructure/woocommerce"
)

func main() {
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
	log = logger.WithRun(log, time.Now().In(calendar.KST))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build pipeline", zap.Error(err))
	}

	result, err := svc.Run(ctx)
	if err != nil {
		log.Fatal("run failed", zap.Error(err))
	}
	if result == nil {
		return // rest day
	}
	if result.HasErrors() {
		log.Error("run finished with errors", zap.Strings("errors", result.Errors))
		os.Exit(1)
	}
	log.Info("run finished",
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("friend_orders", result.FriendOrders))
}

func buildService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*fulfillmentapp.Service, error) {
	sites, err := buildSites(cfg, log)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("no storefront configured")
	}

	holidays := calendar.NewHolidayClient(log)
	workdays := calendar.NewWorkdays(holidays, cfg.Calendar.CustomHolidays)

	store, err := manifest.NewExcelStore(cfg.Output.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("manifest store: %w", err)
	}

	sender, err := mail.NewSender(&mail.Config{
		Host:              cfg.Mail.Host,
		Port:              cfg.Mail.Port,
		Username:          cfg.Mail.Username,
		Password:          cfg.Mail.Password,
		ManifestRecipient: cfg.Mail.ManifestRecipient,
		ResultRecipient:   cfg.Mail.ResultRecipient,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("mail sender: %w", err)
	}

	backup, err := buildBackup(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var geocoder shipping.Geocoder
	if cfg.Geocoder.APIKey != "" {
		geocoder, err = geocode.NewGoogleMapsClient(cfg.Geocoder.APIKey, log,
			geocode.WithPace(time.Duration(cfg.Geocoder.PaceMillis)*time.Millisecond))
		if err != nil {
			return nil, fmt.Errorf("geocoder: %w", err)
		}
	} else {
		log.Warn("geocoder api key not set, overseas addresses ship as entered")
	}

	names, err := buildNames(cfg, log)
	if err != nil {
		return nil, err
	}

	var promo fulfillmentapp.PromotionRunner
	if cfg.Promotion.Enabled {
		mini := siteByName(sites, fulfillment.SiteMini)
		if mini == nil {
			return nil, fmt.Errorf("promotion is enabled but the mini storefront is not configured")
		}
		lookback := time.Duration(cfg.Promotion.LookbackMinutes) * time.Minute
		promo = promotion.NewFriendBundleService(mini, cfg.Promotion.ProductID, log,
			promotion.WithLookback(lookback))
	}

	return fulfillmentapp.NewService(sites, workdays, geocoder, store, sender, backup, names, promo, log), nil
}

// buildSites creates one storefront adapter per configured site, dok first.
// The dok manifests must land in the shared files before mini's.
func buildSites(cfg *config.Config, log *zap.Logger) ([]storefront.API, error) {
	var sites []storefront.API
	for _, sc := range []struct {
		site fulfillment.Site
		conf config.SiteConfig
	}{
		{fulfillment.SiteDok, cfg.Sites.Dok},
		{fulfillment.SiteMini, cfg.Sites.Mini},
	} {
		if sc.conf.BaseURL == "" {
			log.Info("storefront not configured, skipping", zap.String("site", string(sc.site)))
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
	return sites, nil
}

func buildBackup(ctx context.Context, cfg *config.Config, log *zap.Logger) (fulfillmentapp.Backup, error) {
	if !cfg.Storage.Enabled {
		return storage.NewNopBackupStore(), nil
	}
	s3, err := storage.NewS3BackupStore(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("backup store: %w", err)
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("backup bucket: %w", err)
	}
	return s3, nil
}

func buildNames(cfg *config.Config, log *zap.Logger) (fulfillmentapp.ProductNameSource, error) {
	if cfg.Supabase.URL == "" {
		log.Warn("product name catalog not configured, storefront names are used")
		return nil, nil
	}
	source, err := productname.NewSupabaseSource(cfg.Supabase.URL, cfg.Supabase.Key, log)
	if err != nil {
		return nil, fmt.Errorf("product name source: %w", err)
	}
	cached, err := productname.NewCachedSource(source, &productname.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, productname.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("product name cache: %w", err)
	}
	return cached, nil
}

func siteByName(sites []storefront.API, site fulfillment.Site) storefront.API {
	for _, s := range sites {
		if s.Site() == site {
			return s
		}
	}
	return nil
}
