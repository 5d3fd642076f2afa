package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rustyeddy/tradebook/confirm"
	"github.com/rustyeddy/tradebook/extract"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/ocr"
	"github.com/rustyeddy/tradebook/ocr/prep"
)

// app is the ledger and its collaborators built from cfg.
type app struct {
	store  *journal.SQLite
	rdb    *redis.Client
	ledger *ledger.Ledger
	loc    *time.Location
}

func openApp(ctx context.Context) (*app, error) {
	loc, err := cfg.Ledger.LoadLocation()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Pending.ParseTTL()
	if err != nil {
		return nil, err
	}

	store, err := journal.NewSQLite(cfg.Journal.DBPath, loc)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a := &app{store: store, loc: loc}

	var pending confirm.PendingStore
	switch cfg.Pending.Backend {
	case "redis":
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Pending.RedisAddr, DB: cfg.Pending.RedisDB})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Pending.RedisAddr, err)
		}
		pending = confirm.NewRedisStore(a.rdb, ttl)
	default:
		pending = confirm.NewMemoryStore(ttl)
	}

	a.ledger = ledger.New(store, confirm.NewMachine(pending),
		ledger.WithRates(ledger.Rates{FeeRate: cfg.Ledger.FeeRate, RebateRate: cfg.Ledger.RebateRate}),
		ledger.WithTolerance(cfg.Ledger.DuplicateTolerance),
		ledger.WithLocation(loc),
	)
	return a, nil
}

func (a *app) extractor() *extract.Extractor {
	layout := extract.LayoutOptions{
		MaxDistance: cfg.Extract.MaxLabelDistance,
		Margin:      cfg.Extract.ColumnMargin,
	}
	return extract.New(
		extract.WithLocation(a.loc),
		extract.WithPasses(extract.DefaultPasses(layout)...),
	)
}

func (a *app) recognizer() *ocr.Client {
	return ocr.New(ocr.Options{
		Languages:         cfg.OCR.Languages,
		FallbackLanguages: cfg.OCR.FallbackLanguages,
		TessdataPrefix:    cfg.OCR.TessdataPrefix,
		Prep:              prep.Options{Scale: cfg.OCR.Scale, Contrast: cfg.OCR.Contrast},
	})
}

func (a *app) Close() error {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// withApp opens the ledger for the duration of fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
