package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
)

// FetchBusinessMetrics pulls the offer/upsell counts from the warehouse and
// the heartbeat count from MySQL. The two sources share no state, so they
// run concurrently; a per-source failure leaves its counters nil and the run
// continues.
func FetchBusinessMetrics(cfg Config, dr DateRange) (BusinessMetrics, FetchTimings) {
	var (
		metrics BusinessMetrics
		timings FetchTimings
		wg      sync.WaitGroup
	)

	if cfg.RedshiftConfigured() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			offers, upsells, err := fetchRedshiftCounts(cfg, dr)
			timings.RedshiftSeconds = time.Since(start).Seconds()
			if err != nil {
				log.Printf("redshift fetch error: %v", err)
				return
			}
			metrics.Offers = &offers
			metrics.Upsells = &upsells
		}()
	} else {
		log.Printf("redshift not configured, skipping offers/upsells")
	}

	if cfg.MySQLConfigured() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			heartbeats, err := fetchMySQLHeartbeats(cfg, dr)
			timings.MySQLSeconds = time.Since(start).Seconds()
			if err != nil {
				log.Printf("mysql fetch error: %v", err)
				return
			}
			metrics.Heartbeats = &heartbeats
		}()
	} else {
		log.Printf("mysql not configured, skipping heartbeats")
	}

	wg.Wait()
	return metrics, timings
}

func fetchRedshiftCounts(cfg Config, dr DateRange) (offers, upsells int64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DBTimeoutSeconds)*time.Second)
	defer cancel()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.RedshiftUser, cfg.RedshiftPassword, cfg.RedshiftHost, cfg.RedshiftPort, cfg.RedshiftDatabase)
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return 0, 0, fmt.Errorf("connecting to redshift: %w", err)
	}
	defer conn.Close(ctx)

	// The interval fragment comes from the date-range policy, never from
	// user input.
	offersQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM (
		    SELECT playercode FROM warehouse.public.offer_events
		    WHERE createdat >= GETDATE() - %s
		    UNION ALL
		    SELECT playercode FROM warehouse.public.offer_events_archive
		    WHERE createdat >= GETDATE() - %s
		) AS combined`, dr.RedshiftInterval(), dr.RedshiftInterval())
	if err := conn.QueryRow(ctx, offersQuery).Scan(&offers); err != nil {
		return 0, 0, fmt.Errorf("querying offers: %w", err)
	}

	upsellsQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM (
		    SELECT playercode FROM warehouse.public.offer_events
		    WHERE createdat >= GETDATE() - %s AND liftadded = true
		    UNION ALL
		    SELECT playercode FROM warehouse.public.offer_events_archive
		    WHERE createdat >= GETDATE() - %s AND liftadded = true
		) AS combined`, dr.RedshiftInterval(), dr.RedshiftInterval())
	if err := conn.QueryRow(ctx, upsellsQuery).Scan(&upsells); err != nil {
		return 0, 0, fmt.Errorf("querying upsells: %w", err)
	}

	log.Printf("redshift fetch done offers=%d upsells=%d", offers, upsells)
	return offers, upsells, nil
}

func fetchMySQLHeartbeats(cfg Config, dr DateRange) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DBTimeoutSeconds)*time.Second)
	defer cancel()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%ds",
		cfg.MySQLUser, cfg.MySQLPassword, cfg.MySQLHost, cfg.MySQLPort, cfg.MySQLDatabase, cfg.DBTimeoutSeconds)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return 0, fmt.Errorf("opening mysql: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT playerKey)
		FROM Heartbeat
		WHERE timestamp >= NOW() - %s`, dr.MySQLInterval())

	var heartbeats int64
	if err := db.QueryRowContext(ctx, query).Scan(&heartbeats); err != nil {
		return 0, fmt.Errorf("querying heartbeats: %w", err)
	}

	log.Printf("mysql fetch done heartbeats=%d", heartbeats)
	return heartbeats, nil
}
