// Package app wires repositories and services from configuration.
package app

import (
	"database/sql"

	"suki-be/internal/address"
	"suki-be/internal/config"
	"suki-be/internal/courier"
	"suki-be/internal/customer"
	"suki-be/internal/email"
	"suki-be/internal/ledger"
	"suki-be/internal/ledgersync"
	"suki-be/internal/metrics"
)

type App struct {
	Customers customer.Service
	Addresses address.Service
	Couriers  courier.Service
	Sync      ledgersync.Service
	Email     email.Service

	// Dispatcher must be started before serving and stopped on shutdown.
	Dispatcher *ledgersync.Dispatcher
}

// New builds every service. m may be nil.
func New(cfg *config.Config, db *sql.DB, m *metrics.Metrics) *App {
	var (
		syncRec  ledgersync.Recorder
		emailRec email.Recorder
	)
	if m != nil {
		syncRec, emailRec = m, m
	}

	ledgerClient := ledger.NewClient(ledger.Options{
		BaseURL:        cfg.Ledger.BaseURL,
		OrganizationID: cfg.Ledger.OrganizationID,
		AccessToken:    cfg.Ledger.AccessToken,
		Timeout:        cfg.Ledger.Timeout,
	})

	syncSvc := ledgersync.NewService(ledgersync.NewRepository(db), ledgerClient, ledgersync.Options{
		RetryCeiling: cfg.Sync.RetryCeiling,
		Workers:      cfg.Sync.Workers,
		ItemTimeout:  cfg.Sync.ItemTimeout,
		BatchSize:    cfg.Sync.BatchSize,
		Lease:        cfg.Sync.Lease,
	}, syncRec)
	dispatcher := ledgersync.NewDispatcher(syncSvc, cfg.Sync.DispatchBuffer, cfg.Sync.Workers, syncRec)

	courierSvc := courier.NewService(courier.NewRepository(db))

	emailSvc := email.NewService(
		email.NewRepository(db),
		email.NewSender(email.SenderOptions{
			APIURL:  cfg.Email.APIURL,
			APIKey:  cfg.Email.APIKey,
			From:    cfg.Email.From,
			Timeout: cfg.Email.Timeout,
		}),
		email.Options{
			DailyLimit:  cfg.Email.DailyLimit,
			Workers:     cfg.Sync.Workers,
			ItemTimeout: cfg.Sync.ItemTimeout,
			ClaimLease:  cfg.Email.ClaimLease,
		},
		emailRec,
	)

	return &App{
		Customers:  customer.NewService(customer.NewRepository(db), courierSvc, dispatcher),
		Addresses:  address.NewService(address.NewRepository(db)),
		Couriers:   courierSvc,
		Sync:       syncSvc,
		Email:      emailSvc,
		Dispatcher: dispatcher,
	}
}
