package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"linkhub-ops/internal/access"
	"linkhub-ops/internal/audit"
	"linkhub-ops/internal/cdc"
	"linkhub-ops/internal/config"
	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/dispatch"
	"linkhub-ops/internal/entitlement"
	"linkhub-ops/internal/logging"
	"linkhub-ops/internal/presence"
	"linkhub-ops/internal/store"
	"linkhub-ops/internal/ticket"
	httptransport "linkhub-ops/internal/transport/http"
)

func newServeCmd() *cobra.Command {
	var printRoutes bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactions endpoint and run background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), printRoutes)
		},
	}
	cmd.Flags().BoolVar(&printRoutes, "print-routes", false, "print registered HTTP routes on start")
	return cmd
}

func runServe(ctx context.Context, printRoutes bool) error {
	appCfg, err := config.LoadApp()
	logging.Init(appCfg.Log)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := appCfg.Server
	timeout := millis(cfg.RequestTimeoutMS)

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	verifier, err := discord.NewVerifier(cfg.DiscordPublicKey)
	if err != nil {
		return err
	}
	dc := discord.NewClient(cfg.DiscordAPIBase, cfg.DiscordBotToken, timeout)
	gate := access.NewGate(dc, cfg.DiscordGuildID)
	auditLog := audit.NewLogger(dc, cfg.AuditChannelID, cfg.AuditBuffer)

	tickets := ticket.NewManager(ticket.Config{
		GuildID:      cfg.DiscordGuildID,
		CategoryID:   cfg.TicketCategoryID,
		BotUserID:    cfg.DiscordAppID,
		StaffRoleIDs: cfg.StaffRoleIDs,
		SiteURL:      cfg.SiteURL,
		DeleteDelay:  millis(cfg.TicketDeleteDelayMS),
	}, dc, st, gate, auditLog)
	presenceSvc := presence.NewService(presence.NewHTTPSource(cfg.PresenceAPIBase, timeout))

	interactions := dispatch.NewRouter(dispatch.Deps{
		Config: dispatch.Config{
			SiteURL:           cfg.SiteURL,
			PurchaseChannelID: cfg.PurchaseChannelID,
			StaffRoleIDs:      cfg.StaffRoleIDs,
			AdminRoleIDs:      cfg.AdminRoleIDs,
		},
		Accounts:     st,
		Entitlements: entitlement.NewService(st),
		Tickets:      tickets,
		Presence:     presenceSvc,
		Auth:         gate,
		Sender:       dc,
		Audit:        auditLog,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		auditLog.Run(gctx)
		return nil
	})

	httpDeps := httptransport.Deps{
		Store:          st,
		Verifier:       verifier,
		Dispatcher:     interactions,
		Presence:       presenceSvc,
		AdminAPIKey:    cfg.AdminAPIKey,
		RequestTimeout: timeout,
	}
	switch {
	case !cfg.CDCEnabled:
		log.Info().Msg("cdc poller disabled")
	case cfg.NotifyChannelID == "":
		log.Warn().Msg("cdc poller disabled: NOTIFY_CHANNEL_ID is empty")
	default:
		poller := cdc.NewPoller(cdc.Config{
			Interval:    millis(cfg.CDCIntervalMS),
			BatchSize:   cfg.CDCBatchSize,
			BackoffBase: millis(cfg.CDCBackoffBaseMS),
			BackoffMax:  millis(cfg.CDCBackoffMaxMS),
		}, st, st, cdc.NewChannelNotifier(dc, cfg.NotifyChannelID, cfg.SiteURL))
		if err := poller.Start(gctx); err != nil {
			return fmt.Errorf("start cdc poller: %w", err)
		}
		httpDeps.Poller = poller
	}

	r := httptransport.NewRouter(httpDeps)
	if printRoutes {
		httptransport.LogRoutes(r)
	}
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msg("server stopped")
	return err
}
