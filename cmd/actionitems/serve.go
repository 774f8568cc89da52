package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"action-items/internal/bot"
	"action-items/internal/service"
	"action-items/internal/web"
)

const (
	syncJobTimeout   = 30 * time.Minute
	digestJobTimeout = 30 * time.Second
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI, the periodic sync and the Telegram bot",
		Long: `Start the HTTP server.

Periodic sync runs when SYNC_INTERVAL is set. The Telegram bot starts when
TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are set, and DIGEST_AT schedules its
daily digest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServe(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if addr == "" {
		addr = a.cfg.HTTPAddr
	}

	var telegramBot *bot.Bot
	if a.cfg.TelegramEnabled() {
		telegramBot, err = bot.New(a.cfg.TelegramToken, a.cfg.TelegramChatID, a.tasks, a.sync, a.digest)
		if err != nil {
			return err
		}
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("bot stopped with error: %v", err)
			}
		}()
	}

	scheduler := service.NewSchedulerService(ctx, time.Local)
	if a.cfg.SyncInterval > 0 {
		if _, err := scheduler.ScheduleEvery("sync", a.cfg.SyncInterval, syncJobTimeout, func(jobCtx context.Context) error {
			return runScheduledSync(jobCtx, a, telegramBot)
		}); err != nil {
			return err
		}
		log.Printf("[info] periodic sync every %s", a.cfg.SyncInterval)
	}
	if telegramBot != nil && a.cfg.DigestAt != "" {
		if _, err := scheduler.ScheduleDaily("digest", a.cfg.DigestAt, digestJobTimeout, telegramBot.SendDigest); err != nil {
			return err
		}
		log.Printf("[info] daily digest at %s", a.cfg.DigestAt)
	}
	if scheduler.Entries() > 0 {
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           web.NewServer(a.tasks, a.sync).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("Shutdown complete.")
	return nil
}

func runScheduledSync(ctx context.Context, a *app, telegramBot *bot.Bot) error {
	result, err := a.sync.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("[info] scheduled sync added %d task(s), %d conversation(s) failed", result.TasksAdded, result.Failed())
	if telegramBot == nil || result.TasksAdded == 0 {
		return nil
	}
	if err := telegramBot.SendDigest(ctx); err != nil {
		return fmt.Errorf("digest after sync: %w", err)
	}
	return nil
}
