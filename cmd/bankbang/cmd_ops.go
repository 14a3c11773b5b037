package main

import (
	"context"
	"fmt"
	"time"

	"bankbang/internal/app"
	"bankbang/internal/logger"

	"github.com/spf13/cobra"
)

var (
	batchLimit     int
	referralURL    string
	referralSource string
	adminEmail     string
	adminPassword  string
)

var rehostLogosCmd = &cobra.Command{
	Use:   "rehost-logos",
	Short: "Download company logos and store them as 128x128 PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Services.CompanyService.RehostAll(ctx, a.DB, batchLimit)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var scrapeFaviconsCmd = &cobra.Command{
	Use:   "scrape-favicons",
	Short: "Discover favicons for companies without a logo source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Services.CompanyService.ScrapeFavicons(ctx, a.DB, batchLimit)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var scrapeReferralsCmd = &cobra.Command{
	Use:   "scrape-referrals",
	Short: "Scrape a forum list page into referrals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.Services.ReferralService.ScrapePage(ctx, a.DB, referralURL, referralSource)
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

// backfillCountsCmd пересчитывает like_count/collect_count по строкам
var backfillCountsCmd = &cobra.Command{
	Use:   "backfill-counts",
	Short: "Recount like and collect counters from interaction rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Services.InteractionService.RecountAll(ctx, a.DB)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var closeExpiredCmd = &cobra.Command{
	Use:   "close-expired",
	Short: "Close jobs past their deadline and expire old referrals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			now := time.Now()
			jobs, err := a.Services.JobService.CloseExpired(ctx, a.DB, now)
			if err != nil {
				return err
			}
			referrals, err := a.Services.ReferralService.ExpireOld(ctx, a.DB, now)
			if err != nil {
				return err
			}
			return printJSON(map[string]int64{"jobs_closed": jobs, "referrals_expired": referrals})
		})
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an admin account or promote an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" {
			adminEmail = cfg.Admin.Email
		}
		if adminPassword == "" {
			adminPassword = cfg.Admin.Password
		}
		if adminEmail == "" {
			return fmt.Errorf("--email or FIRST_ADMIN_EMAIL is required")
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			user, err := a.Services.AuthService.SeedAdmin(ctx, a.DB, adminEmail, adminPassword)
			if err != nil {
				return err
			}
			logger.Info("Admin ready", "email", user.Email, "user_id", user.ID)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{rehostLogosCmd, scrapeFaviconsCmd} {
		c.Flags().IntVar(&batchLimit, "limit", 100, "Max companies to process")
	}

	scrapeReferralsCmd.Flags().StringVar(&referralURL, "url", "", "Forum list page URL")
	scrapeReferralsCmd.Flags().StringVar(&referralSource, "source", "forum", "Source label stored on referrals")
	_ = scrapeReferralsCmd.MarkFlagRequired("url")

	seedAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (default FIRST_ADMIN_EMAIL)")
	seedAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (default FIRST_ADMIN_PASSWORD)")
}
