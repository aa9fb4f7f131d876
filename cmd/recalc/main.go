// Command recalc rebuilds denormalized counters from canonical rows. It is
// the operational escape hatch for aggregate drift: point it at a tenant and
// a scope and it recomputes the affected aggregates in place.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/antirek/chat3-counters/internal/config"
	"github.com/antirek/chat3-counters/internal/domain/stats"
	"github.com/antirek/chat3-counters/internal/sqlite"
)

func main() {
	var (
		tenantID = flag.String("tenant", "", "tenant to recalculate (required)")
		userID   = flag.String("user", "", "user scope")
		dialogID = flag.String("dialog", "", "dialog scope")
		topicID  = flag.String("topic", "", "topic scope (needs -user and -dialog)")
		packID   = flag.String("pack", "", "pack scope")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if *tenantID == "" {
		fmt.Fprintln(os.Stderr, "usage: recalc -tenant <id> [-user <id>] [-dialog <id>] [-topic <id>] [-pack <id>]")
		os.Exit(2)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	statsRepo := sqlite.NewStatsRepository(db)
	canonRepo := sqlite.NewCanonicalRepository(db)
	recalc := stats.NewRecalculator(statsRepo, canonRepo, logger)

	ctx := context.Background()
	if err := run(ctx, recalc, *tenantID, *userID, *dialogID, *topicID, *packID); err != nil {
		logger.Error("recalculation failed", "tenant", *tenantID, "error", err)
		os.Exit(1)
	}
	logger.Info("recalculation complete", "tenant", *tenantID)
}

// run picks the aggregate scope from the given ids. Narrower scopes win:
// user+dialog+topic rebuilds one topic counter, user alone rebuilds the
// user-global aggregate.
func run(ctx context.Context, recalc *stats.Recalculator, tenantID, userID, dialogID, topicID, packID string) error {
	switch {
	case userID != "" && dialogID != "" && topicID != "":
		rec, err := recalc.UserTopic(ctx, tenantID, userID, dialogID, topicID)
		if err != nil {
			return err
		}
		fmt.Printf("userTopic %s/%s/%s: unreadCount=%d\n", userID, dialogID, topicID, rec.UnreadCount)
	case userID != "" && dialogID != "":
		rec, err := recalc.UserDialog(ctx, tenantID, userID, dialogID)
		if err != nil {
			return err
		}
		fmt.Printf("userDialog %s/%s: unreadCount=%d\n", userID, dialogID, rec.UnreadCount)
	case userID != "" && packID != "":
		rec, err := recalc.UserPack(ctx, tenantID, userID, packID)
		if err != nil {
			return err
		}
		fmt.Printf("userPack %s/%s: unreadCount=%d\n", userID, packID, rec.UnreadCount)
	case userID != "":
		rec, err := recalc.User(ctx, tenantID, userID)
		if err != nil {
			return err
		}
		fmt.Printf("user %s: dialogCount=%d totalUnreadCount=%d unreadDialogsCount=%d\n",
			userID, rec.DialogCount, rec.TotalUnreadCount, rec.UnreadDialogsCount)
	case dialogID != "":
		rec, err := recalc.Dialog(ctx, tenantID, dialogID)
		if err != nil {
			return err
		}
		fmt.Printf("dialog %s: memberCount=%d messageCount=%d topicCount=%d\n",
			dialogID, rec.MemberCount, rec.MessageCount, rec.TopicCount)
	case packID != "":
		rec, err := recalc.Pack(ctx, tenantID, packID)
		if err != nil {
			return err
		}
		fmt.Printf("pack %s: dialogCount=%d\n", packID, rec.DialogCount)
	default:
		return fmt.Errorf("no scope given: pass -user, -dialog or -pack")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
