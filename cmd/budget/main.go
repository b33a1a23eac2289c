package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"budget/internal/cli"
	"budget/internal/core"
	"budget/internal/services"
)

func main() {
	var (
		monthArg = flag.String("month", "", "month to show, e.g. 2024-03 (default: current month)")
		userID   = flag.Int64("user", 1, "user id")
		userName = flag.String("name", "default", "user name when the user does not exist yet")
	)
	flag.Parse()

	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel())

	month := core.MonthOf(time.Now())
	if *monthArg != "" {
		m, err := core.ParseMonth(*monthArg)
		if err != nil {
			logger.Error("Invalid month argument", "error", err, "month", *monthArg)
			os.Exit(1)
		}
		month = m
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	svc := services.NewBudgetServiceWithCache(repo, cfg.CacheSize, cfg.CacheTTL)
	ctx := context.Background()

	user, err := repo.User(ctx, *userID)
	if errors.Is(err, core.ErrNotFound) {
		user = core.User{Name: *userName}
		if err := repo.CreateUser(ctx, &user); err != nil {
			logger.Error("Failed to create user", "error", err)
			os.Exit(1)
		}
		logger.Info("User created", "user_id", user.ID, "name", user.Name)
	} else if err != nil {
		logger.Error("Failed to load user", "error", err)
		os.Exit(1)
	}

	if _, err := svc.EnsureDefaultCategories(ctx, user.ID); err != nil {
		logger.Error("Failed to provision default categories", "error", err)
		os.Exit(1)
	}
	if _, err := svc.EnsureIncomeCategory(ctx, month); err != nil {
		logger.Error("Failed to provision income category", "error", err)
		os.Exit(1)
	}
	if _, err := svc.EnsureBudget(ctx, user.ID, month); err != nil {
		logger.Error("Failed to provision budget", "error", err)
		os.Exit(1)
	}

	view, err := svc.MonthView(ctx, user.ID, month)
	if err != nil {
		logger.Error("Failed to assemble month view", "error", err)
		os.Exit(1)
	}
	overview, err := svc.AccountOverview(ctx, user.ID)
	if err != nil {
		logger.Error("Failed to compute account overview", "error", err)
		os.Exit(1)
	}

	printMonthView(view)
	printOverview(overview)
}

func printMonthView(view services.MonthView) {
	fmt.Printf("Budget for %s\n", view.Month)
	fmt.Printf("  income     %10s\n", core.FormatAmount(view.Income))
	fmt.Printf("  budgeted   %10s\n", core.FormatAmount(view.Budgeted))
	fmt.Printf("  overspent  %10s\n", core.FormatAmount(view.Overspend))
	fmt.Printf("  available  %10s\n\n", core.FormatAmount(view.Available))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tBUDGETED\tOUTFLOWS\tBALANCE")
	for _, group := range view.Groups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			group.Group.Name,
			core.FormatAmount(group.Budgeted),
			core.FormatAmount(group.Outflows),
			core.FormatAmount(group.Balance))
		for _, line := range group.Categories {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
				line.Category.Name,
				core.FormatAmount(line.Budgeted),
				core.FormatAmount(line.Outflows),
				core.FormatAmount(line.Balance))
		}
	}
	w.Flush()
	fmt.Println()
}

func printOverview(o services.Overview) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tSALDO")
	for _, ab := range o.OnBudget {
		fmt.Fprintf(w, "%s\t%s\n", ab.Account.Name, core.FormatAmount(ab.Saldo))
	}
	if len(o.OnBudget) > 0 {
		fmt.Fprintf(w, "on budget\t%s\n", core.FormatAmount(o.OnBudgetTotal))
	}
	for _, ab := range o.OffBudget {
		fmt.Fprintf(w, "%s\t%s\n", ab.Account.Name, core.FormatAmount(ab.Saldo))
	}
	if len(o.OffBudget) > 0 {
		fmt.Fprintf(w, "off budget\t%s\n", core.FormatAmount(o.OffBudgetTotal))
	}
	fmt.Fprintf(w, "total\t%s\n", core.FormatAmount(o.Total))
	w.Flush()
}
