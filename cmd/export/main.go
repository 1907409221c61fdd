// Command export writes the stored ledger as CSV.
//
//	export -what raffles|tickets|events [-raffle address] [-out file.csv]
package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/config"
	"github.com/ArowuTest/raffle-ledger-backend/internal/export"
	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/storage"
)

func main() {
	what := flag.String("what", "raffles", "raffles, tickets or events")
	out := flag.String("out", "", "output file, stdout when empty")
	only := flag.String("raffle", "", "limit the tickets export to one raffle address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	// console logs share stdout with the CSV unless -out is set
	if err := logger.Initialize(logger.Configuration{
		LogFile:   cfg.Log.File,
		ErrorFile: cfg.Log.ErrorFile,
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console && *out != "",
	}); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	repos, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer repos.Close(context.Background())

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Fatal("failed to create output file", zap.String("path", *out), zap.Error(err))
		}
		defer f.Close()
		w = f
	}

	var n int
	switch *what {
	case "raffles":
		n, err = export.WriteRaffles(ctx, repos.Raffles, w)
	case "tickets":
		if *only != "" {
			if !common.IsHexAddress(*only) {
				logger.Fatal("raffle must be a hex address", zap.String("raffle", *only))
			}
			n, err = export.WriteRaffleTickets(ctx, repos.Raffles, common.HexToAddress(*only).Hex(), w)
		} else {
			n, err = export.WriteTickets(ctx, repos.Raffles, w)
		}
	case "events":
		n, err = export.WriteEvents(ctx, repos.Events, w)
	default:
		logger.Fatal("unknown export", zap.String("what", *what))
	}
	if err != nil {
		logger.Fatal("export failed", zap.String("what", *what), zap.Error(err))
	}
	logger.Info("export finished", zap.String("what", *what), zap.Int("rows", n))
}
