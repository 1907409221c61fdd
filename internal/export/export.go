package export

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
	"github.com/ArowuTest/raffle-ledger-backend/internal/utils"
)

// RaffleRow is one line of the raffles report
type RaffleRow struct {
	Address             string    `csv:"address"`
	Sequence            uint64    `csv:"sequence"`
	Organizer           string    `csv:"organizer"`
	TotalTickets        uint64    `csv:"total_tickets"`
	TicketPriceEth      string    `csv:"ticket_price_eth"`
	PercentageThreshold uint8     `csv:"percentage_threshold"`
	TicketsSold         uint64    `csv:"tickets_sold"`
	BalanceEth          string    `csv:"balance_eth"`
	Status              string    `csv:"status"`
	WinningTicket       string    `csv:"winning_ticket"`
	Winner              string    `csv:"winner"`
	CreatedAt           time.Time `csv:"created_at"`
}

// TicketRow is one sold ticket, in purchase order within its raffle
type TicketRow struct {
	Raffle       string    `csv:"raffle"`
	TicketNumber uint64    `csv:"ticket_number"`
	Buyer        string    `csv:"buyer"`
	Seq          uint64    `csv:"purchase_seq"`
	PurchasedAt  time.Time `csv:"purchased_at"`
}

// EventRow is one entry of the event log
type EventRow struct {
	Seq          uint64    `csv:"seq"`
	Kind         string    `csv:"kind"`
	Raffle       string    `csv:"raffle"`
	Buyer        string    `csv:"buyer"`
	TicketNumber uint64    `csv:"ticket_number"`
	Winner       string    `csv:"winner"`
	Amount       string    `csv:"amount_wei"`
	TxHash       string    `csv:"tx_hash"`
	Timestamp    time.Time `csv:"timestamp"`
}

func RaffleRows(raffles []*models.Raffle) []*RaffleRow {
	rows := make([]*RaffleRow, 0, len(raffles))
	for _, r := range raffles {
		row := &RaffleRow{
			Address:             r.Address,
			Sequence:            r.Sequence,
			Organizer:           r.Organizer,
			TotalTickets:        r.TotalTickets,
			TicketPriceEth:      weiToEther(r.TicketPrice),
			PercentageThreshold: r.PercentageThreshold,
			TicketsSold:         r.TicketsSold,
			BalanceEth:          weiToEther(r.Balance),
			Status:              string(r.Status),
			Winner:              r.Winner,
			CreatedAt:           r.CreatedAt,
		}
		if r.Status == models.RaffleStatusResolved {
			row.WinningTicket = strconv.FormatUint(r.WinningTicket, 10)
		}
		rows = append(rows, row)
	}
	return rows
}

func TicketRows(raffles []*models.Raffle) []*TicketRow {
	var rows []*TicketRow
	for _, r := range raffles {
		start := len(rows)
		for key, slot := range r.Tickets {
			n, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				continue
			}
			rows = append(rows, &TicketRow{
				Raffle:       r.Address,
				TicketNumber: n,
				Buyer:        slot.Buyer,
				Seq:          slot.Seq,
				PurchasedAt:  slot.PurchasedAt,
			})
		}
		own := rows[start:]
		sort.Slice(own, func(i, j int) bool { return own[i].Seq < own[j].Seq })
	}
	return rows
}

// WriteRaffles writes every stored raffle as CSV
func WriteRaffles(ctx context.Context, repo repositories.RaffleRepository, w io.Writer) (int, error) {
	raffles, err := repo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load raffles: %w", err)
	}
	rows := RaffleRows(raffles)
	return len(rows), gocsv.Marshal(&rows, w)
}

// WriteTickets writes every sold ticket as CSV
func WriteTickets(ctx context.Context, repo repositories.RaffleRepository, w io.Writer) (int, error) {
	raffles, err := repo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load raffles: %w", err)
	}
	rows := TicketRows(raffles)
	return len(rows), gocsv.Marshal(&rows, w)
}

// WriteRaffleTickets writes the sold tickets of a single raffle as CSV
func WriteRaffleTickets(ctx context.Context, repo repositories.RaffleRepository, address string, w io.Writer) (int, error) {
	r, err := repo.FindByAddress(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("load raffle %s: %w", address, err)
	}
	rows := TicketRows([]*models.Raffle{r})
	return len(rows), gocsv.Marshal(&rows, w)
}

// WriteEvents pages through the whole event log. The header is written
// with the first page only.
func WriteEvents(ctx context.Context, repo repositories.EventRepository, w io.Writer) (int, error) {
	total := 0
	for page := 1; ; page++ {
		events, err := repo.FindAll(ctx, page, utils.MaxPageLimit)
		if err != nil {
			return total, fmt.Errorf("load events page %d: %w", page, err)
		}
		if len(events) == 0 && page > 1 {
			return total, nil
		}

		rows := make([]*EventRow, 0, len(events))
		for _, ev := range events {
			rows = append(rows, &EventRow{
				Seq:          ev.Seq,
				Kind:         string(ev.Kind),
				Raffle:       ev.Raffle,
				Buyer:        ev.Buyer,
				TicketNumber: ev.TicketNumber,
				Winner:       ev.Winner,
				Amount:       ev.Amount,
				TxHash:       ev.TxHash,
				Timestamp:    ev.Timestamp,
			})
		}
		if page == 1 {
			err = gocsv.Marshal(&rows, w)
		} else {
			err = gocsv.MarshalWithoutHeaders(&rows, w)
		}
		if err != nil {
			return total, err
		}
		total += len(rows)
		if len(events) < utils.MaxPageLimit {
			return total, nil
		}
	}
}

func weiToEther(wei string) string {
	v, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return ""
	}
	return raffle.FormatEther(v)
}
