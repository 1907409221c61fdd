package raffle

import "errors"

// Rejections returned by the factory and by raffles. Callers compare with
// errors.Is; returned errors are wrapped with the ticket or raffle involved.
var (
	ErrInvalidParameters = errors.New("invalid raffle parameters")
	ErrInvalidTicket     = errors.New("ticket number out of range")
	ErrTicketAlreadySold = errors.New("ticket already sold")
	ErrIncorrectPayment  = errors.New("payment does not match ticket price")
	ErrRaffleInactive    = errors.New("raffle is not active")
	ErrRaffleStillActive = errors.New("raffle is still active")
	ErrNotOrganizer      = errors.New("caller is not the organizer")
	ErrWinnerAlreadySet  = errors.New("winner already set")
	ErrTicketNotSold     = errors.New("ticket not sold")
	ErrInvalidIdentity   = errors.New("invalid identity")
	ErrRaffleNotFound    = errors.New("raffle not found")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidParameters, "InvalidParameters"},
	{ErrInvalidTicket, "InvalidTicket"},
	{ErrTicketAlreadySold, "TicketAlreadySold"},
	{ErrIncorrectPayment, "IncorrectPayment"},
	{ErrRaffleInactive, "RaffleInactive"},
	{ErrRaffleStillActive, "RaffleStillActive"},
	{ErrNotOrganizer, "NotOrganizer"},
	{ErrWinnerAlreadySet, "WinnerAlreadySet"},
	{ErrTicketNotSold, "TicketNotSold"},
	{ErrInvalidIdentity, "InvalidIdentity"},
	{ErrRaffleNotFound, "RaffleNotFound"},
}

// Kind names the rejection carried by err, or returns "" for errors that
// did not originate in this package.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}
