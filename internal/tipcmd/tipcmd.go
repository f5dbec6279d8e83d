// Package tipcmd maps tip amounts to queue commands.
package tipcmd

// Costs holds the configured token prices for tip-driven commands.
type Costs struct {
	SongCost     int
	SkipCost     int
	MultiRequest bool
}

// Kind is the command a tip amount resolves to.
type Kind int

const (
	Ignore Kind = iota
	Request
	Skip
)

// Command is the interpretation of a single tip.
type Command struct {
	Kind Kind
	// Count is the number of song requests granted. Zero unless Kind is
	// Request.
	Count int
}

// Interpret resolves a tip amount against the configured costs. With
// MultiRequest set, any exact multiple of the song cost buys that many
// requests; otherwise only the exact song cost qualifies. The skip cost is
// checked only after the song check fails, so a request always wins when an
// amount satisfies both.
func (c Costs) Interpret(amount int) Command {
	if amount <= 0 {
		return Command{Kind: Ignore}
	}
	if c.SongCost > 0 {
		if c.MultiRequest {
			if amount%c.SongCost == 0 {
				return Command{Kind: Request, Count: amount / c.SongCost}
			}
		} else if amount == c.SongCost {
			return Command{Kind: Request, Count: 1}
		}
	}
	if c.SkipCost > 0 && amount%c.SkipCost == 0 {
		return Command{Kind: Skip}
	}
	return Command{Kind: Ignore}
}
