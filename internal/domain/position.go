package domain

// Position is the per-instrument holding inside one account's portfolio.
//
// The order counters (BuyOrderQuantity etc.) track open-order exposure:
// incremented when an order is accepted, decremented as it fills or dies.
// The trade counters track cumulative fills; Quantity derives from them.
type Position struct {
	Instrument Instrument

	AvgPrice    float64
	MarketValue float64
	LastPrice   float64

	BuyTradeQuantity  int64
	SellTradeQuantity int64
	BuyTradeValue     float64
	SellTradeValue    float64

	BuyOrderQuantity  int64
	SellOrderQuantity int64
	BuyOrderValue     float64
	SellOrderValue    float64

	// Today's buys, locked for sale until the next session (T+1).
	BuyTodayHoldingQuantity int64

	// Futures bookkeeping.
	LongQuantity       int64
	ShortQuantity      int64
	LongTodayQuantity  int64
	ShortTodayQuantity int64
	LongAvgOpenPrice   float64
	ShortAvgOpenPrice  float64
	LongMargin         float64
	ShortMargin        float64
	PrevSettlePrice    float64

	TotalCommission float64
	TransactionCost float64
	TotalOrders     int
	TotalTrades     int
	IsTraded        bool
}

// NewPosition creates an empty position for the instrument.
func NewPosition(ins Instrument) *Position {
	return &Position{Instrument: ins}
}

// Quantity is the net holding: cumulative buys minus cumulative sells.
func (p *Position) Quantity() int64 {
	return p.BuyTradeQuantity - p.SellTradeQuantity
}

// SellableQuantity is what an equity position can sell today: the net
// holding minus today's buys (T+1) minus quantity already committed to
// open sell orders.
func (p *Position) SellableQuantity() int64 {
	return p.Quantity() - p.BuyTodayHoldingQuantity - p.SellOrderQuantity
}

// CloseTodayAmount computes, for a futures fill, how much of it offsets
// positions opened today. Equity positions always return 0.
func (p *Position) CloseTodayAmount(fill int64, side Side) int64 {
	if p.Instrument.Type != InstrumentFuture {
		return 0
	}
	var closing, closingToday int64
	if side == SideSell {
		closing = min64(fill, p.LongQuantity)
		closingToday = min64(closing, p.LongTodayQuantity)
	} else {
		closing = min64(fill, p.ShortQuantity)
		closingToday = min64(closing, p.ShortTodayQuantity)
	}
	return closingToday
}

// Margin is the total margin held against the position (futures).
func (p *Position) Margin() float64 {
	return p.LongMargin + p.ShortMargin
}

// FloatingPnL is the unrealized profit of a futures position marked at
// the last price.
func (p *Position) FloatingPnL() float64 {
	mult := p.Instrument.Multiplier()
	long := (p.LastPrice - p.LongAvgOpenPrice) * float64(p.LongQuantity) * mult
	short := (p.ShortAvgOpenPrice - p.LastPrice) * float64(p.ShortQuantity) * mult
	return long + short
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
