package calendar

import (
	"fmt"
	"time"
)

// blockStarts are the natural first days of the fixed weekly blocks. The fifth
// block only exists in months longer than 28 days.
var blockStarts = [...]int{1, 8, 15, 22, 29}

// WeekBlock is a slice of a month used for sub-monthly order timing.
type WeekBlock struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Days  int    `json:"days"`

	// Set by WeekBlocksWithLeadTime only.
	OrderDate    time.Time `json:"order_date,omitempty"`
	ArrivalDate  time.Time `json:"arrival_date,omitempty"`
	Eligible     bool      `json:"eligible"`
	ArrivalMonth MonthKey  `json:"arrival_month,omitempty"`
}

// RemainingWeekBlocks covers [referenceDay, last day of month]. Blocks that end
// before the reference day are dropped and the block containing it starts on
// the reference day.
func RemainingWeekBlocks(year, month, referenceDay int) []WeekBlock {
	last := DaysInMonth(year, month)
	if referenceDay < 1 {
		referenceDay = 1
	}

	blocks := make([]WeekBlock, 0, len(blockStarts))
	for i, start := range blockStarts {
		if start > last {
			break
		}
		end := start + 6
		if i == len(blockStarts)-1 || end > last {
			end = last
		}
		if end < referenceDay {
			continue
		}
		if start < referenceDay {
			start = referenceDay
		}
		blocks = append(blocks, WeekBlock{
			Label: fmt.Sprintf("W%d", i+1),
			Start: start,
			End:   end,
			Days:  end - start + 1,
		})
	}

	return blocks
}

// WeekBlocksWithLeadTime is RemainingWeekBlocks with each block carrying the
// date an order would be placed, when it would arrive, and whether that
// arrival still falls inside the same month.
func WeekBlocksWithLeadTime(year, month, referenceDay, leadTimeDays int) []WeekBlock {
	blocks := RemainingWeekBlocks(year, month, referenceDay)
	lastDay := Date(year, month, DaysInMonth(year, month))

	for i := range blocks {
		order := Date(year, month, blocks[i].Start)
		arrival := order.AddDate(0, 0, leadTimeDays)

		blocks[i].OrderDate = order
		blocks[i].ArrivalDate = arrival
		blocks[i].Eligible = !arrival.After(lastDay)
		blocks[i].ArrivalMonth = MonthKeyOf(arrival)
	}

	return blocks
}

// TotalDays sums the day counts of blocks.
func TotalDays(blocks []WeekBlock) int {
	total := 0
	for _, b := range blocks {
		total += b.Days
	}
	return total
}
