package calendar

import "math"

// DistributeSimple spreads total across every block proportionally to its
// days. The last block takes whatever rounding left over.
func DistributeSimple(total int, blocks []WeekBlock) []int {
	return distribute(total, blocks, func(WeekBlock) bool { return true })
}

// DistributeEligible spreads total across eligible blocks only; ineligible
// blocks get 0 and the last eligible block absorbs the remainder.
func DistributeEligible(total int, blocks []WeekBlock) []int {
	return distribute(total, blocks, func(b WeekBlock) bool { return b.Eligible })
}

func distribute(total int, blocks []WeekBlock, include func(WeekBlock) bool) []int {
	out := make([]int, len(blocks))

	days, last := 0, -1
	for i, b := range blocks {
		if include(b) {
			days += b.Days
			last = i
		}
	}
	if days == 0 {
		return out
	}

	assigned := 0
	for i, b := range blocks {
		if !include(b) {
			continue
		}
		if i == last {
			out[i] = total - assigned
			break
		}
		v := int(math.Round(float64(total) * float64(b.Days) / float64(days)))
		// Rounding up on many short blocks can overshoot; never leave the
		// last block negative.
		if total >= 0 && assigned+v > total {
			v = total - assigned
		}
		out[i] = v
		assigned += v
	}

	return out
}

// Allocation is one block's share of the order for the month its arrival
// lands in.
type Allocation struct {
	Block       WeekBlock `json:"block"`
	Quantity    int       `json:"quantity"`
	TargetMonth MonthKey  `json:"target_month"`
	Anticipated bool      `json:"anticipated"`
}

// DistributeByArrivalMonth groups blocks by arrival month and distributes each
// month's order total over its own group. Groups whose target month is not
// currentMonth are flagged as anticipated. Blocks must come from
// WeekBlocksWithLeadTime.
func DistributeByArrivalMonth(ordersByMonth map[MonthKey]int, blocks []WeekBlock, currentMonth MonthKey) []Allocation {
	out := make([]Allocation, len(blocks))

	groups := make(map[MonthKey][]int)
	var order []MonthKey
	for i, b := range blocks {
		if _, ok := groups[b.ArrivalMonth]; !ok {
			order = append(order, b.ArrivalMonth)
		}
		groups[b.ArrivalMonth] = append(groups[b.ArrivalMonth], i)
	}

	for _, month := range order {
		sub := make([]WeekBlock, 0, len(groups[month]))
		for _, i := range groups[month] {
			sub = append(sub, blocks[i])
		}
		values := DistributeSimple(ordersByMonth[month], sub)
		for j, i := range groups[month] {
			out[i] = Allocation{
				Block:       blocks[i],
				Quantity:    values[j],
				TargetMonth: month,
				Anticipated: month != currentMonth,
			}
		}
	}

	return out
}
