package openweather

import (
	"math"
	"time"
)

// DailySummary folds one calendar day of 3-hour samples into max/min
// temperatures and the most frequent icon and description.
type DailySummary struct {
	Date        string `json:"date"`
	TempMax     int    `json:"tempMax"`
	TempMin     int    `json:"tempMin"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Summarize groups hourly samples by UTC calendar day, preserving the order
// in which days first appear. For icon and description the mode wins; ties
// go to the value seen first that day.
func Summarize(samples []Sample) []DailySummary {
	type bucket struct {
		tempMax, tempMin float64
		iconCounts       map[string]int
		descCounts       map[string]int
		iconOrder        []string
		descOrder        []string
	}

	buckets := make(map[string]*bucket)
	var order []string

	for _, s := range samples {
		day := time.Unix(s.Dt, 0).UTC().Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &bucket{
				tempMax:    math.Inf(-1),
				tempMin:    math.Inf(1),
				iconCounts: make(map[string]int),
				descCounts: make(map[string]int),
			}
			buckets[day] = b
			order = append(order, day)
		}

		b.tempMax = math.Max(b.tempMax, s.Main.Temp)
		b.tempMin = math.Min(b.tempMin, s.Main.Temp)
		if len(s.Weather) > 0 {
			w := s.Weather[0]
			if b.iconCounts[w.Icon] == 0 {
				b.iconOrder = append(b.iconOrder, w.Icon)
			}
			if b.descCounts[w.Description] == 0 {
				b.descOrder = append(b.descOrder, w.Description)
			}
			b.iconCounts[w.Icon]++
			b.descCounts[w.Description]++
		}
	}

	out := make([]DailySummary, 0, len(order))
	for _, day := range order {
		b := buckets[day]
		out = append(out, DailySummary{
			Date:        day,
			TempMax:     int(math.Round(b.tempMax)),
			TempMin:     int(math.Round(b.tempMin)),
			Icon:        mode(b.iconCounts, b.iconOrder),
			Description: mode(b.descCounts, b.descOrder),
		})
	}
	return out
}

func mode(counts map[string]int, order []string) string {
	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}
