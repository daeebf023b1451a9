package sync

import (
	"strings"

	"github.com/kskby/dpd/pkg/dpd/api"
)

// Schedule operation kinds distinguished by the carrier.
const (
	OpSelfPickup     = "SelfPickup"
	OpSelfDelivery   = "SelfDelivery"
	OpPaymentCash    = "Payment"
	OpPaymentCard    = "PaymentByBankCard"
	OpPayPickupOnl   = "PaymentSelfPickupOnline"
	OpPayDeliveryOnl = "PaymentSelfDeliveryOnline"
	OpPayPickupSBP   = "PaymentSelfPickupOnlineSBP"
	OpPayDeliverySBP = "PaymentSelfDeliveryOnlineSBP"
)

// paymentOps are the payment-like kinds retained together as one
// structured field on the terminal record.
var paymentOps = []string{
	OpPaymentCash,
	OpPaymentCard,
	OpPayPickupOnl,
	OpPayDeliveryOnl,
	OpPayPickupSBP,
	OpPayDeliverySBP,
}

var weekdays = []string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

var weekdayIndex = func() map[string]int {
	m := make(map[string]int, len(weekdays))
	for i, d := range weekdays {
		m[d] = i
	}
	return m
}()

// compressSchedule flattens the raw schedule entries for one operation
// kind into display lines, one per distinct time window. Weekdays sharing
// a window are sorted Mon→Sun and consecutive runs are merged into ranges:
// {Пн,Вт,Ср,Пт} at 09:00-18:00 becomes "Пн-Ср,Пт: 09:00-18:00".
func compressSchedule(schedule []api.ScheduleItem, operation string) []string {
	// Group weekday sets by time window, keeping first-appearance order of
	// the windows so output is deterministic.
	var order []string
	grouped := map[string][]string{}

	for _, item := range schedule {
		if item.Operation != operation {
			continue
		}
		for _, tt := range item.Timetable {
			if tt.WorkTime == "" {
				continue
			}
			if _, seen := grouped[tt.WorkTime]; !seen {
				order = append(order, tt.WorkTime)
			}
			grouped[tt.WorkTime] = splitWeekdays(tt.WeekDays)
		}
	}

	var out []string
	for _, workTime := range order {
		days := grouped[workTime]
		if len(days) == 0 {
			continue
		}
		out = append(out, formatWeekdayRanges(days)+": "+workTime)
	}
	return out
}

func splitWeekdays(s string) []string {
	var days []string
	for _, part := range strings.Split(s, ",") {
		day := strings.TrimSpace(part)
		if _, ok := weekdayIndex[day]; ok {
			days = append(days, day)
		}
	}
	return days
}

// formatWeekdayRanges sorts the days and greedily merges consecutive
// indices into "From-To" runs joined by commas.
func formatWeekdayRanges(days []string) string {
	sorted := make([]string, len(days))
	copy(sorted, days)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && weekdayIndex[sorted[j]] < weekdayIndex[sorted[j-1]]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var b strings.Builder
	from := sorted[0]
	prev := sorted[0]

	flush := func() {
		b.WriteString(from)
		if from != prev {
			b.WriteString("-")
			b.WriteString(prev)
		}
	}

	for _, day := range sorted[1:] {
		if weekdayIndex[day]-weekdayIndex[prev] > 1 {
			flush()
			b.WriteString(",")
			from = day
		}
		prev = day
	}
	flush()
	return b.String()
}
