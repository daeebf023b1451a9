package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kskby/dpd/pkg/dpd/api"
)

func TestCompressSchedule_MergesConsecutiveRuns(t *testing.T) {
	schedule := []api.ScheduleItem{
		{Operation: OpSelfPickup, Timetable: []api.Timetable{
			{WeekDays: "Пн,Вт,Ср,Пт", WorkTime: "09:00-18:00"},
		}},
	}

	lines := compressSchedule(schedule, OpSelfPickup)
	assert.Equal(t, []string{"Пн-Ср,Пт: 09:00-18:00"}, lines)
}

func TestCompressSchedule_UnsortedWeekdays(t *testing.T) {
	schedule := []api.ScheduleItem{
		{Operation: OpSelfDelivery, Timetable: []api.Timetable{
			{WeekDays: "Пт,Пн,Ср,Вт", WorkTime: "10:00-20:00"},
		}},
	}

	lines := compressSchedule(schedule, OpSelfDelivery)
	assert.Equal(t, []string{"Пн-Ср,Пт: 10:00-20:00"}, lines)
}

func TestCompressSchedule_SeparateTimeWindows(t *testing.T) {
	schedule := []api.ScheduleItem{
		{Operation: OpSelfPickup, Timetable: []api.Timetable{
			{WeekDays: "Пн,Вт,Ср,Чт,Пт", WorkTime: "09:00-19:00"},
			{WeekDays: "Сб", WorkTime: "10:00-16:00"},
		}},
	}

	lines := compressSchedule(schedule, OpSelfPickup)
	assert.Equal(t, []string{
		"Пн-Пт: 09:00-19:00",
		"Сб: 10:00-16:00",
	}, lines)
}

func TestCompressSchedule_FiltersByOperation(t *testing.T) {
	schedule := []api.ScheduleItem{
		{Operation: OpSelfPickup, Timetable: []api.Timetable{
			{WeekDays: "Пн", WorkTime: "09:00-18:00"},
		}},
		{Operation: OpPaymentCash, Timetable: []api.Timetable{
			{WeekDays: "Вт", WorkTime: "10:00-17:00"},
		}},
	}

	assert.Equal(t, []string{"Пн: 09:00-18:00"}, compressSchedule(schedule, OpSelfPickup))
	assert.Equal(t, []string{"Вт: 10:00-17:00"}, compressSchedule(schedule, OpPaymentCash))
	assert.Empty(t, compressSchedule(schedule, OpPaymentCard))
}

func TestCompressSchedule_FullWeek(t *testing.T) {
	schedule := []api.ScheduleItem{
		{Operation: OpSelfDelivery, Timetable: []api.Timetable{
			{WeekDays: "Пн,Вт,Ср,Чт,Пт,Сб,Вс", WorkTime: "00:00-24:00"},
		}},
	}

	lines := compressSchedule(schedule, OpSelfDelivery)
	assert.Equal(t, []string{"Пн-Вс: 00:00-24:00"}, lines)
}

func TestCompressSchedule_IgnoresUnknownDaysAndEmptyWindows(t *testing.T) {
	schedule := []api.ScheduleItem{
		{Operation: OpSelfPickup, Timetable: []api.Timetable{
			{WeekDays: "Mon,Пн", WorkTime: "09:00-18:00"},
			{WeekDays: "Вт", WorkTime: ""},
		}},
	}

	lines := compressSchedule(schedule, OpSelfPickup)
	assert.Equal(t, []string{"Пн: 09:00-18:00"}, lines)
}
