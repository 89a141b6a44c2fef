package entities

// Well-known measurement windows. Multipliers are configured per slot in the odds policy.
const (
	TimeSlotMorning   = "morning"
	TimeSlotNoon      = "noon"
	TimeSlotAfternoon = "afternoon"
	TimeSlotEvening   = "evening"
	TimeSlotNight     = "night"
)

// TimeSlotHours maps a slot to the local hour it is measured at
var TimeSlotHours = map[string]int{
	TimeSlotMorning:   8,
	TimeSlotNoon:      12,
	TimeSlotAfternoon: 15,
	TimeSlotEvening:   19,
	TimeSlotNight:     23,
}
