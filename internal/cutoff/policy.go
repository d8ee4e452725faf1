// Package cutoff decides whether a requisition type's weekly submission window
// has passed and when the next one closes.
package cutoff

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/matreq-backend/pkg/config"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

// Schedule is the set of permitted weekdays and the daily cutoff time.
type Schedule struct {
	Days   []time.Weekday
	Hour   int
	Minute int
}

func (s Schedule) permits(day time.Weekday) bool {
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

func (s Schedule) minutes() int {
	return s.Hour*60 + s.Minute
}

// Clock renders the configured cutoff as HH:MM.
func (s Schedule) Clock() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// Status is the answer to a cut-off check.
type Status struct {
	Type       enums.RequisitionType `json:"type"`
	PastCutOff bool                  `json:"past_cut_off"`
	NextDay    time.Weekday          `json:"next_day"`
	NextTime   string                `json:"next_time"`
	NextAt     time.Time             `json:"next_at"`
}

// Next is the upcoming cutoff for a type.
type Next struct {
	Day  time.Weekday
	Time string
	At   time.Time
}

// Policy evaluates schedules in one location with a global hour offset.
type Policy struct {
	schedules  map[enums.RequisitionType]Schedule
	adjustment time.Duration
	loc        *time.Location
}

// NewPolicy validates schedules. adjustmentHours may be negative.
func NewPolicy(schedules map[enums.RequisitionType]Schedule, adjustmentHours int, loc *time.Location) (*Policy, error) {
	if loc == nil {
		loc = time.UTC
	}
	normalized := make(map[enums.RequisitionType]Schedule, len(schedules))
	for typ, s := range schedules {
		if !typ.IsValid() {
			return nil, fmt.Errorf("unknown requisition type %q", typ)
		}
		if len(s.Days) == 0 {
			return nil, fmt.Errorf("%s schedule has no permitted days", typ)
		}
		if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
			return nil, fmt.Errorf("%s schedule has invalid time %02d:%02d", typ, s.Hour, s.Minute)
		}
		days := append([]time.Weekday(nil), s.Days...)
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		s.Days = days
		normalized[typ] = s
	}
	return &Policy{
		schedules:  normalized,
		adjustment: time.Duration(adjustmentHours) * time.Hour,
		loc:        loc,
	}, nil
}

// PolicyFromConfig builds the policy from MATREQ_CUTOFF_* settings.
func PolicyFromConfig(cfg config.CutOffConfig, loc *time.Location) (*Policy, error) {
	perishable, err := ParseSchedule(cfg.PerishableDays, cfg.PerishableTime)
	if err != nil {
		return nil, fmt.Errorf("perishable cutoff: %w", err)
	}
	shelfStable, err := ParseSchedule(cfg.ShelfStableDays, cfg.ShelfStableTime)
	if err != nil {
		return nil, fmt.Errorf("shelf stable cutoff: %w", err)
	}
	return NewPolicy(map[enums.RequisitionType]Schedule{
		enums.RequisitionTypePerishable:  perishable,
		enums.RequisitionTypeShelfStable: shelfStable,
	}, cfg.AdjustmentHours, loc)
}

// ParseSchedule reads "1,4" style weekday lists and an HH:MM clock.
func ParseSchedule(days, clock string) (Schedule, error) {
	var s Schedule
	seen := make(map[time.Weekday]bool)
	for _, part := range strings.Split(days, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return Schedule{}, fmt.Errorf("invalid weekday %q", part)
		}
		if !seen[time.Weekday(n)] {
			seen[time.Weekday(n)] = true
			s.Days = append(s.Days, time.Weekday(n))
		}
	}
	if len(s.Days) == 0 {
		return Schedule{}, fmt.Errorf("no weekdays in %q", days)
	}

	hh, mm, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return Schedule{}, fmt.Errorf("invalid time %q", clock)
	}
	hour, errH := strconv.Atoi(hh)
	minute, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Schedule{}, fmt.Errorf("invalid time %q", clock)
	}
	s.Hour, s.Minute = hour, minute
	return s, nil
}

// Location is the zone cut-offs are evaluated in.
func (p *Policy) Location() *time.Location {
	return p.loc
}

// Schedule returns the schedule for typ.
func (p *Policy) Schedule(typ enums.RequisitionType) (Schedule, error) {
	s, ok := p.schedules[typ]
	if !ok {
		return Schedule{}, pkgerrors.Newf(pkgerrors.CodeValidation, "no cut-off schedule for type %q", typ)
	}
	return s, nil
}

// IsPastCutOff reports whether now is past the type's window. On a permitted
// day the window closes at the cutoff time plus the adjustment. On any other
// day the window is missed when a permitted day already passed this week
// (weeks start on Sunday).
func (p *Policy) IsPastCutOff(typ enums.RequisitionType, now time.Time) (bool, error) {
	s, err := p.Schedule(typ)
	if err != nil {
		return false, err
	}
	local := now.In(p.loc)
	today := local.Weekday()

	if s.permits(today) {
		limit := s.minutes() + int(p.adjustment/time.Minute)
		current := local.Hour()*60 + local.Minute()
		return current > limit, nil
	}

	for _, d := range s.Days {
		if d < today {
			return true, nil
		}
	}
	return false, nil
}

// NextCutOff returns the first permitted weekday strictly after today, wrapping
// into next week. At includes the adjustment offset.
func (p *Policy) NextCutOff(typ enums.RequisitionType, now time.Time) (Next, error) {
	s, err := p.Schedule(typ)
	if err != nil {
		return Next{}, err
	}
	local := now.In(p.loc)
	today := local.Weekday()

	ahead := 0
	for _, d := range s.Days {
		if d > today {
			ahead = int(d - today)
			break
		}
	}
	if ahead == 0 {
		ahead = int(s.Days[0]) + 7 - int(today)
	}

	date := local.AddDate(0, 0, ahead)
	at := time.Date(date.Year(), date.Month(), date.Day(), s.Hour, s.Minute, 0, 0, p.loc).Add(p.adjustment)
	return Next{Day: date.Weekday(), Time: s.Clock(), At: at}, nil
}

// Upcoming returns the closest cutoff instant that has not passed yet. Unlike
// NextCutOff it includes today's window while it is still open.
func (p *Policy) Upcoming(typ enums.RequisitionType, now time.Time) (Next, error) {
	s, err := p.Schedule(typ)
	if err != nil {
		return Next{}, err
	}
	local := now.In(p.loc)
	if s.permits(local.Weekday()) {
		at := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, p.loc).Add(p.adjustment)
		if at.After(now) {
			return Next{Day: local.Weekday(), Time: s.Clock(), At: at}, nil
		}
	}
	return p.NextCutOff(typ, now)
}

// Check combines IsPastCutOff and NextCutOff.
func (p *Policy) Check(typ enums.RequisitionType, now time.Time) (Status, error) {
	past, err := p.IsPastCutOff(typ, now)
	if err != nil {
		return Status{}, err
	}
	next, err := p.NextCutOff(typ, now)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Type:       typ,
		PastCutOff: past,
		NextDay:    next.Day,
		NextTime:   next.Time,
		NextAt:     next.At,
	}, nil
}

// Warning builds the POLICY_WARNING error returned when a caller acts past
// cut-off without confirming.
func Warning(status Status) error {
	return pkgerrors.New(pkgerrors.CodePolicyWarning, "submission is past the cut-off window").
		WithDetails(map[string]any{
			"warning":      "past_cut_off",
			"type":         status.Type,
			"next_cut_off": status.NextAt,
		})
}
