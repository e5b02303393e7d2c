package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// SleepSession is one sleep interval. Duration is 0 while the session is open
// and the whole number of seconds between clock-in and clock-out once closed.
//
// At most one open session exists per user; the partial unique index on
// user_id enforces it at insert time.
type SleepSession struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID       uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index;uniqueIndex:idx_sleep_sessions_one_open,where:clock_out_time IS NULL" validate:"required"`
	ClockInTime  time.Time  `json:"clockInTime" gorm:"not null" validate:"required"`
	ClockOutTime *time.Time `json:"clockOutTime" gorm:"check:chk_sleep_sessions_clock_out_after_in,clock_out_time IS NULL OR clock_out_time > clock_in_time" validate:"omitempty,gtfield=ClockInTime"`
	Duration     int64      `json:"duration" gorm:"not null;default:0" validate:"gte=0"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Completed reports whether the session has been clocked out.
func (s *SleepSession) Completed() bool {
	return s.ClockOutTime != nil
}

func (s *SleepSession) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// CloseAt returns a copy of the session closed at t. The receiver is not
// modified; callers persist the copy through a conditional update.
func (s *SleepSession) CloseAt(t time.Time) (*SleepSession, error) {
	closed := *s
	closed.ClockOutTime = &t
	closed.Duration = SecondsBetween(s.ClockInTime, t)
	if err := closed.Validate(); err != nil {
		return nil, err
	}
	return &closed, nil
}

// SecondsBetween returns floor(out - in) in whole seconds.
func SecondsBetween(in, out time.Time) int64 {
	return int64(out.Sub(in) / time.Second)
}
