package conc

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chalkan3-sloth/gridcore/xerr"
)

// ScheduleCron arms what according to a standard 5-field cron expression.
// The entry re-arms for the next activation as long as the action returns
// true, matching the periodic-entry contract of Schedule.
func (ts *TimerService) ScheduleCron(spec string, what TimerFunc) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return xerr.Newf(xerr.CodeInvalidArgument, "bad cron expression %q", spec).WithCause(err)
	}

	var arm func()
	arm = func() {
		next := sched.Next(time.Now())
		ts.Schedule(next, func() bool {
			if !what() {
				return false
			}
			arm()
			return false // the fresh entry owns the next activation
		})
	}
	arm()
	return nil
}
