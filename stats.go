package climabus

import "fmt"

// Stats counts what a Client has seen since it was opened.
type Stats struct {
	Frames   uint64
	Errors   uint64
	Warnings uint64
	Dropped  uint64
}

func (st Stats) String() string {
	return fmt.Sprintf("frames: %d errors: %d warnings: %d dropped: %d", st.Frames, st.Errors, st.Warnings, st.Dropped)
}

// Stats returns the current counters.
func (c *Client) Stats() Stats {
	return Stats{
		Frames:   c.frames.Load(),
		Errors:   c.errors.Load(),
		Warnings: c.warnings.Load(),
		Dropped:  c.Dropped(),
	}
}
