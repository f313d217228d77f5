package session

import (
	"github.com/okriker/wikibingo/internal/bingo"
	"github.com/okriker/wikibingo/internal/metrics"
)

// CheckWin re-scans the 12 fixed lines and records every line that is
// complete at the time of the check, not merely the first discovered. It
// returns the newly completed line IDs and whether this call transitioned
// the session into the won state. On the first transition the timer stops
// and the session becomes terminal: the matched set and winning lines are
// frozen afterward.
func (s *Session) CheckWin() (newLines []string, justWon bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameWon {
		return nil, false
	}

	for _, line := range bingo.Lines() {
		complete := true
		for _, idx := range line.Cells {
			if !s.grid[idx].Matched {
				complete = false
				break
			}
		}
		if complete {
			s.winningLines = append(s.winningLines, line.ID)
			newLines = append(newLines, line.ID)
		}
	}

	if len(s.winningLines) > 0 {
		s.gameWon = true
		s.timerRunning = false
		s.finishedAt = s.clock.Now()
		metrics.ObserveWin()
		return newLines, true
	}
	return nil, false
}

// WinningLines returns the recorded winning line IDs.
func (s *Session) WinningLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.winningLines...)
}
