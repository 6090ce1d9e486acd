package scanner

import "github.com/XingxingLi2017/memory-mcp/internal/config"

// Scan runs both sources and returns their combined entries: memory files
// first (in walk order), then session transcripts (mtime descending).
func (s *Scanner) Scan(workspace string, sessions config.SessionsConfig) ([]Entry, error) {
	mem, err := s.ScanMemory(workspace)
	if err != nil {
		return nil, err
	}

	sess, err := s.ScanSessions(sessions)
	if err != nil {
		return nil, err
	}

	return append(mem, sess...), nil
}
