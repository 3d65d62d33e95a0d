package rwlog

import "time"

var SLogger = NewStmtLogger(-1)

type StmtLogger struct {
	logMinDurationStatement time.Duration
}

// NewStmtLogger reports statements slower than logMinDurationStatement.
// -1 disables reporting.
func NewStmtLogger(logMinDurationStatement time.Duration) *StmtLogger {
	return &StmtLogger{
		logMinDurationStatement: logMinDurationStatement,
	}
}

func ReloadSLogger(logMinDurationStatement time.Duration) {
	SLogger = NewStmtLogger(logMinDurationStatement)
}

func (s *StmtLogger) MinDuration() time.Duration {
	return s.logMinDurationStatement
}

func (s *StmtLogger) shouldLogStatement(t time.Duration) bool {
	return s.logMinDurationStatement != -1 && t > s.logMinDurationStatement
}

// ReportStatement logs a statement executed against dataSource if it took longer
// than the configured threshold.
func (s *StmtLogger) ReportStatement(dataSource string, stmt string, t time.Duration) {
	if s.shouldLogStatement(t) {
		Zero.Info().Str("data_source", dataSource).Str("stmt", stmt).Dur("duration", t).Msg("log statement")
	}
}
