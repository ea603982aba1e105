package errors

// Run error codes. Class SB0 covers statement handling, SB1 configuration
// and SB2 reporting.
const (
	ReadError                 = "SB001"
	InvocationFault           = "SB002"
	StatementExecutionFailure = "SB003"
	CollectionFault           = "SB004"
	InvocationTimeout         = "SB005"
	InvalidConfig             = "SB010"
	ReportFailure             = "SB020"
	InternalError             = "SB999"
)
