package ports

// Terminator ends the process. Coordinators call it instead of os.Exit so
// embedding programs and tests can observe the exit status.
type Terminator interface {
	Exit(code int)
}
