package model

// Executable is one executable declared in an app's executables section.
type Executable struct {
	Name string
	App  *App

	// ComponentInstances are ordered as declared; link order matters.
	ComponentInstances []*ComponentInstance
}

// AllClientInterfaces visits every client interface instance of every
// component instance, in declaration order.
func (e *Executable) AllClientInterfaces(visit func(*ClientInterfaceInstance) error) error {
	for _, ci := range e.ComponentInstances {
		for _, ifInst := range ci.ClientIfs {
			if err := visit(ifInst); err != nil {
				return err
			}
		}
	}
	return nil
}

// Process is one process started from an executable or command path,
// declared in a processes run subsection.
type Process struct {
	Name string
	Exe  string
	Args []string
}

// ProcEnv is the shared environment of the processes declared in one
// processes section: environment variables, resource limits, and fault
// and watchdog policy.
type ProcEnv struct {
	Processes []*Process
	EnvVars   map[string]string

	FaultAction string
	Priority    string

	MaxCoreDumpFileBytes int
	MaxFileBytes         int
	MaxFileDescriptors   int
	MaxLockedMemoryBytes int

	WatchdogAction  string
	WatchdogTimeout *WatchdogTimeout
}

// WatchdogTimeout is a watchdog deadline: either a millisecond count or
// the explicit never value.
type WatchdogTimeout struct {
	Never        bool
	Milliseconds int
}
