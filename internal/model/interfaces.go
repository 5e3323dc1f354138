package model

import "strings"

// AgentType classifies one end of a binding.
type AgentType int

const (
	// Internal means the agent is an executable inside the same app.
	Internal AgentType = iota
	// ExternalUser means the agent is a non-app process run by a user
	// account (written <user> in definition files).
	ExternalUser
	// ExternalApp means the agent is another application.
	ExternalApp
)

func (t AgentType) String() string {
	switch t {
	case Internal:
		return "internal"
	case ExternalUser:
		return "external user"
	case ExternalApp:
		return "external app"
	}
	return "unknown"
}

// Binding is a directed edge from a client-side interface instance to a
// server-side interface.
type Binding struct {
	ClientType   AgentType
	ClientAgent  string // exe name, app name, or user name depending on ClientType
	ClientIfName string

	ServerType   AgentType
	ServerAgent  string
	ServerIfName string
}

// ClientInterfaceInstance is a client-side interface of one component
// instance. Bound holds the binding once one exists; ExternMark means the
// interface is exposed for binding at a higher scope instead of being
// bound inside the app.
type ClientInterfaceInstance struct {
	ComponentInstance *ComponentInstance
	Decl              *ApiClientInterface
	Name              string // interface name as bound (may be an extern alias)

	ExternMark bool
	Bound      *Binding
}

// FullName returns the exe.component.interface path of the instance
// inside its app.
func (c *ClientInterfaceInstance) FullName() string {
	return strings.Join([]string{
		c.ComponentInstance.Exe.Name,
		c.ComponentInstance.Component.Name,
		c.Name,
	}, ".")
}

// ServerInterfaceInstance is a server-side interface of one component
// instance.
type ServerInterfaceInstance struct {
	ComponentInstance *ComponentInstance
	Decl              *ApiServerInterface
	Name              string

	ExternMark bool
	ExternName string // system-wide name when extern-marked
}

// FullName returns the exe.component.interface path of the instance
// inside its app.
func (s *ServerInterfaceInstance) FullName() string {
	return strings.Join([]string{
		s.ComponentInstance.Exe.Name,
		s.ComponentInstance.Component.Name,
		s.Name,
	}, ".")
}
