package model

import "github.com/vk/mkplan/internal/parsetree"

// Permissions holds the read/write/execute bits attached to a bundled or
// required file system object.
type Permissions struct {
	Read  bool
	Write bool
	Exec  bool
}

// String renders the permissions the way they appear in definition files.
func (p Permissions) String() string {
	s := "["
	if p.Read {
		s += "r"
	}
	if p.Write {
		s += "w"
	}
	if p.Exec {
		s += "x"
	}
	return s + "]"
}

// FileSystemObject is a file or directory with a source location, a
// destination in the app's staging area, and permission bits. Anchor
// points back at the declaring token for diagnostics.
type FileSystemObject struct {
	SrcPath     string
	DestPath    string
	Permissions Permissions
	Anchor      *parsetree.Token
}
