package entities

// Ecosystem identifies a dependency system with its own manifest format and registry.
type Ecosystem string

const (
	EcosystemNPM Ecosystem = "npm"
	EcosystemPip Ecosystem = "pip"
)

func (e Ecosystem) String() string { return string(e) }
