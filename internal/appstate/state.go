// Package appstate holds the console's single application state and the
// reducer that is the only way to change it.
package appstate

import (
	"github.com/ashureev/teamconsole/internal/domain"
)

// Breakpoint is the responsive width class.
type Breakpoint string

const (
	BreakpointXS Breakpoint = "xs"
	BreakpointSM Breakpoint = "sm"
	BreakpointMD Breakpoint = "md"
	BreakpointLG Breakpoint = "lg"
	BreakpointXL Breakpoint = "xl"
)

// Device is the coarse device class derived from the breakpoint.
type Device string

const (
	DeviceMobile  Device = "mobile"
	DeviceTablet  Device = "tablet"
	DeviceDesktop Device = "desktop"
)

// DefaultLanguage is used when no preference has been stored.
const DefaultLanguage = "en"

// State is the application state. Session is nil while signed out.
type State struct {
	Session      *domain.Session
	MenuOpen     bool
	Width        int
	Breakpoint   Breakpoint
	Device       Device
	NavElevation string
	Language     string
	FontLoaded   bool
}

// Initial returns the state of a fresh application.
func Initial() State {
	return State{
		Breakpoint: BreakpointLG,
		Device:     DeviceDesktop,
		Language:   DefaultLanguage,
	}
}

// Authenticated reports whether a session is present.
func (s State) Authenticated() bool {
	return s.Session != nil && s.Session.Token != ""
}

// BreakpointForWidth maps a width to its breakpoint.
func BreakpointForWidth(width int) Breakpoint {
	switch {
	case width < 600:
		return BreakpointXS
	case width < 900:
		return BreakpointSM
	case width < 1200:
		return BreakpointMD
	case width < 1536:
		return BreakpointLG
	default:
		return BreakpointXL
	}
}

// DeviceForBreakpoint maps a breakpoint to its device class.
func DeviceForBreakpoint(bp Breakpoint) Device {
	switch bp {
	case BreakpointXS:
		return DeviceMobile
	case BreakpointSM:
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}
