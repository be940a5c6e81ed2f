package appstate

import (
	"fmt"

	"github.com/ashureev/teamconsole/internal/domain"
)

// Action is a state transition. The set of actions is closed.
type Action interface {
	isAction()
}

// SetSession installs the signed-in session.
type SetSession struct{ Session *domain.Session }

// CleanState resets session-dependent fields, keeping Language and FontLoaded.
type CleanState struct{}

// SetMenuOpen opens or closes the navigation menu.
type SetMenuOpen struct{ Open bool }

// ToggleMenu flips the navigation menu.
type ToggleMenu struct{}

// SetWidth records a new viewport width and derives breakpoint and device.
type SetWidth struct{ Width int }

// SetNavElevation tags the navigation bar elevation.
type SetNavElevation struct{ Elevation string }

// SetLanguage selects the UI language.
type SetLanguage struct{ Language string }

// SetFontLoaded records that fonts no longer need fetching.
type SetFontLoaded struct{ Loaded bool }

func (SetSession) isAction()      {}
func (CleanState) isAction()      {}
func (SetMenuOpen) isAction()     {}
func (ToggleMenu) isAction()      {}
func (SetWidth) isAction()        {}
func (SetNavElevation) isAction() {}
func (SetLanguage) isAction()     {}
func (SetFontLoaded) isAction()   {}

// Reduce returns the state that results from applying a to s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetSession:
		s.Session = a.Session
	case CleanState:
		language, fontLoaded := s.Language, s.FontLoaded
		s = Initial()
		s.Language, s.FontLoaded = language, fontLoaded
	case SetMenuOpen:
		s.MenuOpen = a.Open
	case ToggleMenu:
		s.MenuOpen = !s.MenuOpen
	case SetWidth:
		s.Width = a.Width
		s.Breakpoint = BreakpointForWidth(a.Width)
		s.Device = DeviceForBreakpoint(s.Breakpoint)
	case SetNavElevation:
		s.NavElevation = a.Elevation
	case SetLanguage:
		if a.Language != "" {
			s.Language = a.Language
		}
	case SetFontLoaded:
		s.FontLoaded = a.Loaded
	default:
		panic(fmt.Sprintf("appstate: unhandled action %T", a))
	}
	return s
}
