// Package flow turns declarative module tables into chat dialogs.
//
// A Module is a menu of Actions. An action either runs immediately, starts
// a Flow (a fixed list of Steps, each prompting for one field, ending in a
// Terminal call), or shows a Picker that lists resources as buttons and
// continues into a flow with the chosen id already filled in. The Engine
// registers every module on a router and drives the step transitions.
package flow

import (
	"fmt"

	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
)

// MenuAction is the reserved action that renders a module's menu.
const MenuAction = "menu"

// Step prompts for one field.
type Step struct {
	Name   string
	Prompt string
	Field  string
	// Secret removes the user's answer from the chat once it is stored.
	Secret bool
	// Validate rejects an answer; the user is asked again on the same step.
	Validate func(value string) error
}

// Terminal performs the flow's single API call with every collected field and
// reports the affected resource id, if any.
type Terminal func(req *router.Request, fields state.Fields) (string, error)

// Flow is an ordered list of steps ending in a terminal call.
type Flow struct {
	// ID defaults to "<module>.<action>" of the first action mounting it.
	ID     string
	Steps  []Step
	Finish Terminal

	module string
	action string
}

// Module returns the module the flow is mounted under.
func (f *Flow) Module() string { return f.module }

// Action returns the action the flow is mounted under.
func (f *Flow) Action() string { return f.action }

func (f *Flow) indexOf(field string) int {
	for i, s := range f.Steps {
		if s.Field == field {
			return i
		}
	}
	return -1
}

func (f *Flow) validate() error {
	if f.Finish == nil {
		return fmt.Errorf("flow %s: terminal is required", f.ID)
	}
	seen := make(map[string]struct{}, len(f.Steps))
	for i, s := range f.Steps {
		if s.Field == "" || s.Prompt == "" {
			return fmt.Errorf("flow %s: step %d needs a field and a prompt", f.ID, i+1)
		}
		if _, dup := seen[s.Field]; dup {
			return fmt.Errorf("flow %s: field %q collected twice", f.ID, s.Field)
		}
		seen[s.Field] = struct{}{}
	}
	return nil
}

// Choice is one button of a picker.
type Choice struct {
	ID    string
	Label string
}

// Picker lists resources as buttons. Pressing one stores its id under Field
// and continues Flow after the step collecting Field.
type Picker struct {
	Prompt string
	// Empty is shown when List returns nothing.
	Empty string
	List  func(req *router.Request) ([]Choice, error)
	Field string
	// Resolve may look up more fields for the chosen id, e.g. a parent id.
	Resolve func(req *router.Request, id string) (state.Fields, error)
	Flow    *Flow
}

// Action is a menu entry. Exactly one of Run, Flow or Pick is set.
type Action struct {
	ID    string
	Title string
	Run   router.Handler
	Flow  *Flow
	Pick  *Picker
	// Public actions work without credentials.
	Public bool
}

func (a Action) validate(module string) error {
	n := 0
	for _, set := range []bool{a.Run != nil, a.Flow != nil, a.Pick != nil} {
		if set {
			n++
		}
	}
	switch {
	case a.ID == "" || a.Title == "":
		return fmt.Errorf("module %s: action needs an id and a title", module)
	case a.ID == MenuAction:
		return fmt.Errorf("module %s: action id %q is reserved", module, MenuAction)
	case n != 1:
		return fmt.Errorf("module %s: action %s must set exactly one of Run, Flow, Pick", module, a.ID)
	case a.Pick != nil && (a.Pick.List == nil || a.Pick.Flow == nil || a.Pick.Field == ""):
		return fmt.Errorf("module %s: picker %s needs List, Flow and Field", module, a.ID)
	}
	return nil
}

// Module is a resource menu.
type Module struct {
	Name    string
	Title   string
	Columns int
	// Public modules work without credentials.
	Public  bool
	Actions []Action
}
