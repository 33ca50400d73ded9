package ui

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrScriptExhausted is returned by a ScriptedPrompter that runs out of
// scripted answers.
var ErrScriptExhausted = errors.New("scripted prompter has no more answers")

// Prompter is the interaction surface the setup and update flows depend on.
// Orchestration logic stays pure; only implementations of this interface
// touch the terminal.
type Prompter interface {
	// Input asks for a line of text, offering def as the default.
	Input(label, def string) (string, error)

	// Confirm asks a yes/no question.
	Confirm(label string, def bool) (bool, error)

	// Select asks the user to pick one of items, with current preselected.
	Select(label string, items []string, current string) (string, error)
}

// TerminalPrompter implements Prompter on an interactive terminal.
type TerminalPrompter struct{}

func (TerminalPrompter) Input(label, def string) (string, error) {
	p := promptui.Prompt{Label: label, Default: def}
	return p.Run()
}

func (TerminalPrompter) Confirm(label string, def bool) (bool, error) {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	if def {
		p.Default = "y"
	}
	_, err := p.Run()
	if err != nil {
		// promptui reports a declined confirm as ErrAbort.
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (TerminalPrompter) Select(label string, items []string, current string) (string, error) {
	pos := 0
	for i, item := range items {
		if item == current {
			pos = i
			break
		}
	}
	s := promptui.Select{Label: label, Items: items, CursorPos: pos}
	_, choice, err := s.Run()
	return choice, err
}

// ScriptedPrompter replays canned answers in order. Tests use it to drive
// the interactive flows without a terminal.
type ScriptedPrompter struct {
	Inputs     []string
	Confirms   []bool
	Selections []string
}

func (s *ScriptedPrompter) Input(label, def string) (string, error) {
	if len(s.Inputs) == 0 {
		return "", fmt.Errorf("input %q: %w", label, ErrScriptExhausted)
	}
	answer := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (s *ScriptedPrompter) Confirm(label string, def bool) (bool, error) {
	if len(s.Confirms) == 0 {
		return false, fmt.Errorf("confirm %q: %w", label, ErrScriptExhausted)
	}
	answer := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return answer, nil
}

func (s *ScriptedPrompter) Select(label string, items []string, current string) (string, error) {
	if len(s.Selections) == 0 {
		return "", fmt.Errorf("select %q: %w", label, ErrScriptExhausted)
	}
	answer := s.Selections[0]
	s.Selections = s.Selections[1:]
	if answer == "" {
		return current, nil
	}
	return answer, nil
}
