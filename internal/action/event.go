// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package action implements the function-invocation contract of an agent
// action group: the event a handler receives, the envelope it answers with
// and the dispatch from function name to operation.
package action

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// DefaultMessageVersion is answered when the event does not carry one.
const DefaultMessageVersion = "1.0"

var ErrParameterNotFound = errors.New("parameter not found")

// Parameter is one named argument of a function invocation.
type Parameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Agent struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Alias   string `json:"alias"`
	Version string `json:"version"`
}

// Event is the invocation descriptor sent to an action group handler.
type Event struct {
	MessageVersion          string            `json:"messageVersion,omitempty"`
	ActionGroup             string            `json:"actionGroup"`
	Function                string            `json:"function"`
	Parameters              []Parameter       `json:"parameters"`
	SessionID               string            `json:"sessionId,omitempty"`
	InputText               string            `json:"inputText,omitempty"`
	Agent                   *Agent            `json:"agent,omitempty"`
	SessionAttributes       map[string]string `json:"sessionAttributes,omitempty"`
	PromptSessionAttributes map[string]string `json:"promptSessionAttributes,omitempty"`
}

// Lookup returns the value of the first parameter called name.
func (e *Event) Lookup(name string) (string, error) {
	for _, p := range e.Parameters {
		if p.Name == name {
			return p.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrParameterNotFound, name)
}

func (e Event) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("actionGroup", e.ActionGroup)
	enc.AddString("function", e.Function)
	if e.SessionID != "" {
		enc.AddString("sessionId", e.SessionID)
	}
	if e.Agent != nil {
		enc.AddString("agent", e.Agent.Name)
	}
	return enc.AddObject("parameters", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, p := range e.Parameters {
			enc.AddString(p.Name, p.Value)
		}
		return nil
	}))
}
