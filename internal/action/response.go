// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package action

import "go.uber.org/zap/zapcore"

// Response is the envelope returned to the agent.
type Response struct {
	MessageVersion string         `json:"messageVersion"`
	Response       FunctionResult `json:"response"`
}

type FunctionResult struct {
	ActionGroup      string           `json:"actionGroup"`
	Function         string           `json:"function"`
	FunctionResponse FunctionResponse `json:"functionResponse"`
}

type FunctionResponse struct {
	ResponseBody ResponseBody `json:"responseBody"`
}

type ResponseBody struct {
	Text TextBody `json:"TEXT"`
}

type TextBody struct {
	Body string `json:"body"`
}

// NewResponse wraps body in an envelope echoing the event's action group,
// function and message version.
func NewResponse(event Event, body string) Response {
	version := event.MessageVersion
	if version == "" {
		version = DefaultMessageVersion
	}
	return Response{
		MessageVersion: version,
		Response: FunctionResult{
			ActionGroup: event.ActionGroup,
			Function:    event.Function,
			FunctionResponse: FunctionResponse{
				ResponseBody: ResponseBody{Text: TextBody{Body: body}},
			},
		},
	}
}

// Body returns the text body of the envelope.
func (r Response) Body() string {
	return r.Response.FunctionResponse.ResponseBody.Text.Body
}

func (r Response) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("actionGroup", r.Response.ActionGroup)
	enc.AddString("function", r.Response.Function)
	enc.AddString("body", r.Body())
	return nil
}
